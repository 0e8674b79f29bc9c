package facts

import (
	"path/filepath"
	"strings"
)

// Language names.
const (
	LangGo         = "go"
	LangRust       = "rust"
	LangPython     = "python"
	LangJava       = "java"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
)

var extensions = map[string]string{
	".go":   LangGo,
	".rs":   LangRust,
	".py":   LangPython,
	".java": LangJava,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".mts":  LangTypeScript,
	".cts":  LangTypeScript,
}

// LanguageOf returns the language of path by extension, or "" when
// the extension is not recognised.
func LanguageOf(path string) string {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// Languages returns every recognised language.
func Languages() []string {
	return []string{LangGo, LangRust, LangPython, LangJava, LangJavaScript, LangTypeScript}
}

// isTSX reports whether path holds TypeScript with JSX.
func isTSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".tsx")
}

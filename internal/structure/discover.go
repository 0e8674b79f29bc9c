// Package structure discovers the modules of a source tree and the
// structural counts the depth scorer takes as given: exported and
// unexported types and internal and external dependencies.
package structure

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/unbound-force/sounding/internal/aposd"
	"github.com/unbound-force/sounding/internal/config"
	"github.com/unbound-force/sounding/internal/facts"
	"github.com/unbound-force/sounding/internal/source"
)

// ErrNoModules is returned when the tree holds no analyzable source.
var ErrNoModules = errors.New("no source modules found")

// Module is the unit of analysis: the files of one language in one
// directory.
type Module struct {
	// Name is the slash-separated directory relative to the root
	// ("." for the root). Modules in a language other than Go carry
	// the language as a suffix, e.g. "web [javascript]".
	Name     string `json:"name"`
	Dir      string `json:"dir"`
	Language string `json:"language"`

	// Files are absolute paths, sorted.
	Files []string `json:"files"`

	Counts aposd.StructuralCounts `json:"counts"`
}

// Options configures Discover.
type Options struct {
	// Config supplies the scan section. If nil, DefaultConfig() is used.
	Config *config.SoundingConfig

	// Reader reads Go files for the generated-code check and the
	// structural counts. If nil, an uncached reader is created.
	Reader *source.Reader
}

// Discover walks root and groups its source files into modules,
// sorted by name. Hidden, vendor, testdata and underscore-prefixed
// directories are never entered. The walk stops when ctx is done.
func Discover(ctx context.Context, root string, opts Options) ([]Module, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	reader := opts.Reader
	if reader == nil {
		var err error
		if reader, err = source.NewReader(cfg.Engine.CacheSize); err != nil {
			return nil, err
		}
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	byKey := make(map[string]*Module)
	// modulePaths maps a slash directory holding a go.mod to its
	// module path.
	modulePaths := make(map[string]string)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("discovery interrupted: %w", ctxErr)
		}
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && (skipDir(d.Name()) || excluded(rel, &cfg.Scan)) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if name == "go.mod" {
			if modPath := readModulePath(reader, p); modPath != "" {
				modulePaths[path.Dir(rel)] = modPath
			}
			return nil
		}

		lang := facts.LanguageOf(name)
		if lang == "" || !cfg.LanguageEnabled(lang) {
			return nil
		}
		if !cfg.Scan.IncludeTests && isTestFile(name) {
			return nil
		}
		if !Filter(rel, &cfg.Scan) {
			return nil
		}
		if lang == facts.LangGo && cfg.Scan.IgnoreGenerated {
			src, readErr := reader.Read(p)
			if readErr != nil {
				// Skip unreadable files rather than aborting the walk.
				return nil //nolint:nilerr
			}
			if IsGenerated(src) {
				return nil
			}
		}

		dir := path.Dir(rel)
		key := dir + "\x00" + lang
		m, ok := byKey[key]
		if !ok {
			m = &Module{Name: moduleName(dir, lang), Dir: dir, Language: lang}
			byKey[key] = m
		}
		m.Files = append(m.Files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(byKey) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoModules)
	}

	modules := make([]Module, 0, len(byKey))
	for _, m := range byKey {
		sort.Strings(m.Files)
		if m.Language == facts.LangGo {
			m.Counts = goCounts(reader, m.Files, nearestModulePath(m.Dir, modulePaths))
		}
		modules = append(modules, *m)
	}
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Name < modules[j].Name
	})
	return modules, nil
}

func moduleName(dir, lang string) string {
	if lang == facts.LangGo {
		return dir
	}
	return fmt.Sprintf("%s [%s]", dir, lang)
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, "_") ||
		name == "vendor" ||
		name == "testdata"
}

// excluded applies only the exclude patterns, so a directory is not
// pruned for failing to match a file-level include pattern.
func excluded(rel string, cfg *config.ScanConfig) bool {
	for _, pattern := range cfg.Exclude {
		if matchGlob(pattern, rel) {
			return true
		}
	}
	return false
}

func readModulePath(reader *source.Reader, p string) string {
	data, err := reader.Read(p)
	if err != nil {
		return ""
	}
	f, err := modfile.ParseLax(p, data, nil)
	if err != nil || f.Module == nil {
		return ""
	}
	return f.Module.Mod.Path
}

// nearestModulePath returns the module path declared by the closest
// go.mod at or above dir, or "" when there is none.
func nearestModulePath(dir string, modulePaths map[string]string) string {
	for {
		if modPath, ok := modulePaths[dir]; ok {
			return modPath
		}
		if dir == "." || dir == "/" {
			return ""
		}
		dir = path.Dir(dir)
	}
}

// goCounts parses the module's files for type declarations and
// imports. Files that fail to parse contribute nothing.
func goCounts(reader *source.Reader, files []string, modPath string) aposd.StructuralCounts {
	var counts aposd.StructuralCounts
	fset := token.NewFileSet()
	imports := make(map[string]bool)

	for _, p := range files {
		src, err := reader.Read(p)
		if err != nil {
			continue
		}
		f, err := parser.ParseFile(fset, p, src, parser.SkipObjectResolution)
		if err != nil {
			continue
		}
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				if ts.Name.IsExported() {
					counts.PublicTypes++
				} else {
					counts.PrivateTypes++
				}
			}
		}
		for _, imp := range f.Imports {
			if ip, err := strconv.Unquote(imp.Path.Value); err == nil {
				imports[ip] = true
			}
		}
	}

	for ip := range imports {
		switch {
		case modPath != "" && (ip == modPath || strings.HasPrefix(ip, modPath+"/")):
			counts.InternalDeps++
		case isStandardLibrary(ip):
		default:
			counts.ExternalDeps++
		}
	}
	return counts
}

// isStandardLibrary reports whether an import path belongs to the Go
// distribution: its first element has no dot.
func isStandardLibrary(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}

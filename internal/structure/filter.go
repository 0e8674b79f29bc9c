package structure

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/unbound-force/sounding/internal/config"
)

// Filter returns true if the given relative path should be analyzed,
// based on the include/exclude patterns in cfg.
//
// Logic:
//  1. If include patterns are set, the file must match at least one
//     include pattern.
//  2. If the file matches any exclude pattern, it is excluded.
//  3. Otherwise, the file is included.
func Filter(rel string, cfg *config.ScanConfig) bool {
	if cfg == nil {
		cfg = &config.DefaultConfig().Scan
	}

	rel = filepath.ToSlash(rel)

	if len(cfg.Include) > 0 {
		matched := false
		for _, pattern := range cfg.Include {
			if matchGlob(pattern, rel) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, pattern := range cfg.Exclude {
		if matchGlob(pattern, rel) {
			return false
		}
	}

	return true
}

// matchGlob matches a path against a glob pattern. Besides
// filepath.Match syntax it supports "dir/**" (anything under dir,
// at any depth of the tree) and "**/name" (name in any directory).
func matchGlob(pattern, rel string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
		// A prefix without separators names a directory anywhere.
		if !strings.Contains(prefix, "/") {
			return strings.Contains("/"+rel+"/", "/"+prefix+"/")
		}
		return false
	}

	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		for p := rel; ; {
			if matchGlob(rest, p) {
				return true
			}
			i := strings.IndexByte(p, '/')
			if i < 0 {
				return false
			}
			p = p[i+1:]
		}
	}

	matched, err := filepath.Match(pattern, rel)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without separators also match the base name
	// ("*_gen.go" matches any such file).
	if !strings.Contains(pattern, "/") {
		matched, err = filepath.Match(pattern, filepath.Base(rel))
		if err != nil {
			return false
		}
		return matched
	}

	return false
}

var generatedRegexp = regexp.MustCompile(`^// Code generated .* DO NOT EDIT\.$`)

// IsGenerated reports whether Go source carries a
// "// Code generated ... DO NOT EDIT." line before its package clause.
func IsGenerated(src []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(trimmed, "package ") {
			return false
		}
		if generatedRegexp.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// isTestFile reports whether name is a test file in its language's
// naming convention.
func isTestFile(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, "_test.go"):
		return true
	case strings.HasPrefix(lower, "test_") && strings.HasSuffix(lower, ".py"),
		strings.HasSuffix(lower, "_test.py"):
		return true
	case strings.HasSuffix(lower, "test.java"), strings.HasSuffix(lower, "tests.java"):
		return true
	}
	for _, marker := range []string{".test.", ".spec."} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Package scaffold writes a starter .sounding.yaml holding the
// default configuration into a project directory.
package scaffold

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/unbound-force/sounding/internal/config"
)

// Options configures the scaffold operation.
type Options struct {
	// TargetDir is the root directory to scaffold into.
	// Defaults to the current working directory.
	TargetDir string

	// Force overwrites an existing file when true.
	// When false, an existing file is skipped.
	Force bool

	// Version is the sounding version string to embed in the
	// version marker comment. Set by ldflags at build time.
	// Defaults to "dev" for development builds.
	Version string

	// Stdout is the writer for summary output.
	// Defaults to os.Stdout.
	Stdout io.Writer
}

// Result reports what the scaffold operation did.
type Result struct {
	// Created lists files that were written for the first time.
	Created []string

	// Skipped lists files that already existed and were not
	// overwritten (Force was false).
	Skipped []string

	// Overwritten lists files that existed and were replaced
	// (Force was true).
	Overwritten []string
}

// versionMarker returns the comment prepended to the scaffolded file.
func versionMarker(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("# scaffolded by sounding %s\n", version)
}

// Content renders the default configuration as YAML, prefixed with
// the version marker.
func Content(version string) ([]byte, error) {
	body, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("encoding default configuration: %w", err)
	}
	return append([]byte(versionMarker(version)), body...), nil
}

// Run writes config.FileName into the target directory.
//
// If the file already exists and opts.Force is false, it is skipped.
// If opts.Force is true, it is overwritten.
func Run(opts Options) (*Result, error) {
	if opts.TargetDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		opts.TargetDir = cwd
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	info, err := os.Stat(opts.TargetDir)
	if err != nil {
		return nil, fmt.Errorf("checking target directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target %s is not a directory", opts.TargetDir)
	}

	// Internal and external imports are told apart by go.mod.
	if _, err := os.Stat(filepath.Join(opts.TargetDir, "go.mod")); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(opts.Stdout, "Warning: no go.mod found in the target directory.")
		fmt.Fprintln(opts.Stdout, "Go imports are counted as external unless a nested go.mod claims them.")
		fmt.Fprintln(opts.Stdout)
	}

	result := &Result{}
	outPath := filepath.Join(opts.TargetDir, config.FileName)

	_, statErr := os.Stat(outPath)
	exists := statErr == nil

	if exists && !opts.Force {
		result.Skipped = append(result.Skipped, config.FileName)
		printSummary(opts.Stdout, result)
		return result, nil
	}

	content, err := Content(opts.Version)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("creating %s: %w", config.FileName, err)
	}

	if exists {
		result.Overwritten = append(result.Overwritten, config.FileName)
	} else {
		result.Created = append(result.Created, config.FileName)
	}

	printSummary(opts.Stdout, result)

	return result, nil
}

// printSummary writes a human-readable summary of the scaffold
// operation to w.
func printSummary(w io.Writer, r *Result) {
	fmt.Fprintln(w, "Sounding configuration initialized:")

	for _, f := range r.Created {
		fmt.Fprintf(w, "  created: %s\n", f)
	}
	for _, f := range r.Skipped {
		fmt.Fprintf(w, "  skipped: %s (already exists)\n", f)
	}
	for _, f := range r.Overwritten {
		fmt.Fprintf(w, "  overwritten: %s\n", f)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'sounding analyze' to generate a report.")

	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "%d file(s) skipped (use --force to overwrite).\n", len(r.Skipped))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/unbound-force/sounding/internal/config"
	"github.com/unbound-force/sounding/internal/engine"
	"github.com/unbound-force/sounding/internal/report"
	"github.com/unbound-force/sounding/internal/scaffold"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

// Set by build flags.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "sounding",
		Short: "Sounding: design quality analysis for source trees",
		Long: `Sounding measures module depth and cognitive load, classifies
connascence between modules, and detects temporal coupling in Go,
Rust, Python, Java, JavaScript and TypeScript sources.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newInitCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// analyzeParams holds the parsed flags for the analyze command.
type analyzeParams struct {
	ctx         context.Context
	dir         string
	format      string
	configPath  string
	parallel    int
	timeout     time.Duration
	extractor   string
	module      string
	maxIssues   int
	interactive bool
	verbose     bool
	stdout      io.Writer
	stderr      io.Writer
}

// runAnalyze is the extracted, testable body of the analyze command.
func runAnalyze(p analyzeParams) error {
	if p.format != "text" && p.format != "json" && p.format != "markdown" {
		return fmt.Errorf("invalid format %q: must be 'text', 'json', or 'markdown'", p.format)
	}
	if p.ctx == nil {
		p.ctx = context.Background()
	}
	if p.verbose {
		logger.SetLevel(charmlog.DebugLevel)
	}

	cfg, err := loadConfig(p)
	if err != nil {
		return err
	}

	logger.Info("analyzing tree", "dir", p.dir, "extractor", cfg.Facts.Mode)
	rpt, err := engine.Run(p.ctx, p.dir, engine.Options{
		Config:       cfg,
		Logger:       logger,
		ModuleFilter: p.module,
		Version:      version,
	})
	if err != nil {
		return err
	}

	logger.Info("analysis complete",
		"modules", rpt.Summary.Modules,
		"issues", rpt.Summary.TotalIssues,
		"warnings", len(rpt.Warnings))

	if p.interactive {
		return runInteractiveAnalyze(rpt)
	}

	if err := writeReport(p.stdout, p.format, rpt); err != nil {
		return err
	}

	printCISummary(p.stderr, rpt, p.maxIssues)

	return checkCIThresholds(rpt, p.maxIssues)
}

// loadConfig reads the explicit --config file, or the optional
// .sounding.yaml at the root of dir, and applies flag overrides.
func loadConfig(p analyzeParams) (*config.SoundingConfig, error) {
	path, optional := p.configPath, false
	if path == "" {
		path, optional = filepath.Join(p.dir, config.FileName), true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, err
	}

	if p.parallel > 0 {
		cfg.Engine.Parallelism = p.parallel
	}
	if p.timeout > 0 {
		cfg.Engine.ModuleTimeout = p.timeout
	}
	if p.extractor != "" {
		cfg.Facts.Mode = p.extractor
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeReport outputs the report in the requested format.
func writeReport(w io.Writer, format string, rpt *engine.Report) error {
	switch format {
	case "json":
		return report.WriteJSON(w, rpt, version)
	case "markdown":
		return report.WriteMarkdown(w, rpt)
	default:
		return report.WriteText(w, rpt)
	}
}

// printCISummary prints a one-line CI summary to stderr when the
// threshold flag is set.
func printCISummary(w io.Writer, rpt *engine.Report, maxIssues int) {
	if maxIssues <= 0 {
		return
	}

	status := "PASS"
	if rpt.Summary.TotalIssues > maxIssues {
		status = "FAIL"
	}
	fmt.Fprintf(w, "Issues: %d/%d (%s) | Critical/High findings: %d\n",
		rpt.Summary.TotalIssues, maxIssues, status, len(rpt.HighFindings()))
}

// errThresholdExceeded is wrapped when a CI threshold fails.
var errThresholdExceeded = errors.New("threshold exceeded")

// checkCIThresholds returns an error if the issue threshold is
// exceeded.
func checkCIThresholds(rpt *engine.Report, maxIssues int) error {
	if maxIssues > 0 && rpt.Summary.TotalIssues > maxIssues {
		return fmt.Errorf("%w: %d issues exceed maximum %d",
			errThresholdExceeded, rpt.Summary.TotalIssues, maxIssues)
	}
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	var (
		format      string
		configPath  string
		parallel    int
		timeout     time.Duration
		extractor   string
		module      string
		maxIssues   int
		interactive bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Analyze the design quality of a source tree",
		Long: `Analyze every module under dir (default: the current directory)
and report module depth, cognitive load, pass-through methods,
connascence and temporal coupling.

Settings are read from .sounding.yaml at the root of dir unless
--config names another file. Flags override file settings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runAnalyze(analyzeParams{
				ctx:         cmd.Context(),
				dir:         dir,
				format:      format,
				configPath:  configPath,
				parallel:    parallel,
				timeout:     timeout,
				extractor:   extractor,
				module:      module,
				maxIssues:   maxIssues,
				interactive: interactive,
				verbose:     verbose,
				stdout:      cmd.OutOrStdout(),
				stderr:      cmd.ErrOrStderr(),
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text, json, or markdown")
	cmd.Flags().StringVar(&configPath, "config", "",
		"path to the configuration file (default: <dir>/"+config.FileName+")")
	cmd.Flags().IntVar(&parallel, "parallel", 0,
		"modules analyzed concurrently (default: from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"per-module analysis timeout (default: from config)")
	cmd.Flags().StringVar(&extractor, "extractor", "",
		"fact extractor: auto, lexical, or treesitter (default: from config)")
	cmd.Flags().StringVar(&module, "module", "",
		"analyze only modules whose name contains this substring")
	cmd.Flags().IntVar(&maxIssues, "max-issues", 0,
		"fail if the total issue count exceeds this (0 = no limit)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"launch interactive TUI for browsing results")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"log per-module progress")

	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for sounding analysis output",
		Long: `Print the JSON Schema (Draft 2020-12) that documents the
structure of sounding analyze --format=json output. Useful for
validating output or generating client types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), report.Schema)
			return err
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default " + config.FileName + " configuration",
		Long: `Write a ` + config.FileName + ` holding the default settings into dir
(default: the current directory). An existing file is kept unless
--force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}
			_, err := scaffold.Run(scaffold.Options{
				TargetDir: dir,
				Force:     force,
				Version:   version,
				Stdout:    cmd.OutOrStdout(),
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false,
		"overwrite an existing configuration file")

	return cmd
}

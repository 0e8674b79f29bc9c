// Package engine drives the analyzers over a source tree: it discovers
// modules, analyzes them in parallel with a per-module deadline, and
// merges the results into one Report.
package engine

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/unbound-force/sounding/internal/aposd"
	"github.com/unbound-force/sounding/internal/config"
	"github.com/unbound-force/sounding/internal/connascence"
	"github.com/unbound-force/sounding/internal/facts"
	"github.com/unbound-force/sounding/internal/source"
	"github.com/unbound-force/sounding/internal/structure"
	"github.com/unbound-force/sounding/internal/taxonomy"
	"github.com/unbound-force/sounding/internal/temporal"
)

// Options configures Run.
type Options struct {
	// Config supplies every tunable. If nil, DefaultConfig() is used.
	Config *config.SoundingConfig

	// Logger receives per-module progress and warnings. If nil,
	// nothing is logged.
	Logger *charmlog.Logger

	// ModuleFilter keeps only modules whose name contains it.
	ModuleFilter string

	// Version is recorded in the report metadata.
	Version string
}

// ModuleResult holds everything computed for one module.
type ModuleResult struct {
	Name     string                 `json:"name"`
	Dir      string                 `json:"dir"`
	Language string                 `json:"language"`
	Files    int                    `json:"files"`
	Counts   aposd.StructuralCounts `json:"counts"`

	// APOSD is nil for languages the depth scorer does not parse.
	APOSD       *aposd.ModuleScore    `json:"aposd,omitempty"`
	Connascence *connascence.Analyzer `json:"connascence"`
	Temporal    *temporal.Analyzer    `json:"temporal"`

	Warnings []string `json:"warnings,omitempty"`
}

// Summary holds the project-wide figures.
type Summary struct {
	Modules int `json:"modules"`

	APOSD                aposd.IssueCounts `json:"aposd"`
	AverageDepthRatio    *float64          `json:"average_depth_ratio"`
	AverageCognitiveLoad float64           `json:"average_cognitive_load"`

	ConnascenceTotal           int     `json:"connascence_total"`
	ConnascenceAverageStrength float64 `json:"connascence_average_strength"`
	ConnascenceHighStrength    int     `json:"connascence_high_strength"`

	TemporalIssues       int `json:"temporal_issues"`
	TemporalHighSeverity int `json:"temporal_high_severity"`

	// TotalIssues is the CI gate figure: APOSD issues, high-strength
	// connascence and counted temporal issues.
	TotalIssues int `json:"total_issues"`
}

// Metadata describes the run.
type Metadata struct {
	SoundingVersion string       `json:"sounding_version"`
	GoVersion       string       `json:"go_version"`
	Extractor       string       `json:"extractor"`
	DurationMS      int64        `json:"duration_ms"`
	Cache           source.Stats `json:"cache"`
}

// Report is the merged result of a run.
type Report struct {
	Root        string             `json:"root"`
	Modules     []ModuleResult     `json:"modules"`
	APOSD       *aposd.Analysis    `json:"aposd"`
	Connascence connascence.Stats  `json:"connascence"`
	Findings    []taxonomy.Finding `json:"findings"`
	Summary     Summary            `json:"summary"`
	Warnings    []string           `json:"warnings"`
	Metadata    Metadata           `json:"metadata"`
}

// runner carries the shared state of one Run.
type runner struct {
	root     string
	cfg      *config.SoundingConfig
	logger   *charmlog.Logger
	reader   *source.Reader
	registry *facts.Registry
	aposd    aposd.Options

	// workers tracks module goroutines, including those abandoned on
	// timeout, so the registry outlives every extractor call.
	workers sync.WaitGroup
}

// Run analyzes the tree at root. Modules are analyzed concurrently,
// at most cfg.Engine.Parallelism at a time. A module that fails or
// exceeds cfg.Engine.ModuleTimeout keeps zero metrics and a warning;
// the others are unaffected. Run fails only when discovery fails or
// ctx is done.
func Run(ctx context.Context, root string, opts Options) (*Report, error) {
	start := time.Now()

	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	reader, err := source.NewReader(cfg.Engine.CacheSize)
	if err != nil {
		return nil, err
	}
	registry, err := facts.NewRegistry(facts.Mode(cfg.Facts.Mode))
	if err != nil {
		return nil, err
	}

	r := &runner{
		root:     absRoot,
		cfg:      cfg,
		logger:   logger,
		reader:   reader,
		registry: registry,
		aposd: aposd.Options{
			Idioms: aposd.IdiomPolicy{
				Builtin:  cfg.APOSD.ExcludeIdioms,
				Prefixes: cfg.APOSD.ExcludePrefixes,
				Methods:  cfg.APOSD.ExcludeMethods,
			},
			HotspotThreshold: cfg.APOSD.HotspotThreshold,
			HotspotTop:       cfg.APOSD.HotspotTop,
		},
	}
	defer func() {
		r.workers.Wait()
		registry.Close()
	}()

	modules, err := structure.Discover(ctx, absRoot, structure.Options{Config: cfg, Reader: reader})
	if err != nil {
		return nil, err
	}
	if opts.ModuleFilter != "" {
		modules = filterModules(modules, opts.ModuleFilter)
		if len(modules) == 0 {
			return nil, fmt.Errorf("no module matches %q: %w", opts.ModuleFilter, structure.ErrNoModules)
		}
	}
	logger.Debug("discovered modules", "count", len(modules), "root", absRoot)

	results := make([]ModuleResult, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Engine.Parallelism)
	for i, m := range modules {
		g.Go(func() error {
			results[i] = r.analyzeModule(gctx, m)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	rpt := merge(absRoot, results)
	rpt.Metadata = Metadata{
		SoundingVersion: opts.Version,
		GoVersion:       runtime.Version(),
		Extractor:       cfg.Facts.Mode,
		DurationMS:      time.Since(start).Milliseconds(),
		Cache:           reader.Stats(),
	}
	return rpt, nil
}

func nopLogger() *charmlog.Logger {
	return charmlog.New(io.Discard)
}

func filterModules(modules []structure.Module, substr string) []structure.Module {
	var out []structure.Module
	for _, m := range modules {
		if strings.Contains(m.Name, substr) {
			out = append(out, m)
		}
	}
	return out
}

// analyzeModule runs one module under its deadline. On timeout the
// partial work is discarded.
func (r *runner) analyzeModule(ctx context.Context, m structure.Module) ModuleResult {
	if timeout := r.cfg.Engine.ModuleTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan ModuleResult, 1)
	r.workers.Add(1)
	go func() {
		defer r.workers.Done()
		done <- r.score(ctx, m)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return r.abandoned(m, ctx.Err())
	}
}

// abandoned returns the zero-metric result of a module whose deadline
// passed.
func (r *runner) abandoned(m structure.Module, err error) ModuleResult {
	r.logger.Warn("module analysis abandoned", "module", m.Name, "err", err)
	res := r.empty(m)
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s: analysis abandoned: %v", m.Name, err))
	return res
}

// empty returns a result with zero metrics for m.
func (r *runner) empty(m structure.Module) ModuleResult {
	res := ModuleResult{
		Name:        m.Name,
		Dir:         m.Dir,
		Language:    m.Language,
		Files:       len(m.Files),
		Counts:      m.Counts,
		Connascence: connascence.NewAnalyzer(),
		Temporal:    temporal.NewAnalyzer(),
	}
	res.Connascence.SetModule(m.Name)
	res.Temporal.SetModule(m.Name)
	if m.Language == facts.LangGo {
		res.APOSD = aposd.ScoreModule(m.Name, nil, aposd.StructuralCounts{}, r.aposd)
	}
	return res
}

// score reads, scores and extracts facts for every file of m.
func (r *runner) score(ctx context.Context, m structure.Module) ModuleResult {
	res := r.empty(m)
	r.logger.Debug("analyzing module", "module", m.Name, "files", len(m.Files))

	units := make([]aposd.SourceUnit, 0, len(m.Files))
	for _, p := range m.Files {
		if err := ctx.Err(); err != nil {
			return r.abandoned(m, err)
		}
		rel := r.rel(p)

		src, err := r.reader.Read(p)
		if err != nil {
			res.warn(r.logger, rel, err)
			continue
		}
		units = append(units, aposd.SourceUnit{Path: p, Src: src})

		ext, err := r.registry.ForPath(p)
		if err != nil {
			res.warn(r.logger, rel, err)
			continue
		}
		f, err := ext.Extract(p, src)
		if err != nil {
			res.warn(r.logger, rel, err)
			continue
		}
		facts.Feed(f, res.Temporal, res.Connascence)
	}

	if m.Language == facts.LangGo {
		res.APOSD = aposd.ScoreModule(m.Name, units, m.Counts, r.aposd)
		for _, err := range res.APOSD.Errors {
			res.warn(r.logger, m.Name, err)
		}
	}
	res.Temporal.Analyze()
	return res
}

func (res *ModuleResult) warn(logger *charmlog.Logger, where string, err error) {
	logger.Warn("skipping unit", "module", res.Name, "unit", where, "err", err)
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", where, err))
}

func (r *runner) rel(p string) string {
	if rel, err := filepath.Rel(r.root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

// merge folds the module results into a Report.
func merge(root string, results []ModuleResult) *Report {
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	rpt := &Report{
		Root:        root,
		Modules:     results,
		APOSD:       aposd.NewAnalysis(),
		Connascence: connascence.Stats{ByType: make(map[connascence.Kind]int)},
		Findings:    []taxonomy.Finding{},
		Warnings:    []string{},
	}

	for _, res := range results {
		if res.APOSD != nil {
			rpt.APOSD.Add(res.APOSD)
		}
		rpt.Connascence.Merge(res.Connascence.Stats)
		rpt.Summary.ConnascenceHighStrength += len(res.Connascence.HighStrengthInstances())
		rpt.Summary.TemporalIssues += res.Temporal.Stats.TotalIssues
		rpt.Summary.TemporalHighSeverity += len(res.Temporal.HighSeverityInstances())
		rpt.Warnings = append(rpt.Warnings, res.Warnings...)
	}

	rpt.Findings = append(rpt.Findings, aposdFindings(rpt.APOSD)...)
	for _, res := range results {
		rpt.Findings = append(rpt.Findings, connascenceFindings(res)...)
		rpt.Findings = append(rpt.Findings, temporalFindings(res)...)
	}
	sortFindings(rpt.Findings)

	s := &rpt.Summary
	s.Modules = len(results)
	s.APOSD = rpt.APOSD.IssueCounts()
	if avg, ok := rpt.APOSD.AverageDepthRatio(); ok {
		s.AverageDepthRatio = &avg
	}
	s.AverageCognitiveLoad = rpt.APOSD.AverageCognitiveLoad()
	s.ConnascenceTotal = rpt.Connascence.Total
	s.ConnascenceAverageStrength = rpt.Connascence.AverageStrength()
	s.TotalIssues = s.APOSD.Total() + s.ConnascenceHighStrength + s.TemporalIssues
	return rpt
}

// Module returns the result for the named module.
func (r *Report) Module(name string) (ModuleResult, bool) {
	i := sort.Search(len(r.Modules), func(i int) bool { return r.Modules[i].Name >= name })
	if i < len(r.Modules) && r.Modules[i].Name == name {
		return r.Modules[i], true
	}
	return ModuleResult{}, false
}

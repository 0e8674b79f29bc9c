package engine

import (
	"context"

	"github.com/unbound-force/sounding/internal/config"
	"github.com/unbound-force/sounding/internal/facts"
	"github.com/unbound-force/sounding/internal/source"
	"github.com/unbound-force/sounding/internal/structure"
)

// AnalyzeModule is exported for testing. It runs one module through
// analyzeModule with a fresh reader and registry.
func AnalyzeModule(ctx context.Context, root string, m structure.Module, cfg *config.SoundingConfig) ModuleResult {
	reader, _ := source.NewReader(cfg.Engine.CacheSize)
	registry, _ := facts.NewRegistry(facts.Mode(cfg.Facts.Mode))
	r := &runner{root: root, cfg: cfg, logger: nopLogger(), reader: reader, registry: registry}
	defer func() {
		r.workers.Wait()
		registry.Close()
	}()
	return r.analyzeModule(ctx, m)
}

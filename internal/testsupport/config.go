package testsupport

import (
	"path/filepath"
	"testing"

	"folio/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkspaceDir = base
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Registry.Path = filepath.Join(base, "registry.json")
	cfgVal.Ledger.Path = filepath.Join(base, "ledger.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTitleMatchMinScore overrides the fuzzy title threshold on the test config.
func WithTitleMatchMinScore(score float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Registry.TitleMatchMinScore = score
	}
}

// WithPipeline tunes the scheduler sizing on the test config.
func WithPipeline(workers, queueCapacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Workers = workers
		b.cfg.Pipeline.QueueCapacity = queueCapacity
	}
}

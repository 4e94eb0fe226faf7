package testsupport

import (
	"path/filepath"
	"testing"

	"plugscan/internal/config"
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
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = "test"
	cfgVal.Commerce.APIKey = "test"

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

// WithQuota overrides a single per-service daily ceiling on the test config.
func WithQuota(service string, limit int) ConfigOption {
	return func(b *configBuilder) {
		switch service {
		case "stt":
			b.cfg.Quota.STTDaily = limit
		case "llm":
			b.cfg.Quota.LLMDaily = limit
		case "vision":
			b.cfg.Quota.VisionDaily = limit
		case "commerce":
			b.cfg.Quota.CommerceDaily = limit
		default:
			b.t.Fatalf("unknown quota service %q", service)
		}
	}
}

// WithWindowConcurrency overrides the per-video window concurrency ceiling.
func WithWindowConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.WindowConcurrency = n
	}
}

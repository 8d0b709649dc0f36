package approval

import (
	"github.com/viant/approval/service/scheduler"
)

// Config is a serialisable representation of the runtime configuration. It
// can be populated from JSON or YAML; the zero-value is useful - all nested
// fields inherit their package defaults.
type Config struct {
	Store     StoreConfig       `json:"store" yaml:"store"`
	Scheduler *scheduler.Config `json:"scheduler,omitempty" yaml:"scheduler,omitempty"`
	// SchedulerConfigURL points at a standalone scheduler YAML file; it is
	// consulted only when Scheduler is nil.
	SchedulerConfigURL string        `json:"schedulerConfigURL,omitempty" yaml:"scheduler_config_url,omitempty"`
	Tracing            TracingConfig `json:"tracing" yaml:"tracing"`
}

// StoreConfig selects where records live. An empty BaseURL keeps everything
// in memory; otherwise records are persisted as JSON documents under the
// URL, using any scheme afs understands (file, mem, s3, gs).
type StoreConfig struct {
	BaseURL string `json:"baseURL,omitempty" yaml:"base_url,omitempty"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// OutputFile receives exported spans; empty means stdout.
	OutputFile string `json:"outputFile,omitempty" yaml:"output_file,omitempty"`
}

// DefaultConfig returns a Config with in-memory stores, the built-in
// schedule and tracing off.
func DefaultConfig() *Config {
	return &Config{}
}

// Validate reports invalid settings.
func (c *Config) Validate() error {
	if c == nil || c.Scheduler == nil {
		return nil
	}
	return c.Scheduler.Validate()
}

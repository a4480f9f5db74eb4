// Package config loads stagegen settings from stagegen.toml files and
// STAGEGEN_* environment variables with Viper.
package config

// Config is the stagegen configuration.
type Config struct {
	Generate GenerateConfig `mapstructure:"generate" toml:"generate"`
	Runtime  RuntimeConfig  `mapstructure:"runtime" toml:"runtime"`
	Watch    WatchConfig    `mapstructure:"watch" toml:"watch"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// GenerateConfig configures generation passes
type GenerateConfig struct {
	ErrorPolicy     string   `mapstructure:"error_policy" toml:"error_policy"`         // abort or continue
	PropagateErrors bool     `mapstructure:"propagate_errors" toml:"propagate_errors"` // fail the command on the first faulted pass
	Diagnostics     bool     `mapstructure:"diagnostics" toml:"diagnostics"`
	Concurrency     int      `mapstructure:"concurrency" toml:"concurrency"` // packages generated in parallel (0 = GOMAXPROCS)
	OutputSuffix    string   `mapstructure:"output_suffix" toml:"output_suffix"`
	BuildFlags      []string `mapstructure:"build_flags" toml:"build_flags"`
}

// RuntimeConfig names the module generated code depends on. An empty
// Module disables the check.
type RuntimeConfig struct {
	Module     string `mapstructure:"module" toml:"module"`
	Constraint string `mapstructure:"constraint" toml:"constraint"` // semver constraint, e.g. ">= 1.2"
}

// WatchConfig configures `stagegen watch`
type WatchConfig struct {
	DebounceMS       int `mapstructure:"debounce_ms" toml:"debounce_ms"`
	MaxRunsPerMinute int `mapstructure:"max_runs_per_minute" toml:"max_runs_per_minute"` // 0 = unlimited
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON      bool `mapstructure:"json" toml:"json"`
	Verbosity int  `mapstructure:"verbosity" toml:"verbosity"`
}

// File and directory names
const (
	ProjectFile = "stagegen.toml"
	UserDir     = ".stagegen"
	UserFile    = "config.toml"
	EnvPrefix   = "STAGEGEN"

	DefaultFilePermissions = 0o644
	DefaultDirPermissions  = 0o755
)

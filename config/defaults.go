package config

import (
	"github.com/spf13/viper"
	"github.com/teranos/stagegen/errors"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("generate.error_policy", "abort")
	v.SetDefault("generate.propagate_errors", false)
	v.SetDefault("generate.diagnostics", true)
	v.SetDefault("generate.concurrency", 0)
	v.SetDefault("generate.output_suffix", ".gen.go")
	v.SetDefault("generate.build_flags", []string{})

	v.SetDefault("runtime.module", "")
	v.SetDefault("runtime.constraint", "")

	v.SetDefault("watch.debounce_ms", 300) // editors write in bursts
	v.SetDefault("watch.max_runs_per_minute", 60)

	v.SetDefault("log.json", false)
	v.SetDefault("log.verbosity", 0)
}

// Default returns the configuration made of defaults only.
func Default() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal defaults")
	}
	return &cfg, nil
}

package config

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/pass"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := pass.ParseErrorPolicy(c.Generate.ErrorPolicy); err != nil {
		return errors.Wrap(err, "generate.error_policy")
	}

	// 0 means one worker per CPU
	if c.Generate.Concurrency < 0 {
		return errors.Newf("generate.concurrency must be >= 0, got %d", c.Generate.Concurrency)
	}

	if !strings.HasSuffix(c.Generate.OutputSuffix, ".go") {
		return errors.Newf("generate.output_suffix must end in .go, got %q", c.Generate.OutputSuffix)
	}

	if c.Runtime.Constraint != "" {
		if c.Runtime.Module == "" {
			return errors.New("runtime.constraint is set but runtime.module is empty")
		}
		if _, err := semver.NewConstraint(c.Runtime.Constraint); err != nil {
			return errors.Wrapf(err, "runtime.constraint %q", c.Runtime.Constraint)
		}
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}

	if c.Watch.MaxRunsPerMinute < 0 {
		return errors.Newf("watch.max_runs_per_minute must be >= 0, got %d", c.Watch.MaxRunsPerMinute)
	}

	if c.Log.Verbosity < 0 {
		return errors.Newf("log.verbosity must be >= 0, got %d", c.Log.Verbosity)
	}
	return nil
}

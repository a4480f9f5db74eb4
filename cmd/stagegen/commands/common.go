package commands

import (
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/stagegen/config"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/generators/enumstr"
	"github.com/teranos/stagegen/internal/driver"
	"github.com/teranos/stagegen/pass"
)

// LoadConfig loads the configuration for cmd: the file named by --config
// when given, the usual cascade otherwise. Generation flags set on cmd
// override the loaded values.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	// Work on a copy; config.Load caches its result
	out := *cfg
	out.Generate.BuildFlags = append([]string(nil), cfg.Generate.BuildFlags...)
	if err := applyGenerateFlags(cmd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// addGenerateFlags registers the flags shared by run, check and watch.
func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("dir", "C", ".", "Directory the package patterns are resolved in")
	cmd.Flags().String("policy", "", "Candidate failure policy: abort or continue")
	cmd.Flags().Bool("propagate", false, "Stop at the first faulted pass")
	cmd.Flags().IntP("concurrency", "j", 0, "Packages generated in parallel (0 = one per CPU)")
	cmd.Flags().Bool("no-diagnostics", false, "Do not report diagnostics")
	cmd.Flags().String("build-flags", "", "Extra build flags for loading packages, quoted like a shell command line")
}

func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Lookup("policy") == nil {
		return nil
	}
	if flags.Changed("policy") {
		cfg.Generate.ErrorPolicy, _ = flags.GetString("policy")
	}
	if flags.Changed("propagate") {
		cfg.Generate.PropagateErrors, _ = flags.GetBool("propagate")
	}
	if flags.Changed("concurrency") {
		cfg.Generate.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("no-diagnostics") {
		off, _ := flags.GetBool("no-diagnostics")
		cfg.Generate.Diagnostics = !off
	}
	if flags.Changed("build-flags") {
		line, _ := flags.GetString("build-flags")
		extra, err := shellquote.Split(line)
		if err != nil {
			return errors.Wrapf(err, "invalid --build-flags %q", line)
		}
		cfg.Generate.BuildFlags = append(cfg.Generate.BuildFlags, extra...)
	}
	return cfg.Validate()
}

// newDriver creates the driver for the built-in generators.
func newDriver(cfg *config.Config, opts ...pass.Option) (*driver.Driver, error) {
	return driver.New(cfg, enumstr.New(), opts...)
}

// report prints one line per outcome plus its diagnostics and returns an
// error when any pass faulted.
func report(outcomes []driver.Outcome) error {
	faulted := 0
	for _, o := range outcomes {
		switch {
		case o.Result == nil:
			faulted++
			pterm.Error.Printfln("%s: %v", o.Target.Path, o.Err)
			continue
		case o.OK():
			pterm.Success.Printfln("%s: %d artifacts, %d candidates (%s)",
				o.Target.Path, len(o.Result.Artifacts), o.Result.Candidates, o.Result.Duration.Round(time.Millisecond))
		default:
			faulted++
			pterm.Error.Printfln("%s: pass %s", o.Target.Path, o.Result.State)
		}
		for _, d := range o.Result.Diagnostics {
			if d.Severity == pass.SeverityError {
				pterm.Error.Printfln("  %s", d)
			} else {
				pterm.Warning.Printfln("  %s", d)
			}
		}
	}
	if faulted > 0 {
		return errors.Newf("%d of %d passes faulted", faulted, len(outcomes))
	}
	return nil
}

package commands

import (
	"context"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/stagegen/internal/driver"
)

// RunCmd generates code for the packages matching its patterns
var RunCmd = &cobra.Command{
	Use:   "run [packages]",
	Short: "Generate code for Go packages",
	Long: `Run one generation pass per package and write the generated files
next to the package sources.

Patterns are go/packages patterns resolved in --dir and default to ".".
Generated files that are no longer produced are removed.

Examples:
  stagegen run                    # Current package
  stagegen run ./...              # Every package below the current directory
  stagegen run -j 4 --policy continue ./internal/...
  stagegen run --dry-run ./...    # List what would be written`,
	RunE: runRun,
}

func init() {
	addGenerateFlags(RunCmd)
	RunCmd.Flags().Bool("dry-run", false, "Generate without writing files")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	d, err := newDriver(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	outcomes, err := generateAll(commandContext(cmd), d, dir, args)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return nil
	}

	if dryRun {
		pterm.Warning.Println("DRY RUN MODE: no files will be written")
		for _, o := range outcomes {
			if !o.OK() {
				continue
			}
			for _, a := range o.Result.Artifacts {
				pterm.Printfln("  %s", filepath.Join(o.Target.Dir, a.Name))
			}
		}
		return report(outcomes)
	}

	written, werr := driver.Write(outcomes, cfg.Generate.OutputSuffix, nil)
	rerr := report(outcomes)
	if werr != nil {
		return werr
	}
	pterm.Info.Printfln("%d files written", len(written))
	return rerr
}

// generateAll expands patterns and runs a pass over every package behind a
// spinner. A nil slice with a nil error means no package matched.
func generateAll(ctx context.Context, d *driver.Driver, dir string, patterns []string) ([]driver.Outcome, error) {
	targets, err := d.Expand(ctx, dir, patterns...)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		pterm.Warning.Println("No Go packages matched")
		return nil, nil
	}

	spinner, _ := pterm.DefaultSpinner.Start("Generating ", len(targets), " packages...")
	outcomes, err := d.Generate(ctx, targets)
	if spinner != nil {
		if err != nil {
			spinner.Fail(err.Error())
		} else {
			_ = spinner.Stop()
		}
	}
	// A propagated pass error is also recorded on its outcome and shown by report
	return outcomes, nil
}

package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/internal/driver"
)

// CheckCmd verifies that generated files are up to date
var CheckCmd = &cobra.Command{
	Use:   "check [packages]",
	Short: "Check that generated files are up to date",
	Long: `Generate in memory and compare the result with the files on disk.
Nothing is written. Exits with an error when a generated file is missing,
differs, or is no longer produced.

This is intended for CI/CD pipelines to ensure generated code is committed.`,
	RunE: runCheck,
}

func init() {
	addGenerateFlags(CheckCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")

	d, err := newDriver(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	outcomes, err := generateAll(commandContext(cmd), d, dir, args)
	if err != nil {
		return err
	}
	if err := report(outcomes); err != nil {
		return err
	}

	drift, err := driver.Check(outcomes, cfg.Generate.OutputSuffix)
	if err != nil {
		return err
	}
	if len(drift) > 0 {
		pterm.Println()
		for _, df := range drift {
			pterm.Warning.Println(df.String())
		}
		return errors.WithHint(
			errors.Newf("%d generated files are out of date", len(drift)),
			"run 'stagegen run' and commit the result")
	}

	pterm.Success.Println("Generated files are up to date")
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/teranos/stagegen/cmd/stagegen/commands"
	"github.com/teranos/stagegen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "stagegen",
	Short: "stagegen - staged code generation for Go packages",
	Long: `stagegen - staged code generation for Go packages.

stagegen loads a Go package, selects declarations through ordered filter
groups and generates code for them. Output of earlier groups is folded back
into the package model, so later groups see the code generated before them.

Declarations opt in with directives:

  //stagegen:enum       String method and Values function for a constant set
  //stagegen:describe   Describe method, needs a String method
  //stagegen:validate   Valid method, needs a Values function

Available commands:
  run     - Generate code and write it next to the sources
  check   - Verify that generated files are up to date
  watch   - Regenerate when sources change
  config  - Manage stagegen configuration
  version - Show version information

Examples:
  stagegen run ./...          # Generate for every package
  stagegen check ./...        # Fail when generated code is stale
  stagegen watch ./internal/...`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")

		// These must work with a broken configuration
		switch cmd.Name() {
		case "init", "version", "where":
			return logger.Initialize(false, verbosity)
		}

		cfg, err := commands.LoadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Log.Verbosity > verbosity {
			verbosity = cfg.Log.Verbosity
		}
		if err := logger.Initialize(cfg.Log.JSON, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().String("config", "", "Configuration file (skips the usual lookup)")

	// Add commands
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/stagegen/config"
	"github.com/teranos/stagegen/errors"
	"gopkg.in/yaml.v3"
)

// ConfigCmd manages stagegen configuration
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stagegen configuration",
	Long: `Display and manage stagegen configuration.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (STAGEGEN_* prefix)
3. Project config (./stagegen.toml, searched up from the current directory)
4. User config (~/.stagegen/config.toml)
5. Default values

Examples:
  stagegen config init                 # Write stagegen.toml with defaults
  stagegen config show --format json   # Show the effective configuration
  stagegen config where                # List the files that were checked`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with default values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	RunE:  runConfigValidate,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runConfigWhere,
}

var (
	configFormat string
	configForce  bool
)

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file (a backup is kept)")
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ProjectFile
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.WriteDefault(path, configForce); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %s", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	out, err := renderConfig(cfg, configFormat)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// renderConfig formats cfg for display.
func renderConfig(cfg *config.Config, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal config to JSON")
		}
		return string(data) + "\n", nil

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal config to YAML")
		}
		return "# stagegen configuration\n" + string(data), nil

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return "", errors.Wrap(err, "failed to marshal config to TOML")
		}
		return "# stagegen configuration\n" + string(data), nil

	default:
		return "", errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")
	fmt.Printf("  2. [USER]     ~/%s\n", filepath.Join(config.UserDir, config.UserFile))
	fmt.Printf("  3. [PROJECT]  ./%s (searches up directories)\n", config.ProjectFile)
	fmt.Printf("  4. [ENV]      %s_* environment variables\n", config.EnvPrefix)
	fmt.Println()

	files := config.ConfigFiles()
	if len(files) == 0 {
		pterm.Info.Println("No configuration files found, using defaults")
		return nil
	}
	pterm.Info.Println("Loaded files:")
	for _, f := range files {
		pterm.Printfln("  %s", f)
	}
	return nil
}

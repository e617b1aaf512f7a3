package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stickerdl/pkg/config"
	"stickerdl/pkg/ui"
)

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage stickerdl configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - STICKERDL_* environment variables (a .env file is loaded too)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file holding every option with its default value.

The file goes to the --config path, or to config.yaml in the user
configuration directory.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout(), !noColor).PrintSuccess("Configuration written to %s", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(configFile, flagOverrides(cmd)); err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout(), !noColor).PrintSuccess("Configuration is valid")
	return nil
}

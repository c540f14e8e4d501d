package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gdown/internal/logger"
	"github.com/glorpus-work/gdown/pkg/config"
	"github.com/glorpus-work/gdown/pkg/errors"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and modify gdown configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigGetCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current configuration settings",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	return cmd
}

// Number of arguments expected by the set command.
const setCommandArgs = 2

func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration key to a specific value",
		Args:  cobra.ExactArgs(setCommandArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Get a configuration value",
		Long:  "Get the value of a specific configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----")

	settingsMap := cfg.ToMap()
	for _, key := range config.Keys() {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", key, settingsMap[key])
	}

	return tabWriter.Flush()
}

func runConfigSet(key, value string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.SetValue(key, value); err != nil {
		return fmt.Errorf("failed to set configuration value: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to set configuration value: %w", err)
	}

	configPath := getConfigPath()
	if err := cfg.SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	logger.Success("Configuration updated", logger.Fields{"key": key, "value": value})
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	value, err := cfg.GetValue(key)
	if err != nil {
		return fmt.Errorf("failed to get configuration value: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigInit(force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s: %w", configPath, errors.ErrConfigFileExists)
	}

	defaultConfig := config.DefaultConfig()
	if err := defaultConfig.SaveConfig(configPath); err != nil {
		return fmt.Errorf("failed to save default configuration: %w", err)
	}

	logger.Success("Configuration file created", logger.Fields{"path": configPath})
	return nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes the load or save fail with a descriptive error.
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

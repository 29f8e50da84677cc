package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/framerec/pkg/config"
	"github.com/ssargent/framerec/pkg/di"
)

var container *di.Container

// SetContainer injects the dependency container. Commands build one from
// the loaded config when none was set.
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "frc",
	Short: "framerec - telemetry recording toolkit",
	Long: `framerec reads, writes, exports and archives .frc telemetry recordings.

A recording is a time ordered stream of typed values from named sources plus
event markers. Recordings can be summarized, dumped frame by frame, exported
to CSV, stored in a local archive and served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container != nil {
			return nil
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("could not configure logging: %w", err)
		}
		container = di.NewContainer(cfg, logger)
		return nil
	},
}

// loadConfig reads --config, or the default path when it exists, and
// applies the global flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := cmd.Flags().Changed("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	switch {
	case config.ConfigExists(path):
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("could not load config: %w", err)
		}
		cfg = loaded
	case explicit:
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Data directory for recordings and the archive")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/framerec/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default configuration to --config, or to the default path.

An existing file is left alone unless --force is given. With --api-key a
random key is generated for the server section.

Examples:
  frc init
  frc init --config ./framerec.yaml --data-dir /var/lib/framerec --api-key`,
	Args: cobra.NoArgs,
	// init runs before any config exists
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		force, _ := cmd.Flags().GetBool("force")
		withKey, _ := cmd.Flags().GetBool("api-key")
		dataDir := ""
		if cmd.Flags().Changed("data-dir") {
			dataDir, _ = cmd.Flags().GetString("data-dir")
		}

		if config.ConfigExists(path) && !force {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		cfg, err := config.BootstrapConfig(path, dataDir, withKey)
		if err != nil {
			return err
		}

		cmd.Printf("Wrote config to %s\n", path)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		if cfg.Server.APIKey != "" {
			cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("api-key", false, "Generate an API key for the server")
}

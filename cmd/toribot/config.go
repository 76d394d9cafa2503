package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"toribot/pkg/config"
)

var configOutPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a configuration file populated with the default values.

Examples:
  # Write toribot.yaml in the current directory
  toribot config init

  # Write to an explicit path
  toribot config init --output /etc/toribot/toribot.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configOutPath); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", configOutPath)
		}

		data, err := yaml.Marshal(config.DefaultConfig())
		if err != nil {
			return fmt.Errorf("rendering default config: %w", err)
		}

		if err := os.WriteFile(configOutPath, data, 0o600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Println("Wrote", configOutPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configOutPath, "output", "o", "toribot.yaml", "path of the file to write")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

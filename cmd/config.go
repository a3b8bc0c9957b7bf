package cmd

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Interact with the configuration",
	Long:  `Utilities for validating and viewing the LocalHub server configuration`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server configuration",
	Long:  "Decodes flags, environment and config file the same way 'serve' does and reports errors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadServerConfig(); err != nil {
			return logError(err, "", "configuration is invalid")
		}
		logSuccess("configuration is valid")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective server configuration",
	Long:  "Prints the configuration 'serve' would use as YAML. Client secrets are masked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig()
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		log.Debug().Msg("rendering effective config")
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

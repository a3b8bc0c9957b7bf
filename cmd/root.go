package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/darmiel/localhub/internal/buildinfo"
	"github.com/darmiel/localhub/internal/logging"
)

// global flags
var userConfig string

const (
	LogLevelKey   = "log.level"
	LogFormatKey  = "log.format"
	LogNoColorKey = "log.no_color"

	ServerAddrKey = "server"
	UserIDKey     = "user"

	defaultServerAddr = "http://localhost:3000"
)

var rootCmd = &cobra.Command{
	Use:   "localhub",
	Short: fmt.Sprintf("LocalHub backend (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `LocalHub is a small self-hosted backend for a personal dashboard.
It stores plugin documents per user on disk and connects users to
Google Calendar and Strava through OAuth.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initConfig()
		if err := logging.Init(
			viper.GetString(LogLevelKey),
			viper.GetString(LogFormatKey),
			viper.GetBool(LogNoColorKey),
		); err != nil {
			return err
		}
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var quiet BeQuietError
		if !errors.As(err, &quiet) {
			log.Error().Err(err).Msg("execution failed")
		}
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&userConfig, "config", "",
		"Configuration file (default is .localhub.yaml in the working directory or $HOME)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	bindFlag(rootCmd.PersistentFlags(), "log-level", LogLevelKey)

	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "Log format (console, json)")
	bindFlag(rootCmd.PersistentFlags(), "log-format", LogFormatKey)

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	bindFlag(rootCmd.PersistentFlags(), "no-color", LogNoColorKey)

	rootCmd.PersistentFlags().String("server", defaultServerAddr, "Address of the LocalHub server for client commands")
	bindFlag(rootCmd.PersistentFlags(), "server", ServerAddrKey)

	rootCmd.PersistentFlags().StringP("user", "u", "", "User id sent as X-User-Id (default is the user saved by 'localhub login')")
	bindFlag(rootCmd.PersistentFlags(), "user", UserIDKey)

	viper.SetEnvPrefix("LOCALHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func initConfig() (string, error) {
	// reads in config file and ENV variables if set.
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		// search order: current dir, $HOME, XDG config
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(config + "/localhub")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".localhub")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}

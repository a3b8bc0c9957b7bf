package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/darmiel/localhub/internal/cliconfig"
	"github.com/darmiel/localhub/pkg/client"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()

	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

// BeQuietError signals that the failure was already reported to the user.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "command failed"
}

// bindFlag binds the named flag of flags to a viper key.
func bindFlag(flags *pflag.FlagSet, name, key string) {
	_ = viper.BindPFlag(key, flags.Lookup(name))
}

func serverAddr() (string, error) {
	server := viper.GetString(ServerAddrKey)
	if server == "" {
		return "", fmt.Errorf("server address not configured, provide via --server or LOCALHUB_SERVER")
	}
	return server, nil
}

// getClient builds a client for the configured server. The user id comes from --user,
// then from the profile saved by 'localhub login'.
func getClient() (*client.Client, error) {
	server, err := serverAddr()
	if err != nil {
		return nil, err
	}

	userID := viper.GetString(UserIDKey)
	if userID == "" {
		cfg, err := cliconfig.Load()
		if err != nil {
			return nil, err
		}
		userID = cfg.UserFor(server)
	}

	return client.New(server, client.WithUserID(userID)), nil
}

// requireUser is getClient for commands that only make sense in a user scope.
func requireUser() (*client.Client, error) {
	cli, err := getClient()
	if err != nil {
		return nil, err
	}
	if cli.UserID() == "" {
		return nil, errors.New("no user selected, pass --user or run 'localhub login <user-id>'")
	}
	return cli, nil
}

func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlation)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf("%s %s", greenCheck, fmt.Sprintf(format, args...))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

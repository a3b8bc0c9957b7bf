package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/localhub/internal/cliconfig"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/pkg/client"
)

var loginCmd = &cobra.Command{
	Use:   "login <user-id>",
	Short: "Select the default user for a LocalHub server",
	Long: `LocalHub has no passwords: a user is an identifier sent with every request.
'login' checks that the server is reachable and remembers the user id for it,
so later commands do not need --user.`,
	Example: `  localhub login alice
  localhub --server http://nas:3000 login bob`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := strings.TrimSpace(args[0])
		if !ident.ValidUserID(userID) {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		server, err := serverAddr()
		if err != nil {
			return err
		}

		cli := client.New(server, client.WithUserID(userID))
		log.Info().Msgf("Checking server %q...", server)
		if _, correlation, err := cli.Health(cmd.Context()); err != nil {
			return logError(err, correlation, "server is not reachable")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.SetProfile(server, &cliconfig.Profile{UserID: userID}); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "could not save CLI config")
		}

		logSuccess("using user %s for %s", bold(userID), bold(server))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

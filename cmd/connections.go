package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/darmiel/localhub/pkg/client"
)

var providerNames = []string{client.ProviderGoogle, client.ProviderStrava}

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Show the OAuth connections of the selected user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := requireUser()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Provider", "Status", "Account"})
		for _, provider := range providerNames {
			info, correlation, err := cli.Connection(cmd.Context(), provider)
			if err != nil {
				return logError(err, correlation, "failed to get "+provider+" connection")
			}

			status := redCross + " not connected"
			if info.Connected {
				status = greenCheck + " connected"
			}
			account := info.Email
			if info.Athlete != nil {
				account = strings.TrimSpace(info.Athlete.Firstname + " " + info.Athlete.Lastname)
				if account == "" {
					account = info.Athlete.Username
				}
			}
			t.AppendRow(table.Row{bold(provider), status, account})
		}

		s := table.StyleRounded
		s.Format.Header = text.FormatDefault
		t.SetStyle(s)
		t.Render()
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:       "connect <google|strava>",
	Short:     "Print the authorization URL to connect a provider",
	Args:      cobra.ExactArgs(1),
	ValidArgs: providerNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := requireUser()
		if err != nil {
			return err
		}
		url, correlation, err := cli.AuthURL(cmd.Context(), args[0])
		if err != nil {
			return logError(err, correlation, "failed to get authorization URL")
		}
		fmt.Println(bold("Open this URL in a browser to connect " + args[0] + ":"))
		fmt.Println(url)
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:       "disconnect <google|strava>",
	Short:     "Forget the provider tokens of the selected user",
	Args:      cobra.ExactArgs(1),
	ValidArgs: providerNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := requireUser()
		if err != nil {
			return err
		}
		if correlation, err := cli.Disconnect(cmd.Context(), args[0]); err != nil {
			return logError(err, correlation, "failed to disconnect")
		}
		logSuccess("disconnected %s for %s", bold(args[0]), bold(cli.UserID()))
		return nil
	},
}

var trackedCmd = &cobra.Command{
	Use:   "tracked",
	Short: "List the calendar event ids tracked for the selected user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := requireUser()
		if err != nil {
			return err
		}
		ids, correlation, err := cli.TrackedEvents(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to get tracked events")
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(trackedCmd)
}

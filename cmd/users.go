package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List the users known to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		users, correlation, err := cli.ListUsers(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to list users")
		}
		if len(users) == 0 {
			log.Info().Msg("No users found")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"", "ID", "Name"})
		for _, u := range users {
			name := u.Name
			if name == "" {
				name = faint("(unnamed)")
			}
			id := truncate(u.ID, 64)
			if id == cli.UserID() {
				id = bold(id)
			}
			t.AppendRow(table.Row{u.Emoji, id, name})
		}

		s := table.StyleRounded
		s.Format.Header = text.FormatDefault
		t.SetStyle(s)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

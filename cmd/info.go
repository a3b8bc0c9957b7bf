package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/localhub/internal/buildinfo"
)

var infoRemoteFlag bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the LocalHub installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !infoRemoteFlag {
			return infoLocally(cmd, args)
		}
		return infoRemote(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&infoRemoteFlag, "remote", false, "Ask the server instead of this binary")
}

func infoRemote(cmd *cobra.Command, _ []string) error {
	cli, err := getClient()
	if err != nil {
		return err
	}
	log.Info().Msg("Fetching build info from server...")
	info, correlation, err := cli.Info(cmd.Context())
	if err != nil {
		return logError(err, correlation, "failed to get info from server")
	}
	health, correlation, err := cli.Health(cmd.Context())
	if err != nil {
		return logError(err, correlation, "failed to get health from server")
	}
	printInfo(info)
	fmt.Printf("  %s:     %s (%s)\n", faint("Health"), health.Status, health.Timestamp)
	return nil
}

func infoLocally(_ *cobra.Command, _ []string) error {
	log.Info().Msg("Showing local build info...")
	info := buildinfo.GetBuildInfo()
	printInfo(&info)
	return nil
}

func printInfo(info *buildinfo.Info) {
	fmt.Println(bold("\n── LocalHub Build Information ──"))
	fmt.Printf("  %s:    %s\n", faint("Version"), info.Version)
	fmt.Printf("  %s:     %s\n", faint("Commit"), info.CommitHash)
	fmt.Printf("  %s:      %s\n", faint("About"), info.About)
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/pkg/client"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Read and write plugin documents",
	Long: `Documents are addressed by plugin id and key. They are scoped to the selected
user (--user or 'localhub login'); without a user the shared scope is used.`,
}

var storeKeysCmd = &cobra.Command{
	Use:   "keys <plugin-id>",
	Short: "List the document keys of a plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		pluginID := args[0]
		keys, correlation, err := cli.ListKeys(cmd.Context(), pluginID)
		if err != nil {
			return logError(err, correlation, "failed to list keys")
		}
		if len(keys) == 0 {
			log.Info().Msgf("No documents for plugin %s", bold(pluginID))
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Plugin", "Key"})
		for _, key := range keys {
			t.AppendRow(table.Row{faint(pluginID), bold(key)})
		}
		s := table.StyleRounded
		s.Format.Header = text.FormatDefault
		t.SetStyle(s)
		t.Render()
		return nil
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get <plugin-id> <key>",
	Short: "Print a document as indented JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		value, correlation, err := cli.GetDocument(cmd.Context(), args[0], args[1])
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				log.Warn().Msgf("%s document %s/%s does not exist", redCross, args[0], args[1])
				return BeQuietError{}
			}
			return logError(err, correlation, "failed to get document")
		}
		return printValue(value)
	},
}

var storePutFile string

var storePutCmd = &cobra.Command{
	Use:   "put <plugin-id> <key> [json]",
	Short: "Replace a document",
	Long: `Replaces the document with the given JSON. The value is read from the third
argument, from --file, or from stdin when neither is given.`,
	Example: `  localhub store put runner settings '{"pace": 5}'
  cat plan.json | localhub store put runner plan`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		var raw []byte
		switch {
		case len(args) == 3:
			raw = []byte(args[2])
		case storePutFile != "":
			if raw, err = os.ReadFile(storePutFile); err != nil {
				return fmt.Errorf("reading %s: %w", storePutFile, err)
			}
		default:
			if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}
		value, err := core.ParseValue(raw)
		if err != nil {
			return fmt.Errorf("value is not valid JSON: %w", err)
		}

		stored, correlation, err := cli.PutDocument(cmd.Context(), args[0], args[1], value)
		if err != nil {
			return logError(err, correlation, "failed to write document")
		}
		logSuccess("stored %s/%s (%s)", args[0], args[1], stored.Kind())
		return nil
	},
}

func printValue(value core.Value) error {
	out, err := value.Indent()
	if err != nil {
		return fmt.Errorf("formatting document: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeKeysCmd)
	storeCmd.AddCommand(storeGetCmd)
	storeCmd.AddCommand(storePutCmd)

	storePutCmd.Flags().StringVarP(&storePutFile, "file", "f", "", "Read the document from a file")
}

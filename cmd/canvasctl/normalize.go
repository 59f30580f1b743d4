package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var normalizeOut string

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Upgrade a document to the current schema",
	Long: `Upgrade a canvas document to the current schema version and write it
back in canonical form. Missing ids, sizes and viewport fields are filled in
and dangling references are dropped.

Examples:
  canvasctl normalize canvas.json -w canvas.v2.json
  cat canvas.json | canvasctl normalize -`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeOut, "write", "w", "", "write to this file instead of stdout")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	doc, codec, upgraded, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}
	data, err := codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if upgraded {
		cmd.PrintErrf("normalized to schema version %d\n", doc.SchemaVersion)
	}
	if normalizeOut == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(normalizeOut, data, 0o600)
}

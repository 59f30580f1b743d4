package main

import (
	"github.com/spf13/cobra"

	"nodal/domain/versioning"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "List the notes, zones and connections that changed between two documents",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	from, _, _, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}
	to, _, _, err := readDocument(cmd, args[1])
	if err != nil {
		return err
	}
	diff, err := versioning.Diff(from, to)
	if err != nil {
		return err
	}
	return printValue(cmd.OutOrStdout(), diff)
}

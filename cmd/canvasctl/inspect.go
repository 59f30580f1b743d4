package main

import (
	"time"

	"github.com/spf13/cobra"

	"nodal/application/queries"
	"nodal/domain/core/valueobjects"
	"nodal/domain/versioning"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the zone tree and checksum of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

type inspection struct {
	Version *versioning.DocumentVersion `json:"version"`
	Tree    *queries.ZoneTree           `json:"tree"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	doc, _, _, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}
	version, err := versioning.NewDocumentVersion(valueobjects.WorkspaceID(args[0]), doc, time.Now())
	if err != nil {
		return err
	}
	return printValue(cmd.OutOrStdout(), inspection{Version: version, Tree: queries.BuildZoneTree(doc)})
}

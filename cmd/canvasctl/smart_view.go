package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nodal/application/services"
	"nodal/domain/core/valueobjects"
	"nodal/infrastructure/ai"
	"nodal/infrastructure/persistence/memory"
)

var (
	smartViewProvider string
	smartViewBaseURL  string
	smartViewModel    string
	smartViewRefresh  bool
	smartViewTimeout  time.Duration
)

var smartViewCmd = &cobra.Command{
	Use:   "smart-view <file>",
	Short: "Cluster the notes of a document",
	Long: `Embed the notes of a canvas document and print the Smart View
clusters and layout. Stored vectors are reused unless --refresh is given.

The echo provider hashes words locally and needs no model server.

Examples:
  canvasctl smart-view canvas.json
  canvasctl smart-view canvas.json --provider ollama --model nomic-embed-text`,
	Args: cobra.ExactArgs(1),
	RunE: runSmartView,
}

func init() {
	smartViewCmd.Flags().StringVar(&smartViewProvider, "provider", ai.ProviderEcho, "embedding provider: echo, ollama or openai")
	smartViewCmd.Flags().StringVar(&smartViewBaseURL, "base-url", "", "provider base URL")
	smartViewCmd.Flags().StringVar(&smartViewModel, "model", "", "embedding model")
	smartViewCmd.Flags().BoolVar(&smartViewRefresh, "refresh", false, "re-embed notes that already have a vector")
	smartViewCmd.Flags().DurationVar(&smartViewTimeout, "timeout", 2*time.Minute, "overall time limit")
	rootCmd.AddCommand(smartViewCmd)
}

func runSmartView(cmd *cobra.Command, args []string) error {
	doc, codec, _, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}
	rules, err := loadRules()
	if err != nil {
		return err
	}
	logger := newLogger()

	_, embedder, err := ai.NewProviders(ai.Config{
		Provider:   smartViewProvider,
		BaseURL:    smartViewBaseURL,
		EmbedModel: smartViewModel,
		Timeout:    smartViewTimeout,
	}, logger)
	if err != nil {
		return err
	}
	if embedder == nil {
		return fmt.Errorf("provider %q has no embedder", smartViewProvider)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), smartViewTimeout)
	defer cancel()

	const workspace = valueobjects.WorkspaceID("canvasctl")
	repo := memory.NewDocumentRepository(codec, logger)
	if err := repo.Save(ctx, workspace, doc); err != nil {
		return err
	}
	workspaces := services.NewWorkspaceService(repo, nil, nil, rules, logger, nil)
	result, err := services.NewSmartViewService(workspaces, embedder, logger, nil).
		Generate(ctx, workspace, services.SmartViewOptions{Refresh: smartViewRefresh})
	if err != nil {
		return err
	}
	return printValue(cmd.OutOrStdout(), result)
}

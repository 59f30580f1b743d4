package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	domainconfig "nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/infrastructure/config"
	"nodal/infrastructure/persistence/schema"
)

var (
	outputFormat string
	rulesFile    string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "canvasctl",
	Short: "Inspect and repair canvas documents",
	Long: `canvasctl reads canvas documents as exported by the API or stored by
any backend, upgrades them to the current schema and reports on them.

Files may be given as "-" to read standard input.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "canvas rules file (defaults built in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadRules() (*domainconfig.DomainConfig, error) {
	if rulesFile == "" {
		return domainconfig.DefaultDomainConfig(), nil
	}
	return config.LoadCanvasConfig(rulesFile, "")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// readDocument decodes and upgrades the document at path
func readDocument(cmd *cobra.Command, path string) (*aggregates.Document, *schema.Codec, bool, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, nil, false, err
	}
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	codec := schema.NewCodec(rules)
	doc, upgraded, err := codec.Decode(data)
	if err != nil {
		return nil, nil, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, codec, upgraded, nil
}

func printValue(w io.Writer, v interface{}) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round trip through JSON so the field names match the API.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/indexer"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

var indexDataDir string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from a document directory",
	Long: `Build (or rebuild) the persisted vector index from the documents
in a directory. The prior index stays intact until the new one is
complete, so in-flight queries are never served a partial index.

Examples:
  # Index the default data directory
  ragd index

  # Index a specific directory
  ragd index --data ./docs`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexDataDir, "data", "data", "directory containing the document corpus")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, logger, provider, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	metric, err := vectorstore.ParseMetric(cfg.Index.Metric)
	if err != nil {
		return err
	}

	builder := indexer.NewBuilder(
		document.NewDirSource(indexDataDir),
		provider,
		chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap),
		metric,
		cfg.Embeddings.Model,
		logger.Named("indexer"),
	)

	stats, err := builder.Build(cmd.Context(), cfg.Index.Path)
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d documents into %d chunks (dimension %d) at %s\n",
		stats.Documents, stats.Chunks, stats.Dimension, cfg.Index.Path)
	return nil
}

// Package main implements the ragd CLI, a thin driver wiring the indexer,
// retriever and answer generator together.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/logging"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragd",
	Short: "Retrieval-grounded question answering over your documents",
	Long: `ragd indexes a document corpus into a vector index and answers
questions grounded in the retrieved documents, citing its sources.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(feedbackCmd)
}

// setup loads .env, resolves configuration once and builds the logger
// and embedding provider shared by all commands.
func setup() (*config.Config, *zap.Logger, *embeddings.Service, error) {
	// Optional .env in the working directory, same precedence as the
	// process environment.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating logger: %w", err)
	}

	provider, err := embeddings.NewService(embeddings.Config{
		BaseURL:   cfg.Embeddings.BaseURL,
		Model:     cfg.Embeddings.Model,
		APIKey:    cfg.Embeddings.APIKey,
		RateLimit: cfg.Embeddings.RateLimit,
	}, logger.Named("embeddings"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	return cfg, logger, provider, nil
}

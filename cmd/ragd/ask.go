package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragd/internal/answer"
	"github.com/fyrsmithlabs/ragd/internal/feedback"
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/reranker"
	"github.com/fyrsmithlabs/ragd/internal/retriever"
)

var (
	askNoRerank bool
	askFeedback string
	askComment  string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the indexed documents",
	Long: `Ask a question. The answer is grounded in retrieved document
chunks and cites its sources. When no relevant evidence exists the
fixed refusal string is printed instead of a fabricated answer.

Examples:
  ragd ask "How often should the pump be lubricated?"
  ragd ask --no-rerank "What does error E42 mean?"
  ragd ask --feedback helpful "Where is the fuse box?"
  ragd ask --feedback unhelpful --comment "wrong manual" "Where is the fuse box?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoRerank, "no-rerank", false, "skip the reranking stage")
	askCmd.Flags().StringVar(&askFeedback, "feedback", "", `record the outcome to the feedback log: "helpful" or "unhelpful"`)
	askCmd.Flags().StringVar(&askComment, "comment", "", "free-text comment stored with --feedback")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askFeedback != "" {
		if _, err := parseVerdict(askFeedback); err != nil {
			return err
		}
	}

	cfg, logger, provider, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	generator, err := answer.NewGenerator(answer.GeneratorConfig{
		BaseURL:     cfg.Generation.BaseURL,
		APIKey:      cfg.Generation.APIKey,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     cfg.Generation.Timeout,
		AppName:     cfg.Generation.AppName,
	}, logger.Named("answer"))
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	cache := retriever.NewCache(cfg.Index.Path, provider, cfg.Embeddings.Model, logger.Named("retriever"))

	rerankEnabled := cfg.Retrieval.RerankEnabled && !askNoRerank
	service, err := rag.NewService(cache, reranker.NewTermOverlap(), generator, rag.Options{
		TopKRetrieval: cfg.Retrieval.TopKRetrieval,
		TopKRerank:    cfg.Retrieval.TopKRerank,
		RerankEnabled: rerankEnabled,
	}, logger.Named("rag"))
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	question := strings.Join(args, " ")
	result, err := service.Ask(cmd.Context(), question)
	if err != nil {
		var queryErr *rag.QueryError
		if errors.As(err, &queryErr) {
			return fmt.Errorf("query failed (stage: %s): %w", queryErr.Stage, queryErr.Err)
		}
		return err
	}

	fmt.Println(result.Text)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range result.Sources {
			fmt.Printf("  [%d] %s (score %.4f)\n", i+1, src.Chunk.DocName, src.Score)
		}
	}

	if askFeedback != "" {
		record, err := feedbackRecord(askFeedback, askComment, question, generator.Model(), result)
		if err != nil {
			return err
		}
		if err := feedback.NewLogger(cfg.Feedback.Path).Log(record); err != nil {
			return fmt.Errorf("recording feedback: %w", err)
		}
	}
	return nil
}

// parseVerdict maps the --feedback flag value to the helpful flag.
func parseVerdict(verdict string) (bool, error) {
	switch verdict {
	case "helpful":
		return true, nil
	case "unhelpful":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --feedback value %q: use \"helpful\" or \"unhelpful\"", verdict)
	}
}

// feedbackRecord builds the feedback entry for a completed query,
// carrying the answer, the generation model and the grounding sources.
func feedbackRecord(verdict, comment, question, model string, result *rag.Answer) (feedback.Record, error) {
	helpful, err := parseVerdict(verdict)
	if err != nil {
		return feedback.Record{}, err
	}
	return feedback.Record{
		Question: question,
		Answer:   result.Text,
		Helpful:  helpful,
		Comment:  comment,
		Model:    model,
		Docs:     feedback.DocsFromCandidates(result.Sources),
	}, nil
}

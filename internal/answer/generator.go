package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Refusal is the fixed string returned when no grounding evidence exists
// or the model produced no content. It is a designed outcome, distinct
// from pipeline failure.
const Refusal = "no answer found in the available documents"

// systemPrompt pins the model to the supplied context. It mandates a
// source citation and the exact refusal string so downstream consumers
// can tell refusal from failure.
const systemPrompt = "You are a technical support assistant. Answer the user's question using ONLY the documents provided below.\n" +
	"Never use outside knowledge, never speculate, and never editorialize.\n" +
	"End your answer with the document reference you used, in the form [Source: document name].\n" +
	"If the answer is not contained in the provided documents, reply exactly: \"" + Refusal + "\"."

// maxErrorBody bounds the diagnostic payload carried by GenerationError.
const maxErrorBody = 2048

// GenerationError reports a failed or malformed remote generation call.
type GenerationError struct {
	// StatusCode is the HTTP status, 0 for transport or decode failures.
	StatusCode int

	// Body is the response payload, truncated to a bounded size.
	Body string

	// Err is the underlying cause, if any.
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
	return fmt.Sprintf("generation failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// GeneratorConfig configures the remote generation capability.
type GeneratorConfig struct {
	// BaseURL is the chat-completions API base URL.
	BaseURL string

	// APIKey is the bearer credential.
	APIKey string

	// Model is the generation model identifier.
	Model string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens bounds the generated output.
	MaxTokens int

	// Timeout bounds the remote call; requests fail rather than hang.
	Timeout time.Duration

	// AppName is sent as the X-Title client-identifying header.
	AppName string
}

// Validate validates the configuration.
func (c GeneratorConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// Generator produces grounded answers via a chat-completions API.
type Generator struct {
	config GeneratorConfig
	client *http.Client
	logger *zap.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(config GeneratorConfig, logger *zap.Logger) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	// Temperature is left as given: zero is a valid (greedy) setting,
	// and the config layer already resolves the 0.3 default.
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 768
	}
	if config.AppName == "" {
		config.AppName = "ragd"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// Model returns the configured generation model identifier.
func (g *Generator) Model() string { return g.config.Model }

// chatMessage is one {role, content} message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatResponse is the chat-completions response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces a grounded answer for the question from the bundle.
//
// An empty bundle short-circuits to the fixed Refusal string without a
// remote call. A non-success response or malformed payload fails with
// *GenerationError. A successful response whose text is blank after
// trimming also yields the Refusal string instead of empty output.
func (g *Generator) Generate(ctx context.Context, question string, bundle Bundle) (string, error) {
	if bundle.Empty() {
		recordGeneration("refused", 0)
		return Refusal, nil
	}

	start := time.Now()
	prompt := fmt.Sprintf("Question: %s\n\nDocuments:\n%s", question, bundle.Text)

	reqBody := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		recordGeneration("error", time.Since(start))
		return "", &GenerationError{Err: fmt.Errorf("marshaling request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		recordGeneration("error", time.Since(start))
		return "", &GenerationError{Err: fmt.Errorf("creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	httpReq.Header.Set("X-Title", g.config.AppName)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		recordGeneration("error", time.Since(start))
		return "", &GenerationError{Err: fmt.Errorf("calling generation API: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		recordGeneration("error", time.Since(start))
		return "", &GenerationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		recordGeneration("error", time.Since(start))
		return "", &GenerationError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		recordGeneration("error", time.Since(start))
		return "", &GenerationError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody), Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		recordGeneration("error", time.Since(start))
		return "", &GenerationError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody), Err: fmt.Errorf("response contains no choices")}
	}

	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		g.logger.Warn("generation returned empty text, substituting refusal",
			zap.String("model", g.config.Model))
		recordGeneration("refused", time.Since(start))
		return Refusal, nil
	}

	recordGeneration("success", time.Since(start))
	return text, nil
}

// truncate bounds s to at most n bytes, cutting at a rune boundary so
// the diagnostic payload stays valid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

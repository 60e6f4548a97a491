package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

func candidate(id, text, source string, score float32) vectorstore.Candidate {
	chunk := vectorstore.Chunk{ID: id, DocName: "fallback.txt", Text: text}
	if source != "" {
		chunk.Metadata = map[string]string{"source": source}
	}
	return vectorstore.Candidate{Chunk: chunk, Score: score}
}

func TestAssembleLabelsAndOrder(t *testing.T) {
	bundle := Assemble([]vectorstore.Candidate{
		candidate("a", "First chunk.", "data/manual.txt", 0.9),
		candidate("b", "Second chunk.", "data/notes.md", 0.7),
	})

	require.False(t, bundle.Empty())
	require.Len(t, bundle.Entries, 2)
	require.Equal(t, 1, bundle.Entries[0].Label)
	require.Equal(t, "manual.txt", bundle.Entries[0].Source)
	require.Equal(t, 2, bundle.Entries[1].Label)
	require.Equal(t, "notes.md", bundle.Entries[1].Source)

	require.Equal(t,
		"[Document 1 (manual.txt)]:\nFirst chunk.\n\n[Document 2 (notes.md)]:\nSecond chunk.",
		bundle.Text)
}

func TestAssembleDropsWhitespaceChunks(t *testing.T) {
	bundle := Assemble([]vectorstore.Candidate{
		candidate("a", "   \n\t", "data/manual.txt", 0.9),
		candidate("b", "Real content.", "data/manual.txt", 0.7),
	})

	require.Len(t, bundle.Entries, 1)
	require.Equal(t, 1, bundle.Entries[0].Label)
	require.Equal(t, "Real content.", bundle.Entries[0].Text)
}

func TestAssembleFallsBackToDocName(t *testing.T) {
	bundle := Assemble([]vectorstore.Candidate{
		candidate("a", "Some text.", "", 0.5),
	})
	require.Equal(t, "fallback.txt", bundle.Entries[0].Source)
}

func TestAssembleEmptyInput(t *testing.T) {
	bundle := Assemble(nil)
	require.True(t, bundle.Empty())
	require.Empty(t, bundle.Text)
}

// chatStub serves /chat/completions with a fixed reply, counting calls.
func chatStub(t *testing.T, reply string, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Title"))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testGenerator(t *testing.T, baseURL string) *Generator {
	t.Helper()
	g, err := NewGenerator(GeneratorConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
	}, nil)
	require.NoError(t, err)
	return g
}

func testBundle() Bundle {
	return Assemble([]vectorstore.Candidate{
		candidate("a", "The pump must be lubricated weekly.", "data/manual.txt", 0.9),
	})
}

func TestNewGeneratorValidation(t *testing.T) {
	_, err := NewGenerator(GeneratorConfig{APIKey: "k", Model: "m"}, nil)
	require.Error(t, err)

	_, err = NewGenerator(GeneratorConfig{BaseURL: "http://x", Model: "m"}, nil)
	require.Error(t, err)

	_, err = NewGenerator(GeneratorConfig{BaseURL: "http://x", APIKey: "k"}, nil)
	require.Error(t, err)
}

func TestGenerateSuccess(t *testing.T) {
	var calls atomic.Int64
	srv := chatStub(t, "Lubricate the pump weekly. [Source: manual.txt]", &calls)
	defer srv.Close()

	text, err := testGenerator(t, srv.URL).Generate(context.Background(), "How often to lubricate?", testBundle())
	require.NoError(t, err)
	require.Equal(t, "Lubricate the pump weekly. [Source: manual.txt]", text)
	require.Equal(t, int64(1), calls.Load())
}

func TestGenerateEmptyBundleSkipsRemoteCall(t *testing.T) {
	var calls atomic.Int64
	srv := chatStub(t, "should never be returned", &calls)
	defer srv.Close()

	text, err := testGenerator(t, srv.URL).Generate(context.Background(), "Anything?", Bundle{})
	require.NoError(t, err)
	require.Equal(t, Refusal, text)
	require.Equal(t, int64(0), calls.Load(), "empty bundle must not reach the remote API")
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testGenerator(t, srv.URL).Generate(context.Background(), "Q?", testBundle())
	require.Error(t, err)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	require.Equal(t, http.StatusTooManyRequests, genErr.StatusCode)
	require.Contains(t, genErr.Body, "rate limited")
}

func TestGenerateErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", maxErrorBody*2)))
	}))
	defer srv.Close()

	_, err := testGenerator(t, srv.URL).Generate(context.Background(), "Q?", testBundle())
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	require.Len(t, genErr.Body, maxErrorBody)
}

func TestGenerateErrorBodyTruncatedAtRuneBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("€", maxErrorBody)))
	}))
	defer srv.Close()

	_, err := testGenerator(t, srv.URL).Generate(context.Background(), "Q?", testBundle())
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	require.LessOrEqual(t, len(genErr.Body), maxErrorBody)
	require.True(t, utf8.ValidString(genErr.Body), "diagnostic body must not be cut mid-rune")
}

func TestGenerateMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := testGenerator(t, srv.URL).Generate(context.Background(), "Q?", testBundle())
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	_, err := testGenerator(t, srv.URL).Generate(context.Background(), "Q?", testBundle())
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
}

func TestGenerateBlankContentYieldsRefusal(t *testing.T) {
	var calls atomic.Int64
	srv := chatStub(t, "   \n", &calls)
	defer srv.Close()

	text, err := testGenerator(t, srv.URL).Generate(context.Background(), "Q?", testBundle())
	require.NoError(t, err)
	require.Equal(t, Refusal, text)
}

func TestGenerateTransportFailure(t *testing.T) {
	// Unroutable port: connection refused.
	g := testGenerator(t, "http://127.0.0.1:1")

	_, err := g.Generate(context.Background(), "Q?", testBundle())
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	require.Equal(t, 0, genErr.StatusCode)
}

func TestGenerateSendsContextInPrompt(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		gotPrompt = req.Messages[1].Content

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "ok"}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	_, err := testGenerator(t, srv.URL).Generate(context.Background(), "How often to lubricate?", testBundle())
	require.NoError(t, err)
	require.Contains(t, gotPrompt, "How often to lubricate?")
	require.Contains(t, gotPrompt, "The pump must be lubricated weekly.")
	require.Contains(t, gotPrompt, "[Document 1 (manual.txt)]")
}

package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/document"
	"github.com/fyrsmithlabs/ragd/internal/embeddings"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// fakeSource serves a fixed document set.
type fakeSource struct {
	docs []document.Document
	err  error
}

func (f *fakeSource) Load(ctx context.Context) ([]document.Document, error) {
	return f.docs, f.err
}

// fakeProvider produces deterministic vectors: [len(text), 1, 0, ...].
type fakeProvider struct {
	dimension int
	failAfter int // fail on call N (0 = never)
	calls     int
}

func (f *fakeProvider) embed(text string) []float32 {
	vec := make([]float32, f.dimension)
	vec[0] = float32(len(text))
	vec[1] = 1
	return vec
}

func (f *fakeProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return nil, fmt.Errorf("%w: provider down", embeddings.ErrEmbeddingFailed)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.embed(text)
	}
	return out, nil
}

func (f *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.embed(text), nil
}

func newTestBuilder(src document.Source, provider embeddings.Provider) *Builder {
	return NewBuilder(src, provider, chunker.New(100, 20), vectorstore.MetricIP, "test-model", nil)
}

func TestBuildEmptyCorpus(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	builder := newTestBuilder(&fakeSource{}, &fakeProvider{dimension: 4})

	_, err := builder.Build(context.Background(), dir)
	require.ErrorIs(t, err, ErrEmptyCorpus)

	// No artifact is written.
	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}

func TestBuildSourceNotFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	src := document.NewDirSource(filepath.Join(t.TempDir(), "missing"))
	builder := newTestBuilder(src, &fakeProvider{dimension: 4})

	_, err := builder.Build(context.Background(), dir)
	require.ErrorIs(t, err, document.ErrSourceNotFound)
}

func TestBuildPersistsIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	src := &fakeSource{docs: []document.Document{
		{
			ID:       "d1",
			Name:     "manual.txt",
			Text:     "The pump must be lubricated weekly. Failure to lubricate causes bearing wear.",
			Metadata: map[string]string{"source": "data/manual.txt"},
		},
	}}
	builder := newTestBuilder(src, &fakeProvider{dimension: 4})

	stats, err := builder.Build(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Documents)
	require.Greater(t, stats.Chunks, 0)
	require.Equal(t, 4, stats.Dimension)

	idx, err := vectorstore.LoadIndex(dir)
	require.NoError(t, err)
	require.Equal(t, stats.Chunks, idx.Len())
	require.Equal(t, 4, idx.Dimension())
	require.Equal(t, "test-model", idx.Model())
}

func TestBuildSkipsWhitespaceDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	src := &fakeSource{docs: []document.Document{
		{ID: "d1", Name: "blank.txt", Text: "   \n\t  "},
		{ID: "d2", Name: "real.txt", Text: "Real content here."},
	}}
	builder := newTestBuilder(src, &fakeProvider{dimension: 4})

	stats, err := builder.Build(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Documents)
	require.Equal(t, 1, stats.Chunks)
}

func TestBuildAllWhitespaceCorpusYieldsEmptyIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	src := &fakeSource{docs: []document.Document{
		{ID: "d1", Name: "blank.txt", Text: "   "},
	}}
	builder := newTestBuilder(src, &fakeProvider{dimension: 4})

	stats, err := builder.Build(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Chunks)

	idx, err := vectorstore.LoadIndex(dir)
	require.NoError(t, err)
	require.Equal(t, 0, idx.Len())
}

func TestBuildEmbeddingFailureLeavesNoArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	src := &fakeSource{docs: []document.Document{
		{ID: "d1", Name: "a.txt", Text: "Some content. More content."},
	}}
	builder := newTestBuilder(src, &fakeProvider{dimension: 4, failAfter: 1})

	_, err := builder.Build(context.Background(), dir)
	require.ErrorIs(t, err, embeddings.ErrEmbeddingFailed)

	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}

func TestBuildEmbeddingFailureKeepsPriorArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	src := &fakeSource{docs: []document.Document{
		{ID: "d1", Name: "a.txt", Text: "Some content."},
	}}

	_, err := newTestBuilder(src, &fakeProvider{dimension: 4}).Build(context.Background(), dir)
	require.NoError(t, err)

	_, err = newTestBuilder(src, &fakeProvider{dimension: 4, failAfter: 1}).Build(context.Background(), dir)
	require.ErrorIs(t, err, embeddings.ErrEmbeddingFailed)

	// The prior artifact is still loadable.
	idx, err := vectorstore.LoadIndex(dir)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
}

func TestBuildChunkVectorCorrespondence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")

	// Many documents so embedding spans several batches.
	var docs []document.Document
	for i := 0; i < 5; i++ {
		docs = append(docs, document.Document{
			ID:   fmt.Sprintf("d%d", i),
			Name: fmt.Sprintf("doc%d.txt", i),
			Text: "Sentence one of the document. Sentence two of the document. Sentence three of the document. " +
				"Sentence four of the document. Sentence five of the document. Sentence six of the document.",
		})
	}
	provider := &fakeProvider{dimension: 4}
	builder := newTestBuilder(&fakeSource{docs: docs}, provider)

	stats, err := builder.Build(context.Background(), dir)
	require.NoError(t, err)
	require.Greater(t, stats.Chunks, 5)

	idx, err := vectorstore.LoadIndex(dir)
	require.NoError(t, err)
	require.Equal(t, stats.Chunks, idx.Len())

	results, err := idx.Search(provider.embed("Sentence one of the document."), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestBuildMultibyteCorpusRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	src := &fakeSource{docs: []document.Document{
		{
			ID:   "tr",
			Name: "kilavuz.txt",
			Text: "Pompa haftalık olarak yağlanmalıdır. Yağlama yapılmazsa rulmanlar aşınır. " +
				"Filtreler altı ayda bir değiştirilmelidir. Soğutma suyu her gün kontrol edilmelidir.",
		},
	}}
	builder := NewBuilder(src, &fakeProvider{dimension: 4}, chunker.New(80, 20),
		vectorstore.MetricIP, "test-model", nil)

	stats, err := builder.Build(context.Background(), dir)
	require.NoError(t, err)
	require.Greater(t, stats.Chunks, 1)

	idx, err := vectorstore.LoadIndex(dir)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 1, 0, 0}, stats.Chunks)
	require.NoError(t, err)
	for _, r := range results {
		require.True(t, utf8.ValidString(r.Chunk.Text),
			"persisted chunk text is not valid UTF-8: %q", r.Chunk.Text)
	}
}

func TestBuildPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("backend exploded")
	builder := newTestBuilder(&fakeSource{err: wantErr}, &fakeProvider{dimension: 4})

	_, err := builder.Build(context.Background(), filepath.Join(t.TempDir(), "index"))
	require.ErrorIs(t, err, wantErr)
}

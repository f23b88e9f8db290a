package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lexrag/internal/ingest"
	"github.com/agenthands/lexrag/internal/store"
)

type mockLLM struct {
	response string
	err      error
	prompts  []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

type mockEmbedder struct {
	vector  []float32
	batches [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.vector, nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches = append(m.batches, texts)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = m.vector
	}
	return vectors, nil
}

type mockStore struct {
	hits      []store.Hit
	searchErr error

	rebuiltChunks  []ingest.Chunk
	rebuiltVectors [][]float32
	lastTopK       int
}

func (m *mockStore) Rebuild(_ context.Context, chunks []ingest.Chunk, vectors [][]float32) error {
	m.rebuiltChunks = chunks
	m.rebuiltVectors = vectors
	return nil
}

func (m *mockStore) Search(_ context.Context, _ []float32, topK int) ([]store.Hit, error) {
	m.lastTopK = topK
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if topK > len(m.hits) {
		topK = len(m.hits)
	}
	return m.hits[:topK], nil
}

func (m *mockStore) Count(_ context.Context) (int, error) { return len(m.hits), nil }
func (m *mockStore) Close() error                         { return nil }

type mockReranker struct {
	order []int
	err   error
}

func (m *mockReranker) Rank(_ context.Context, _ string, _ []string) ([]int, error) {
	return m.order, m.err
}

func hit(name string, page int, text string) store.Hit {
	return store.Hit{
		Chunk: ingest.Chunk{
			Text: text,
			Metadata: ingest.Metadata{
				DocumentName: name,
				PageNumber:   page,
			},
		},
		Similarity: 0.9,
	}
}

func newTestPipeline(client *mockLLM, st *mockStore) *Pipeline {
	embedder := &mockEmbedder{vector: []float32{0.1, 0.2}}
	return NewPipeline(client, embedder, st, "Context:\n{context}\n\nQuestion: {question}", zerolog.Nop())
}

func TestAskNoHitsShortCircuits(t *testing.T) {
	client := &mockLLM{response: "should not be called"}
	pipeline := newTestPipeline(client, &mockStore{})

	answer, hits, err := pipeline.Ask(context.Background(), "what is a contract?", 5)

	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, answer)
	assert.Empty(t, hits)
	assert.Empty(t, client.prompts, "LLM must not be called without context")
}

func TestAskBuildsPromptFromHits(t *testing.T) {
	client := &mockLLM{response: "  A contract is an agreement.  "}
	st := &mockStore{hits: []store.Hit{
		hit("civil_code.pdf", 3, "A contract is an agreement between parties."),
		hit("civil_code.pdf", 4, "Contracts may be written or oral."),
	}}
	pipeline := newTestPipeline(client, st)

	answer, hits, err := pipeline.Ask(context.Background(), "what is a contract?", 5)

	require.NoError(t, err)
	assert.Equal(t, "A contract is an agreement.", answer)
	require.Len(t, hits, 2)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "[civil_code.pdf, page 3]\nA contract is an agreement between parties.")
	assert.Contains(t, prompt, "Question: what is a contract?")
}

func TestAskPropagatesStoreNotFound(t *testing.T) {
	st := &mockStore{searchErr: fmt.Errorf("%w: directory missing", store.ErrStoreNotFound)}
	pipeline := newTestPipeline(&mockLLM{}, st)

	_, _, err := pipeline.Ask(context.Background(), "q", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStoreNotFound)
}

func TestAskDefaultsTopK(t *testing.T) {
	st := &mockStore{}
	pipeline := newTestPipeline(&mockLLM{}, st)

	_, _, err := pipeline.Ask(context.Background(), "q", 0)

	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, st.lastTopK)
}

func TestAskRerankReorders(t *testing.T) {
	client := &mockLLM{response: "answer"}
	st := &mockStore{hits: []store.Hit{
		hit("a.txt", 1, "first"),
		hit("b.txt", 1, "second"),
		hit("c.txt", 1, "third"),
	}}
	pipeline := newTestPipeline(client, st).WithReranker(&mockReranker{order: []int{2, 0, 1}}, 3)

	_, hits, err := pipeline.Ask(context.Background(), "q", 2)

	require.NoError(t, err)
	assert.Equal(t, 3, st.lastTopK, "reranking over-fetches candidates")
	require.Len(t, hits, 2)
	assert.Equal(t, "third", hits[0].Chunk.Text)
	assert.Equal(t, "first", hits[1].Chunk.Text)
}

func TestAskRerankErrorKeepsVectorOrder(t *testing.T) {
	client := &mockLLM{response: "answer"}
	st := &mockStore{hits: []store.Hit{
		hit("a.txt", 1, "first"),
		hit("b.txt", 1, "second"),
	}}
	pipeline := newTestPipeline(client, st).WithReranker(&mockReranker{err: fmt.Errorf("llm down")}, 2)

	_, hits, err := pipeline.Ask(context.Background(), "q", 2)

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].Chunk.Text)
}

func TestIndexEmbedsAllChunks(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.5}}
	st := &mockStore{}
	pipeline := NewPipeline(&mockLLM{}, embedder, st, "{context} {question}", zerolog.Nop())

	chunks := []ingest.Chunk{
		{ID: "1", Text: "alpha"},
		{ID: "2", Text: "beta"},
	}
	require.NoError(t, pipeline.Index(context.Background(), chunks))

	require.Len(t, embedder.batches, 1)
	assert.Equal(t, []string{"alpha", "beta"}, embedder.batches[0])
	assert.Equal(t, chunks, st.rebuiltChunks)
	assert.Len(t, st.rebuiltVectors, 2)
}

func TestSourcesDeduplicates(t *testing.T) {
	hits := []store.Hit{
		hit("civil_code.pdf", 3, "a"),
		hit("civil_code.pdf", 3, "b"),
		hit("civil_code.pdf", 4, "c"),
		hit("tax_code.pdf", 3, "d"),
	}

	sources := Sources(hits)

	require.Len(t, sources, 3)
	assert.Equal(t, Source{DocumentName: "civil_code.pdf", PageNumber: 3}, sources[0])
	assert.Equal(t, Source{DocumentName: "civil_code.pdf", PageNumber: 4}, sources[1])
	assert.Equal(t, Source{DocumentName: "tax_code.pdf", PageNumber: 3}, sources[2])
}

func TestHitCounts(t *testing.T) {
	hits := []store.Hit{
		hit("civil_code.pdf", 3, "a"),
		hit("civil_code.pdf", 4, "b"),
		hit("tax_code.pdf", 1, "c"),
	}

	counts := HitCounts(hits)

	assert.Equal(t, 2, counts["civil_code.pdf"])
	assert.Equal(t, 1, counts["tax_code.pdf"])
}

func TestFormatContextLabels(t *testing.T) {
	hits := []store.Hit{
		hit("civil_code.pdf", 3, "first excerpt"),
		hit("", 0, "anonymous excerpt"),
	}

	block := FormatContext(hits)

	parts := strings.Split(block, "\n\n")
	require.Len(t, parts, 2)
	assert.Equal(t, "[civil_code.pdf, page 3]\nfirst excerpt", parts[0])
	assert.Equal(t, "[Unknown document]\nanonymous excerpt", parts[1])
}

func TestRenderPrompt(t *testing.T) {
	out := RenderPrompt("C: {context} Q: {question}", "ctx", "why?")
	assert.Equal(t, "C: ctx Q: why?", out)
}

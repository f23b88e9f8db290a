package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agenthands/lexrag/internal/ingest"
	"github.com/agenthands/lexrag/internal/llm"
	"github.com/agenthands/lexrag/internal/store"
)

// FallbackAnswer is returned without calling the LLM when retrieval finds
// nothing.
const FallbackAnswer = "I don't know"

// DefaultTopK is used when neither the request nor the batch sets one.
const DefaultTopK = 5

// Pipeline wires the embedder, vector store, and chat model into the two
// operations of the system: building the index and answering questions.
type Pipeline struct {
	llm      llm.LLMClient
	embedder llm.EmbedderClient
	store    store.Store
	prompt   string

	reranker   llm.RerankerClient
	candidates int

	log zerolog.Logger
}

func NewPipeline(client llm.LLMClient, embedder llm.EmbedderClient, st store.Store, promptTemplate string, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		llm:      client,
		embedder: embedder,
		store:    st,
		prompt:   promptTemplate,
		log:      log,
	}
}

// WithReranker enables an LLM reranking pass: candidates are over-fetched
// from the store and reordered before truncation to topK.
func (p *Pipeline) WithReranker(r llm.RerankerClient, candidates int) *Pipeline {
	p.reranker = r
	p.candidates = candidates
	return p
}

// Index embeds all chunks and replaces the store contents with them.
func (p *Pipeline) Index(ctx context.Context, chunks []ingest.Chunk) error {
	if p.embedder == nil {
		return fmt.Errorf("configured llm provider has no embedding support")
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if err := p.store.Rebuild(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("failed to rebuild vector store: %w", err)
	}
	return nil
}

// Ask retrieves the topK most similar chunks, formats them into a context
// block, and asks the chat model. The retrieved chunks are returned alongside
// the answer.
func (p *Pipeline) Ask(ctx context.Context, question string, topK int) (string, []store.Hit, error) {
	if p.embedder == nil {
		return "", nil, fmt.Errorf("configured llm provider has no embedding support")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	fetch := topK
	if p.reranker != nil && p.candidates > fetch {
		fetch = p.candidates
	}

	vector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed question: %w", err)
	}
	hits, err := p.store.Search(ctx, vector, fetch)
	if err != nil {
		return "", nil, err
	}
	if len(hits) == 0 {
		return FallbackAnswer, nil, nil
	}

	if p.reranker != nil {
		hits = p.rerank(ctx, question, hits)
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}

	prompt := RenderPrompt(p.prompt, FormatContext(hits), question)
	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	return strings.TrimSpace(answer), hits, nil
}

func (p *Pipeline) rerank(ctx context.Context, question string, hits []store.Hit) []store.Hit {
	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Chunk.Text
	}
	order, err := p.reranker.Rank(ctx, question, texts)
	if err != nil || len(order) != len(hits) {
		p.log.Warn().Err(err).Msg("rerank failed, keeping vector order")
		return hits
	}
	reordered := make([]store.Hit, len(hits))
	for rank, idx := range order {
		reordered[rank] = hits[idx]
	}
	return reordered
}

// FormatContext renders retrieved chunks as a context block, one labelled
// excerpt per chunk.
func FormatContext(hits []store.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		name := hit.Chunk.Metadata.DocumentName
		if name == "" {
			name = "Unknown document"
		}
		label := name
		if page := hit.Chunk.Metadata.PageNumber; page > 0 {
			label = fmt.Sprintf("%s, page %d", name, page)
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", label, hit.Chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}

// RenderPrompt substitutes the context and question into the template.
func RenderPrompt(template, contextBlock, question string) string {
	r := strings.NewReplacer("{context}", contextBlock, "{question}", question)
	return r.Replace(template)
}

// Source identifies one retrieved (document, page) pair.
type Source struct {
	DocumentName string
	PageNumber   int
}

// Sources deduplicates the (document, page) pairs of the hits, keeping
// retrieval order.
func Sources(hits []store.Hit) []Source {
	seen := make(map[Source]bool, len(hits))
	out := make([]Source, 0, len(hits))
	for _, hit := range hits {
		src := Source{
			DocumentName: hit.Chunk.Metadata.DocumentName,
			PageNumber:   hit.Chunk.Metadata.PageNumber,
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}

// HitCounts tallies retrieved chunks per document name.
func HitCounts(hits []store.Hit) map[string]int {
	counts := make(map[string]int, len(hits))
	for _, hit := range hits {
		name := hit.Chunk.Metadata.DocumentName
		if name == "" {
			name = "Unknown"
		}
		counts[name]++
	}
	return counts
}

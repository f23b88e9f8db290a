package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Chunker splits pages into overlapping windows of roughly chunkSize bytes,
// preferring to cut at a paragraph break, line break, or space near the
// window edge. The start offset of each chunk within its page is recorded.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 6
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split chunks every page, carrying the page metadata through unchanged.
func (c *Chunker) Split(pages []Page) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		for _, span := range c.spans(page.Content) {
			text := strings.TrimSpace(page.Content[span.start:span.end])
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:         chunkID(page.Metadata, span.start),
				Text:       text,
				StartIndex: span.start,
				Metadata:   page.Metadata,
			})
		}
	}
	return chunks
}

type span struct {
	start, end int
}

func (c *Chunker) spans(text string) []span {
	if len(text) <= c.chunkSize {
		if len(text) == 0 {
			return nil
		}
		return []span{{0, len(text)}}
	}

	var spans []span
	start := 0
	for start < len(text) {
		end := start + c.chunkSize
		if end >= len(text) {
			spans = append(spans, span{start, len(text)})
			break
		}
		end = c.cutPoint(text, start, end)
		spans = append(spans, span{start, end})

		next := end - c.chunkOverlap
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// cutPoint backs the window edge up to the nearest boundary, searching
// paragraph breaks first, then line breaks, then spaces. A boundary is only
// taken if it lies in the second half of the window, otherwise the hard edge
// is used (backed up to a rune start).
func (c *Chunker) cutPoint(text string, start, end int) int {
	floor := start + c.chunkSize/2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(text[start:end], sep); i >= 0 && start+i > floor {
			return start + i + len(sep)
		}
	}
	for end > floor && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}

// chunkID is deterministic over (path, page, offset) so rebuilds produce
// stable IDs.
func chunkID(meta Metadata, start int) string {
	key := fmt.Sprintf("%s#%d@%d", meta.SourcePath, meta.PageNumber, start)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

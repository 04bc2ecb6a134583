package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ChunkerVersion tracks the chunking algorithm a document version was
// indexed with, so a future algorithm change can trigger reindexing.
type ChunkerVersion string

const (
	// ChunkerVersionV1 packs paragraphs per page into bounded chunks.
	ChunkerVersionV1 ChunkerVersion = "v1"
)

const (
	// MinChunkLength is the packing target: a chunk is considered full
	// enough to close once it reaches this many characters.
	MinChunkLength = 80
	// MaxChunkLength is the hard upper bound for one chunk.
	MaxChunkLength = 1000
)

// Chunk is one piece of a document produced by the chunker.
type Chunk struct {
	Ordinal int    // sequence number across the whole document, 0-indexed
	Page    int    // 1-indexed page the chunk starts on
	Content string
	Hash    string // SHA-256 of the content
}

// Chunker splits document text into embeddable chunks.
type Chunker interface {
	Chunk(body string) ([]Chunk, error)
	Version() ChunkerVersion
}

type pagedChunker struct{}

// NewChunker creates the default chunker.
func NewChunker() Chunker {
	return &pagedChunker{}
}

func (c *pagedChunker) Version() ChunkerVersion {
	return ChunkerVersionV1
}

// Chunk splits the body into pages on form feeds, then packs each page's
// paragraphs into chunks between MinChunkLength and MaxChunkLength.
// Paragraphs longer than MaxChunkLength are split at sentence boundaries.
// Chunks never span pages, so page-qualified citation locators stay exact.
func (c *pagedChunker) Chunk(body string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var chunks []Chunk
	ordinal := 0
	for pageIdx, page := range strings.Split(normalized, "\f") {
		for _, content := range packParagraphs(splitParagraphs(page)) {
			sum := sha256.Sum256([]byte(content))
			chunks = append(chunks, Chunk{
				Ordinal: ordinal,
				Page:    pageIdx + 1,
				Content: content,
				Hash:    hex.EncodeToString(sum[:]),
			})
			ordinal++
		}
	}
	return chunks, nil
}

func splitParagraphs(page string) []string {
	var paragraphs []string
	for _, part := range strings.Split(page, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// packParagraphs greedily joins paragraphs until a chunk reaches
// MinChunkLength, closing it early when the next paragraph would push it
// past MaxChunkLength.
func packParagraphs(paragraphs []string) []string {
	var packed []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			packed = append(packed, current.String())
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		if len(p) > MaxChunkLength {
			flush()
			packed = append(packed, splitAtSentences(p)...)
			continue
		}
		if current.Len() > 0 && current.Len()+2+len(p) > MaxChunkLength {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		if current.Len() >= MinChunkLength {
			flush()
		}
	}
	flush()
	return packed
}

// splitAtSentences cuts an oversized paragraph into pieces no longer than
// MaxChunkLength, preferring to break after sentence-ending punctuation.
func splitAtSentences(paragraph string) []string {
	var pieces []string
	remaining := paragraph
	for len(remaining) > MaxChunkLength {
		cut := strings.LastIndexAny(remaining[:MaxChunkLength], ".!?")
		if cut < MinChunkLength {
			cut = MaxChunkLength - 1
		}
		pieces = append(pieces, strings.TrimSpace(remaining[:cut+1]))
		remaining = strings.TrimSpace(remaining[cut+1:])
	}
	if remaining != "" {
		pieces = append(pieces, remaining)
	}
	return pieces
}

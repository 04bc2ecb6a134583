package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_EmptyBody(t *testing.T) {
	chunks, err := NewChunker().Chunk("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunker_SingleShortParagraph(t *testing.T) {
	body := "A short note."

	chunks, err := NewChunker().Chunk(body)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, body, chunks[0].Content)

	sum := sha256.Sum256([]byte(body))
	assert.Equal(t, hex.EncodeToString(sum[:]), chunks[0].Hash)
}

func TestChunker_PacksSmallParagraphsTogether(t *testing.T) {
	first := strings.Repeat("a", 50)
	second := strings.Repeat("b", 50)
	body := first + "\n\n" + second

	chunks, err := NewChunker().Chunk(body)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, first+"\n\n"+second, chunks[0].Content)
}

func TestChunker_FullParagraphClosesChunk(t *testing.T) {
	first := strings.Repeat("a", 200)
	second := strings.Repeat("b", 200)
	body := first + "\n\n" + second

	chunks, err := NewChunker().Chunk(body)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0].Content)
	assert.Equal(t, second, chunks[1].Content)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 1, chunks[1].Ordinal)
}

func TestChunker_ClosesBeforeExceedingMax(t *testing.T) {
	// The second paragraph would push the chunk past MaxChunkLength, so the
	// first is emitted alone even though the pair would start a fresh chunk.
	first := strings.Repeat("a", 70)
	second := strings.Repeat("b", 950)
	body := first + "\n\n" + second

	chunks, err := NewChunker().Chunk(body)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0].Content)
	assert.Equal(t, second, chunks[1].Content)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), MaxChunkLength)
	}
}

func TestChunker_SplitsOversizedParagraphAtSentences(t *testing.T) {
	paragraph := strings.TrimSpace(strings.Repeat("This sentence is part of one very long paragraph. ", 40))
	require.Greater(t, len(paragraph), MaxChunkLength)

	chunks, err := NewChunker().Chunk(paragraph)
	require.NoError(t, err)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), MaxChunkLength)
		assert.True(t, strings.HasSuffix(c.Content, "."), "piece should end at a sentence boundary: %q", c.Content)
	}
	assert.Equal(t, paragraph, strings.Join(chunkContents(chunks), " "))
}

func TestChunker_PagesDoNotShareChunks(t *testing.T) {
	pageOne := strings.Repeat("a", 100)
	pageTwo := strings.Repeat("b", 100)
	body := pageOne + "\f" + pageTwo

	chunks, err := NewChunker().Chunk(body)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 2, chunks[1].Page)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 1, chunks[1].Ordinal)
}

func TestChunker_NormalizesWindowsLineEndings(t *testing.T) {
	first := strings.Repeat("a", 90)
	second := strings.Repeat("b", 90)
	body := first + "\r\n\r\n" + second

	chunks, err := NewChunker().Chunk(body)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0].Content)
	assert.Equal(t, second, chunks[1].Content)
}

func TestChunker_Version(t *testing.T) {
	assert.Equal(t, ChunkerVersionV1, NewChunker().Version())
}

func chunkContents(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

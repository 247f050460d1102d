package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landmarks/internal/domain"
)

func TestSentences(t *testing.T) {
	got := Sentences("The Flatiron Building  was completed in 1902.\nIt is triangular!  Is it tall? Yes")
	assert.Equal(t, []string{
		"The Flatiron Building was completed in 1902.",
		"It is triangular!",
		"Is it tall?",
		"Yes",
	}, got)
	assert.Empty(t, Sentences("   \n "))
}

func TestChunkWindowsWithOverlap(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	chunks, err := c.Chunk(domain.Document{
		ID:         "doc",
		Title:      "Flatiron Building Designation Report",
		LandmarkID: "LP-00004",
		Content:    "One. Two. Three. Four.",
	})
	require.NoError(t, err)

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "LP-00004", ch.LandmarkID)
		assert.Equal(t, "Flatiron Building Designation Report", ch.Title)
		assert.Equal(t, 1, ch.Page)
	}
	assert.Equal(t, []string{"One. Two.", "Two. Three.", "Three. Four."}, texts)
	assert.Equal(t, "doc:2", chunks[2].ChunkID)
}

func TestChunksDoNotSpanPages(t *testing.T) {
	c := NewSentenceChunker(5, 0)
	chunks, err := c.Chunk(domain.Document{ID: "r", Content: "Page one. Still one." + PageBreak + "Page two."})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Page one. Still one.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "Page two.", chunks[1].Text)
	assert.Equal(t, 2, chunks[1].Page)
	assert.Equal(t, "r:1", chunks[1].ChunkID)
}

func TestChunkEdgeCases(t *testing.T) {
	c := NewSentenceChunker(0, 10)
	assert.Equal(t, 5, c.sentencesPerChunk)
	assert.Equal(t, 4, c.overlapSentences)

	chunks, err := c.Chunk(domain.Document{ID: "empty", Content: "  "})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = c.Chunk(domain.Document{Path: "x.txt", Content: "text."})
	assert.Error(t, err)
}

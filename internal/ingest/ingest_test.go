package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"landmarks/internal/chunker"
	"landmarks/internal/embedding/tfidf"
	"landmarks/internal/summarizer"
	"landmarks/internal/vectorstore"
	"landmarks/internal/vectorstore/memory"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lp-00004_flatiron.txt", "Flatiron Building Designation Report\n\nThe Flatiron Building is triangular.")
	writeFile(t, dir, "woolworth.txt", strings.Repeat("x", 200)+"\nThe Woolworth Building, LP-00009, is a tower.")
	writeFile(t, dir, "notes.md", "ignored")

	docs, err := LoadDocuments([]string{dir, filepath.Join(dir, "*.txt")})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "LP-00004", docs[0].LandmarkID)
	assert.Equal(t, "Flatiron Building Designation Report", docs[0].Title)
	assert.Len(t, docs[0].ID, 40)

	assert.Equal(t, "LP-00009", docs[1].LandmarkID)
	assert.Equal(t, "woolworth", docs[1].Title)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestLoadDocumentsMissingPath(t *testing.T) {
	_, err := LoadDocuments([]string{filepath.Join(t.TempDir(), "absent.txt")})
	assert.Error(t, err)
}

func TestPipelineIndexesCorpus(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "LP-00004.txt", "Flatiron Building\nThe Flatiron Building has a limestone facade. It was designed by Daniel Burnham. "+
		"The triangular plan follows the street grid."+chunker.PageBreak+"Its steel frame was advanced for 1902.")
	writeFile(t, dir, "LP-00009.txt", "Woolworth Building\nThe Woolworth Building is a neo-Gothic skyscraper. Cass Gilbert designed the tower.")

	emb := tfidf.NewEmbedder()
	index := memory.NewStorage(emb)
	p := NewPipeline(chunker.NewSentenceChunker(2, 0), emb, index, summarizer.NewFrequencySummarizer(), 2, zap.NewNop())

	res, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Documents)
	assert.Equal(t, index.Len(), res.Chunks)
	assert.Greater(t, res.Chunks, 2)
	assert.NotEmpty(t, res.Summary)

	hits, err := index.Query(context.Background(), vectorstore.Query{Text: "Cass Gilbert tower", TopK: 3, LandmarkID: "LP-00009"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "LP-00009", hits[0].Metadata["landmark_id"])

	// A second run replaces the index rather than appending to it.
	res2, err := p.Run(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, res.Chunks, index.Len())
	assert.Equal(t, res.Chunks, res2.Chunks)
}

func TestPipelineRequiresDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.md", "nothing to index")
	emb := tfidf.NewEmbedder()
	p := NewPipeline(chunker.NewSentenceChunker(5, 1), emb, memory.NewStorage(emb), summarizer.NewFrequencySummarizer(), 3, nil)

	_, err := p.Run(context.Background(), []string{dir})
	assert.Error(t, err)
}

package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"landmarks/internal/domain"
)

// PageBreak separates pages in text extracted from designation report PDFs.
const PageBreak = "\f"

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

// Sentences splits text into trimmed sentences. Trailing text without terminal
// punctuation is kept as a final sentence.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SentenceChunker splits each page of a document into windows of sentences
// that overlap by a fixed number of sentences. Chunks never span pages.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

// Chunk implements domain.Chunker. Chunk ids are "<document id>:<index>" and
// pages are numbered from 1.
func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if document.ID == "" {
		return nil, fmt.Errorf("chunk %q: document id is empty", document.Path)
	}
	var chunks []domain.Chunk
	for p, page := range strings.Split(document.Content, PageBreak) {
		sentences := Sentences(page)
		for start := 0; start < len(sentences); {
			end := min(start+c.sentencesPerChunk, len(sentences))
			idx := len(chunks)
			chunks = append(chunks, domain.Chunk{
				DocumentID: document.ID,
				ChunkID:    fmt.Sprintf("%s:%d", document.ID, idx),
				Title:      document.Title,
				LandmarkID: document.LandmarkID,
				Page:       p + 1,
				Text:       strings.Join(sentences[start:end], " "),
				Index:      idx,
			})
			if end == len(sentences) {
				break
			}
			start = end - c.overlapSentences
		}
	}
	return chunks, nil
}

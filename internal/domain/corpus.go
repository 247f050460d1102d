package domain

// Document is a local source text (for example a designation report) loaded for indexing.
type Document struct {
	ID         string
	Path       string
	Title      string
	LandmarkID string
	Content    string
}

// Chunk is a retrievable slice of a document.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Title      string
	LandmarkID string
	Page       int
	Text       string
	Index      int
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

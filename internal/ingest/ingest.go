// Package ingest indexes local designation-report text files into a passage
// index so the research service can retrieve from them.
package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"landmarks/internal/domain"
	"landmarks/internal/embedding"
	"landmarks/internal/vectorstore"
)

const maxTitleLen = 120

// Result describes one ingestion run.
type Result struct {
	Documents int
	Chunks    int
	Summary   string
	Elapsed   time.Duration
}

// Pipeline loads, chunks, embeds and indexes documents.
type Pipeline struct {
	chunker             domain.Chunker
	embedder            embedding.Embedder
	index               vectorstore.Indexer
	summarizer          domain.Summarizer
	summaryMaxSentences int
	logger              *zap.Logger
}

func NewPipeline(chunker domain.Chunker, embedder embedding.Embedder, index vectorstore.Indexer, summarizer domain.Summarizer, summaryMaxSentences int, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		chunker:             chunker,
		embedder:            embedder,
		index:               index,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
		logger:              logger.Named("ingest"),
	}
}

// Run replaces the index contents with the .txt files matched by paths. Each
// path may be a file, a directory or a glob.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	documents, err := LoadDocuments(paths)
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("no .txt documents found in %v", paths)
	}

	var (
		chunks []domain.Chunk
		texts  []string
		corpus strings.Builder
	)
	for _, d := range documents {
		dc, err := p.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		for _, ch := range dc {
			chunks = append(chunks, ch)
			texts = append(texts, ch.Text)
		}
		corpus.WriteString("\n")
		corpus.WriteString(d.Content)
		p.logger.Debug("document chunked",
			zap.String("path", d.Path),
			zap.String("landmark_id", d.LandmarkID),
			zap.Int("chunks", len(dc)))
	}

	if err := p.embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("prepare %s embedder: %w", p.embedder.Name(), err)
	}
	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		vec, err := p.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", chunks[i].ChunkID, err)
		}
		vectors[i] = vec
	}

	if err := p.index.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear index: %w", err)
	}
	if err := p.index.Init(ctx, p.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := p.index.Upsert(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}

	summary, err := p.summarizer.Summarize(corpus.String(), p.summaryMaxSentences)
	if err != nil {
		return nil, fmt.Errorf("summarize corpus: %w", err)
	}

	res := &Result{Documents: len(documents), Chunks: len(chunks), Summary: summary, Elapsed: time.Since(start)}
	p.logger.Info("corpus indexed",
		zap.Int("documents", res.Documents),
		zap.Int("chunks", res.Chunks),
		zap.String("embedder", p.embedder.Name()),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// LoadDocuments reads every .txt file named by paths, expanding directories and
// globs. Files are returned in path order without duplicates.
func LoadDocuments(paths []string) ([]domain.Document, error) {
	var files []string
	seen := map[string]struct{}{}
	add := func(f string) {
		if !strings.EqualFold(filepath.Ext(f), ".txt") {
			return
		}
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		files = append(files, f)
	}

	for _, p := range paths {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				add(m)
				continue
			}
			entries, err := os.ReadDir(m)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() {
					add(filepath.Join(m, e.Name()))
				}
			}
		}
	}

	documents := make([]domain.Document, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		content := string(data)
		documents = append(documents, domain.Document{
			ID:         documentID(f),
			Path:       f,
			Title:      documentTitle(f, content),
			LandmarkID: landmarkID(f, content),
			Content:    content,
		})
	}
	return documents, nil
}

func documentID(path string) string {
	h := sha1.Sum([]byte(filepath.ToSlash(path)))
	return hex.EncodeToString(h[:])
}

// landmarkID prefers an id in the file name over the first one in the text.
func landmarkID(path, content string) string {
	if id := domain.LandmarkIDPattern.FindString(strings.ToUpper(filepath.Base(path))); id != "" {
		return id
	}
	return domain.LandmarkIDPattern.FindString(content)
}

// documentTitle is the first non-empty line when it is short enough, else the file name.
func documentTitle(path, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) <= maxTitleLen {
			return line
		}
		break
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

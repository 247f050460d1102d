package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"landmarks/internal/api"
	"landmarks/internal/chunker"
	"landmarks/internal/config"
	"landmarks/internal/domain"
	"landmarks/internal/embedding"
	"landmarks/internal/embedding/openai"
	"landmarks/internal/embedding/tfidf"
	"landmarks/internal/generation"
	"landmarks/internal/ingest"
	"landmarks/internal/memory"
	"landmarks/internal/metadata"
	"landmarks/internal/observability"
	"landmarks/internal/restclient"
	"landmarks/internal/service"
	"landmarks/internal/summarizer"
	"landmarks/internal/vectorstore"
	"landmarks/internal/vectorstore/coredatastore"
	vsmemory "landmarks/internal/vectorstore/memory"
	"landmarks/internal/vectorstore/qdrant"
)

const metricsNamespace = "landmarks"

// application is the composition root shared by the subcommands.
type application struct {
	cfg       *config.AppConfig
	logger    *zap.Logger
	metrics   *observability.Collector
	memory    *memory.Store
	landmarks *metadata.Client
	embedder  embedding.Embedder
	storage   vectorstore.Storage
	indexer   vectorstore.Indexer
	documents api.DocumentSource
	research  *service.ResearchService
}

func newApplication(cfg *config.AppConfig, logger *zap.Logger) (*application, error) {
	a := &application{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewCollector(metricsNamespace),
	}
	observe := restclient.WithObserver(a.metrics.ObserveUpstream)

	a.memory = memory.NewStore(cfg.Memory, logger)
	a.metrics.RegisterGauge(metricsNamespace, "active_conversations", "Conversations currently held in memory.", func() float64 {
		return float64(a.memory.Len())
	})

	a.landmarks = metadata.NewClient(restclient.New(restclient.Config{
		Name:    "metadata",
		BaseURL: cfg.Metadata.BaseURL,
		Timeout: seconds(cfg.Metadata.TimeoutSecs),
		Retry:   cfg.Retry,
		Breaker: cfg.Breaker,
	}, logger, observe), logger)

	if err := a.wireVectorStore(observe); err != nil {
		return nil, err
	}

	gen, err := generation.NewClient(cfg.Generator, cfg.Retry, cfg.Breaker, logger, observe)
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}

	a.research = service.NewResearchService(service.Dependencies{
		Memory:    a.memory,
		Landmarks: a.landmarks,
		Passages:  vectorstore.NewRetriever(a.storage, logger, cfg.VectorStore.MinScore),
		Generator: gen,
	}, cfg.Research, logger, service.WithMetrics(a.metrics))
	return a, nil
}

func (a *application) wireVectorStore(observe restclient.Option) error {
	cfg := a.cfg
	switch cfg.VectorStore.Type {
	case "coredatastore", "":
		if cfg.VectorStore.CoreDataStore == nil {
			return fmt.Errorf("vector_store.coredatastore config missing")
		}
		st := coredatastore.NewStorage(restclient.New(restclient.Config{
			Name:    "coredatastore",
			BaseURL: cfg.VectorStore.CoreDataStore.URL,
			Timeout: seconds(cfg.VectorStore.CoreDataStore.TimeoutSecs),
			Retry:   cfg.Retry,
			Breaker: cfg.Breaker,
		}, a.logger, observe), a.logger)
		a.storage = st
		a.documents = st
		return nil
	case "qdrant", "memory":
	default:
		return fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	emb, err := newEmbedder(cfg, a.logger, observe)
	if err != nil {
		return err
	}
	a.embedder = emb

	if cfg.VectorStore.Type == "memory" {
		st := vsmemory.NewStorage(emb)
		a.storage, a.indexer = st, st
		return nil
	}
	qc := cfg.VectorStore.Qdrant
	if qc == nil {
		return fmt.Errorf("vector_store.qdrant config missing")
	}
	headers := map[string]string{}
	if qc.APIKey != "" {
		headers["api-key"] = qc.APIKey
	}
	st := qdrant.NewStorage(restclient.New(restclient.Config{
		Name:    "qdrant",
		BaseURL: qc.URL,
		Timeout: seconds(qc.TimeoutSecs),
		Headers: headers,
		Retry:   cfg.Retry,
		Breaker: cfg.Breaker,
	}, a.logger, observe), emb, qc.Collection, a.logger)
	a.storage, a.indexer = st, st
	return nil
}

func newEmbedder(cfg *config.AppConfig, logger *zap.Logger, observe restclient.Option) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("embedder.openai config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   seconds(oc.TimeoutSecs),
			Retry:     cfg.Retry,
			Breaker:   cfg.Breaker,
		}, logger, observe)
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

// ingest indexes paths into the local vector store. It fails for backends that
// are populated elsewhere.
func (a *application) ingest(ctx context.Context, paths []string) (*ingest.Result, error) {
	if a.indexer == nil {
		return nil, fmt.Errorf("vector store %q is read-only; ingest needs memory or qdrant", a.cfg.VectorStore.Type)
	}
	var ch domain.Chunker
	switch a.cfg.Ingest.Chunker.Type {
	case "sentence", "":
		ch = chunker.NewSentenceChunker(a.cfg.Ingest.Chunker.SentencesPerChunk, a.cfg.Ingest.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", a.cfg.Ingest.Chunker.Type)
	}
	p := ingest.NewPipeline(ch, a.embedder, a.indexer, summarizer.NewFrequencySummarizer(), a.cfg.Ingest.SummaryMaxSentences, a.logger)
	return p.Run(ctx, paths)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"landmarks/internal/config"
	"landmarks/internal/domain"
	"landmarks/internal/observability"
)

// Dependencies are the collaborators a ResearchService orchestrates.
type Dependencies struct {
	Memory    domain.MemoryStore
	Landmarks domain.LandmarkGateway
	Passages  domain.PassageRetriever
	Generator domain.TextGenerator
}

// Option configures a ResearchService.
type Option func(*ResearchService)

// WithMetrics records report counters and latencies on c.
func WithMetrics(c *observability.Collector) Option {
	return func(s *ResearchService) { s.metrics = c }
}

// WithClock overrides the time source used for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ResearchService) { s.now = now }
}

// ResearchService assembles research reports from memory, metadata, passages and
// text generation.
type ResearchService struct {
	deps    Dependencies
	cfg     config.ResearchConfig
	sem     *semaphore.Weighted
	logger  *zap.Logger
	metrics *observability.Collector
	now     func() time.Time
}

func NewResearchService(deps Dependencies, cfg config.ResearchConfig, logger *zap.Logger, opts ...Option) *ResearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.MaxConcurrentCalls
	if limit < 1 {
		limit = 1
	}
	s := &ResearchService{
		deps:   deps,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(limit)),
		logger: logger.Named("research"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateReport runs one research turn. Only a text generation failure is
// returned as an error; every enrichment failure degrades to an empty value.
func (s *ResearchService) GenerateReport(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error) {
	start := time.Now()
	if timeout := s.cfg.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	maxSources := DefaultMaxSources
	if req.MaxSources != nil && *req.MaxSources > 0 {
		maxSources = *req.MaxSources
	}
	log := s.logger.With(zap.String("landmark_id", req.LandmarkID))

	conversationID, history := s.resolveConversation(ctx, req.ConversationID)
	log = log.With(zap.String("conversation_id", conversationID))

	rc := s.buildContext(ctx, req, conversationID, history)

	prompt := RenderPrompt(rc, s.cfg)
	text, err := guarded(ctx, s.sem, func(ctx context.Context) (string, error) {
		return s.deps.Generator.Generate(ctx, prompt)
	})
	if err != nil {
		log.Error("text generation failed", zap.Error(err))
		if s.metrics != nil {
			s.metrics.ReportsFailed.Inc()
		}
		return nil, domain.NewValidationError("failed to generate research report: " + err.Error()).WithCause(err)
	}

	ids := ExtractLandmarkIDs(text)
	names := ExtractLandmarkNames(text)
	focusAdded := false
	if req.LandmarkID != "" && !contains(ids, req.LandmarkID) {
		ids = append(ids, req.LandmarkID)
		focusAdded = true
	}

	var (
		landmarkName string
		images       = []domain.LandmarkImage{}
		related      = []domain.RelatedLandmark{}
	)
	g, gctx := errgroup.WithContext(ctx)
	if req.LandmarkID != "" {
		g.Go(func() error {
			if rc.Landmark != nil {
				landmarkName = rc.Landmark.Name
				return nil
			}
			landmarkName = s.landmarkName(gctx, req.LandmarkID, "focus_name")
			return nil
		})
	}
	if req.WantsImages() && len(ids) > 0 {
		primary := req.LandmarkID
		if primary == "" {
			primary = ids[0]
		}
		g.Go(func() error {
			images = s.fetchImages(gctx, primary)
			return nil
		})
	}
	g.Go(func() error {
		related = s.resolveRelated(gctx, relatedCandidates(ids, req.LandmarkID))
		return nil
	})
	_ = g.Wait()

	if focusAdded && landmarkName != "" && !contains(names, landmarkName) {
		names = append(names, landmarkName)
	}

	sources := PrepareSources(rc.Passages, maxSources)
	resp := &domain.ResearchResponse{
		ConversationID:   conversationID,
		Query:            req.Query,
		Report:           text,
		Timestamp:        s.now(),
		Images:           images,
		Sources:          sources,
		LandmarkID:       req.LandmarkID,
		LandmarkName:     landmarkName,
		RelatedLandmarks: related,
		SuggestedQueries: SuggestedQueries(req.Query, text),
	}

	s.deps.Memory.AddEntry(ctx, conversationID, domain.Turn{
		Query:         req.Query,
		Response:      text,
		LandmarkIDs:   ids,
		LandmarkNames: names,
		SourcesUsed:   sourceMaps(sources),
	})

	if s.metrics != nil {
		s.metrics.ReportsGenerated.Inc()
		s.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	}
	log.Info("research report generated",
		zap.Int("sources", len(sources)),
		zap.Int("landmarks", len(ids)),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// ConversationHistory projects a conversation's entries into responses. An
// unknown or expired conversation yields an empty slice.
func (s *ResearchService) ConversationHistory(ctx context.Context, conversationID string) ([]domain.ResearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []domain.ResearchResponse{}
	conv, ok := s.deps.Memory.GetConversation(ctx, conversationID)
	if !ok {
		return out, nil
	}
	for _, e := range conv.Entries {
		out = append(out, domain.ResearchResponse{
			ConversationID:   conversationID,
			Query:            e.Query,
			Report:           e.Response,
			Timestamp:        e.Timestamp,
			Images:           []domain.LandmarkImage{},
			Sources:          []domain.SourceDocument{},
			RelatedLandmarks: []domain.RelatedLandmark{},
			SuggestedQueries: []string{},
		})
	}
	return out, nil
}

// DeleteConversation removes a conversation from memory.
func (s *ResearchService) DeleteConversation(ctx context.Context, conversationID string) bool {
	return s.deps.Memory.DeleteConversation(ctx, conversationID)
}

func (s *ResearchService) resolveConversation(ctx context.Context, id string) (string, []domain.HistoryTurn) {
	if id == "" {
		return s.deps.Memory.CreateConversation(ctx), nil
	}
	return id, s.deps.Memory.GetConversationHistory(ctx, id)
}

func (s *ResearchService) buildContext(ctx context.Context, req domain.ResearchRequest, conversationID string, history []domain.HistoryTurn) domain.ResearchContext {
	rc := domain.ResearchContext{
		Query:          req.Query,
		ConversationID: conversationID,
		LandmarkID:     req.LandmarkID,
		History:        history,
		Passages:       []domain.SourcePassage{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		passages, err := guarded(gctx, s.sem, func(ctx context.Context) ([]domain.SourcePassage, error) {
			return s.deps.Passages.Search(ctx, req.Query, s.cfg.PassageTopK, req.LandmarkID), nil
		})
		if err != nil {
			s.enrichmentFailed("passages", err)
			return nil
		}
		if passages != nil {
			rc.Passages = passages
		}
		return nil
	})
	if req.LandmarkID != "" {
		g.Go(func() error {
			detail, err := guarded(gctx, s.sem, func(ctx context.Context) (*domain.LandmarkDetail, error) {
				return s.deps.Landmarks.GetLandmarkByID(ctx, req.LandmarkID)
			})
			if err != nil {
				s.enrichmentFailed("landmark_detail", err)
				return nil
			}
			rc.Landmark = detail
			return nil
		})
	}
	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.PassagesRetrieved.Observe(float64(len(rc.Passages)))
	}
	return rc
}

func (s *ResearchService) fetchImages(ctx context.Context, landmarkID string) []domain.LandmarkImage {
	photos, err := guarded(ctx, s.sem, func(ctx context.Context) ([]domain.LandmarkPhoto, error) {
		return s.deps.Landmarks.GetLandmarkPhotos(ctx, landmarkID)
	})
	if err != nil {
		s.enrichmentFailed("images", err, zap.String("landmark_id", landmarkID))
		return []domain.LandmarkImage{}
	}
	return toImages(photos)
}

// resolveRelated looks up names concurrently and keeps the order of ids.
func (s *ResearchService) resolveRelated(ctx context.Context, ids []string) []domain.RelatedLandmark {
	slots := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			slots[i] = s.landmarkName(gctx, id, "related")
			return nil
		})
	}
	_ = g.Wait()

	related := []domain.RelatedLandmark{}
	for i, name := range slots {
		if name == "" {
			continue
		}
		related = append(related, domain.RelatedLandmark{ID: ids[i], Name: name})
	}
	return related
}

// landmarkName returns "" when the landmark is unknown or the lookup fails.
func (s *ResearchService) landmarkName(ctx context.Context, id, stage string) string {
	detail, err := guarded(ctx, s.sem, func(ctx context.Context) (*domain.LandmarkDetail, error) {
		return s.deps.Landmarks.GetLandmarkByID(ctx, id)
	})
	if err != nil {
		s.enrichmentFailed(stage, err, zap.String("landmark_id", id))
		return ""
	}
	if detail == nil {
		return ""
	}
	return detail.Name
}

func (s *ResearchService) enrichmentFailed(stage string, err error, fields ...zap.Field) {
	s.logger.Warn("enrichment step failed", append(fields, zap.String("stage", stage), zap.Error(err))...)
	if s.metrics != nil {
		s.metrics.EnrichmentErrors.WithLabelValues(stage).Inc()
	}
}

// guarded runs fn while holding one slot of the call pool.
func guarded[T any](ctx context.Context, sem *semaphore.Weighted, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	defer sem.Release(1)
	return fn(ctx)
}

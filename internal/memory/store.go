package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"landmarks/internal/config"
	"landmarks/internal/domain"
)

// Store keeps conversations in process memory and expires them after a TTL.
// Every operation that consults the map sweeps expired conversations first,
// under the same lock as the operation itself.
type Store struct {
	mu            sync.Mutex
	enabled       bool
	ttl           time.Duration
	now           func() time.Time
	conversations map[string]*domain.Conversation
	logger        *zap.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore builds a store from the memory section of the config.
func NewStore(cfg config.MemoryConfig, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		enabled:       cfg.Enabled,
		ttl:           cfg.TTL(),
		now:           time.Now,
		conversations: make(map[string]*domain.Conversation),
		logger:        logger.Named("memory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether conversations are retained at all.
func (s *Store) Enabled() bool { return s.enabled }

// CreateConversation registers a new empty conversation and returns its id.
// When memory is disabled the id is returned without storing anything.
func (s *Store) CreateConversation(ctx context.Context) string {
	id := uuid.NewString()
	if !s.enabled {
		return id
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	now := s.now()
	s.conversations[id] = &domain.Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Entries:   []domain.MemoryEntry{},
		Metadata:  map[string]any{},
	}
	s.logger.Debug("conversation created", zap.String("conversation_id", id))
	return id
}

// AddEntry appends one exchange to a conversation, creating it under the given
// id if it is unknown. The landmark focus is set from the first landmark id the
// first time one is seen and never changes afterwards.
func (s *Store) AddEntry(ctx context.Context, conversationID string, turn domain.Turn) bool {
	if !s.enabled {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	now := s.now()
	conv, ok := s.conversations[conversationID]
	if !ok {
		conv = &domain.Conversation{
			ID:        conversationID,
			CreatedAt: now,
			UpdatedAt: now,
			Entries:   []domain.MemoryEntry{},
			Metadata:  map[string]any{},
		}
		s.conversations[conversationID] = conv
		s.logger.Debug("conversation created on append", zap.String("conversation_id", conversationID))
	}

	entry := domain.MemoryEntry{
		ConversationID: conversationID,
		Timestamp:      now,
		Query:          turn.Query,
		Response:       turn.Response,
		LandmarkIDs:    append([]string{}, turn.LandmarkIDs...),
		LandmarkNames:  append([]string{}, turn.LandmarkNames...),
		SourcesUsed:    copySources(turn.SourcesUsed),
	}
	conv.Entries = append(conv.Entries, entry)
	if now.After(conv.UpdatedAt) {
		conv.UpdatedAt = now
	}
	if conv.LandmarkFocus == "" && len(turn.LandmarkIDs) > 0 {
		conv.LandmarkFocus = turn.LandmarkIDs[0]
	}
	return true
}

// GetConversation returns a deep copy of the conversation, or false when it is
// unknown, expired or memory is disabled.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, bool) {
	if !s.enabled {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// GetConversationHistory returns the query/response pairs in append order.
func (s *Store) GetConversationHistory(ctx context.Context, conversationID string) []domain.HistoryTurn {
	conv, ok := s.GetConversation(ctx, conversationID)
	if !ok {
		return []domain.HistoryTurn{}
	}
	return conv.History()
}

// DeleteConversation removes a conversation. It reports false only when memory
// is enabled and the id is unknown.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) bool {
	if !s.enabled {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	if _, ok := s.conversations[conversationID]; !ok {
		return false
	}
	delete(s.conversations, conversationID)
	s.logger.Debug("conversation deleted", zap.String("conversation_id", conversationID))
	return true
}

// Sweep drops expired conversations and returns how many were removed.
func (s *Store) Sweep() int {
	if !s.enabled {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Len returns the number of live conversations, expired ones included until the next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

func (s *Store) sweepLocked() int {
	now := s.now()
	removed := 0
	for id, conv := range s.conversations {
		if now.Sub(conv.UpdatedAt) > s.ttl {
			delete(s.conversations, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("expired conversations removed", zap.Int("count", removed))
	}
	return removed
}

func copySources(in []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(in))
	for _, m := range in {
		c := make(map[string]any, len(m))
		for k, v := range m {
			c[k] = v
		}
		out = append(out, c)
	}
	return out
}

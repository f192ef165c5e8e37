package orchestrator

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rapport/internal/analysis"
	"rapport/internal/domain"
	"rapport/internal/emotion"
	"rapport/internal/score"
)

var ErrConversationRequired = errors.New("conversation_id is required")

// ScoreStore persists score events and conversation snapshots.
type ScoreStore interface {
	SaveScoreEvent(ctx context.Context, conversationID string, ev score.Event) error
	UpsertSnapshot(ctx context.Context, snap score.Snapshot) error
	ListSnapshots(ctx context.Context) ([]score.RestoreState, error)
	RecentEvents(ctx context.Context, conversationID string, limit int) ([]score.Event, error)
	DeleteScoreEvents(ctx context.Context, conversationID string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

type ScorePublisher interface {
	PublishScore(ctx context.Context, payload domain.ScoreUpdatePayload) error
}

type Config struct {
	StoreTimeout time.Duration
}

type Service struct {
	pipeline     *analysis.Pipeline
	engine       *score.Engine
	store        ScoreStore
	publisher    ScorePublisher
	storeTimeout time.Duration
	logger       *slog.Logger

	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	// persistence of one conversation (event write, snapshot flush, reset,
	// evict) runs under that conversation's stripe
	convLocks [lockStripes]sync.Mutex
}

const lockStripes = 64

// New wires the pipeline to the score engine. store and publisher may be nil.
func New(cfg Config, pipeline *analysis.Pipeline, engine *score.Engine, store ScoreStore, logger *slog.Logger) *Service {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}
	return &Service{
		pipeline:     pipeline,
		engine:       engine,
		store:        store,
		storeTimeout: cfg.StoreTimeout,
		logger:       logger,
		dirty:        make(map[string]struct{}),
	}
}

func (s *Service) SetPublisher(p ScorePublisher) {
	s.publisher = p
}

func (s *Service) Engine() *score.Engine {
	return s.engine
}

// HandleMessage analyzes one message, applies it to the conversation score
// and returns the combined outcome.
func (s *Service) HandleMessage(ctx context.Context, in domain.MessageInput) (domain.MessageOutcome, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return domain.MessageOutcome{}, ErrConversationRequired
	}
	messageID := strings.TrimSpace(in.MessageID)
	if messageID == "" {
		messageID = uuid.NewString()
	}

	started := time.Now()
	result := s.pipeline.Analyze(ctx, in.Text)
	update := s.RecordScore(ctx, conversationID, in.SenderID, result.Label, result.Confidence)

	s.logger.Info("message scored",
		"conversation_id", conversationID,
		"message_id", messageID,
		"label", result.Label,
		"confidence", result.Confidence,
		"source", result.Source,
		"score", update.NewScore,
		"points", update.PointsApplied,
		"elapsed_ms", time.Since(started).Milliseconds(),
	)

	outcome := domain.MessageOutcome{
		ConversationID: conversationID,
		MessageID:      messageID,
		SenderID:       in.SenderID,
		Analysis:       result,
		Score:          update,
	}
	s.publish(ctx, outcome)
	return outcome, nil
}

// RecordScore applies an already classified message to the conversation.
func (s *Service) RecordScore(ctx context.Context, conversationID, senderID string, c emotion.Category, confidence float64) score.UpdateResult {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	update := s.engine.Update(conversationID, senderID, c, confidence)
	s.markDirty(conversationID)

	if s.store != nil {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
		defer cancel()
		if err := s.store.SaveScoreEvent(storeCtx, conversationID, update.Event); err != nil {
			s.logger.Warn("persist score event failed", "conversation_id", conversationID, "event_id", update.Event.ID, "error", err)
		}
	}
	return update
}

func (s *Service) Reset(ctx context.Context, conversationID string) score.Snapshot {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	snap := s.engine.Reset(conversationID)
	s.clearDirty(conversationID)
	if s.store != nil {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
		defer cancel()
		if err := s.store.DeleteScoreEvents(storeCtx, conversationID); err != nil {
			s.logger.Warn("delete score events failed", "conversation_id", conversationID, "error", err)
		}
		if err := s.store.UpsertSnapshot(storeCtx, snap); err != nil {
			s.logger.Warn("persist reset snapshot failed", "conversation_id", conversationID, "error", err)
		}
	}
	s.logger.Info("conversation reset", "conversation_id", conversationID)
	return snap
}

func (s *Service) Evict(ctx context.Context, conversationID string) bool {
	unlock := s.lockConversation(conversationID)
	defer unlock()

	existed := s.engine.Evict(conversationID)
	s.clearDirty(conversationID)
	if s.store != nil {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
		defer cancel()
		if err := s.store.DeleteConversation(storeCtx, conversationID); err != nil {
			s.logger.Debug("delete conversation failed", "conversation_id", conversationID, "error", err)
		}
	}
	s.logger.Info("conversation evicted", "conversation_id", conversationID, "existed", existed)
	return existed
}

// Restore seeds the engine with every persisted snapshot and its most
// recent events.
func (s *Service) Restore(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	states, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return 0, err
	}
	limit := s.engine.HistoryLimit()
	for _, st := range states {
		events, err := s.store.RecentEvents(ctx, st.ConversationID, limit)
		if err != nil {
			s.logger.Warn("load score events failed, restoring without history", "conversation_id", st.ConversationID, "error", err)
		} else {
			st.History = events
		}
		s.engine.Restore(st)
	}
	s.logger.Info("conversation scores restored", "count", len(states))
	return len(states), nil
}

func (s *Service) publish(ctx context.Context, outcome domain.MessageOutcome) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishScore(ctx, ScorePayload(outcome)); err != nil {
		s.logger.Warn("publish score update failed", "conversation_id", outcome.ConversationID, "error", err)
	}
}

func ScorePayload(outcome domain.MessageOutcome) domain.ScoreUpdatePayload {
	ts := outcome.Score.Event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return domain.ScoreUpdatePayload{
		ConversationID: outcome.ConversationID,
		MessageID:      outcome.MessageID,
		SenderID:       outcome.SenderID,
		Label:          string(outcome.Analysis.Label),
		Confidence:     outcome.Analysis.Confidence,
		Source:         string(outcome.Analysis.Source),
		Explanation:    outcome.Analysis.Explanation,
		NewScore:       outcome.Score.NewScore,
		PointsApplied:  outcome.Score.PointsApplied,
		Health:         outcome.Score.Health,
		Recommendation: outcome.Score.Recommendation,
		TS:             ts.Format(time.RFC3339Nano),
	}
}

func (s *Service) lockConversation(conversationID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	mu := &s.convLocks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) markDirty(conversationID string) {
	s.dirtyMu.Lock()
	s.dirty[conversationID] = struct{}{}
	s.dirtyMu.Unlock()
}

func (s *Service) clearDirty(conversationID string) {
	s.dirtyMu.Lock()
	delete(s.dirty, conversationID)
	s.dirtyMu.Unlock()
}

func (s *Service) takeDirty() []string {
	s.dirtyMu.Lock()
	defer s.dirtyMu.Unlock()
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.dirty = make(map[string]struct{})
	return ids
}

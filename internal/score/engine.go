package score

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rapport/internal/emotion"
)

// GottmanRatio is the positive-to-negative ratio considered healthy.
const GottmanRatio = 5.0

type Config struct {
	BaseScore    int
	HistoryLimit int
	Now          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		BaseScore:    50,
		HistoryLimit: 100,
		Now:          time.Now,
	}
}

type Event struct {
	ID            string           `json:"id"`
	Timestamp     time.Time        `json:"timestamp"`
	SenderID      string           `json:"sender_id"`
	Emotion       emotion.Category `json:"emotion"`
	Confidence    float64          `json:"confidence"`
	PointsApplied int              `json:"points_applied"`
	ScoreBefore   int              `json:"score_before"`
	ScoreAfter    int              `json:"score_after"`
}

type UpdateResult struct {
	ConversationID string `json:"conversation_id"`
	NewScore       int    `json:"new_score"`
	PointsApplied  int    `json:"points_applied"`
	Health         Health `json:"health"`
	Recommendation string `json:"recommendation"`
	Event          Event  `json:"event"`
}

type Snapshot struct {
	ConversationID string                   `json:"conversation_id"`
	CurrentScore   int                      `json:"current_score"`
	Health         Health                   `json:"health"`
	Participants   []string                 `json:"participants"`
	EmotionCounts  map[emotion.Category]int `json:"emotion_counts"`
	History        []Event                  `json:"history"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

type Statistics struct {
	TotalMessages    int                      `json:"total_messages"`
	PositiveMessages int                      `json:"positive_messages"`
	NegativeMessages int                      `json:"negative_messages"`
	Ratio            float64                  `json:"ratio"`
	GottmanHealthy   bool                     `json:"gottman_healthy"`
	CurrentScore     int                      `json:"current_score"`
	EmotionBreakdown map[emotion.Category]int `json:"emotion_breakdown"`
}

// RestoreState seeds a conversation from a persisted snapshot. History is
// oldest first; only the newest HistoryLimit events are kept.
type RestoreState struct {
	ConversationID string
	CurrentScore   int
	Participants   []string
	EmotionCounts  map[emotion.Category]int
	History        []Event
	UpdatedAt      time.Time
}

type conversation struct {
	mu           sync.Mutex
	score        int
	history      []Event
	participants map[string]struct{}
	counts       map[emotion.Category]int
	updatedAt    time.Time
}

// Engine keeps one running score per conversation. Updates to the same
// conversation are serialized by that conversation's lock; different
// conversations never contend beyond the map lookup.
type Engine struct {
	cfg Config

	mu            sync.RWMutex
	conversations map[string]*conversation
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.BaseScore < 0 || cfg.BaseScore > 100 {
		cfg.BaseScore = def.BaseScore
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Engine{
		cfg:           cfg,
		conversations: make(map[string]*conversation),
	}
}

func (e *Engine) BaseScore() int {
	return e.cfg.BaseScore
}

func (e *Engine) HistoryLimit() int {
	return e.cfg.HistoryLimit
}

func (e *Engine) Update(conversationID, senderID string, c emotion.Category, confidence float64) UpdateResult {
	if !c.Valid() {
		c = emotion.Neutral
	}
	if math.IsNaN(confidence) {
		confidence = 0
	}
	conv := e.getOrCreate(conversationID)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	points := PointsFor(c, confidence)
	before := conv.score
	after := clampInt(before+points, 0, 100)
	now := e.cfg.Now().UTC()

	ev := Event{
		ID:            uuid.NewString(),
		Timestamp:     now,
		SenderID:      senderID,
		Emotion:       c,
		Confidence:    confidence,
		PointsApplied: points,
		ScoreBefore:   before,
		ScoreAfter:    after,
	}
	conv.score = after
	conv.appendEvent(ev, e.cfg.HistoryLimit)
	conv.counts[c]++
	if strings.TrimSpace(senderID) != "" {
		conv.participants[senderID] = struct{}{}
	}
	conv.updatedAt = now

	return UpdateResult{
		ConversationID: conversationID,
		NewScore:       after,
		PointsApplied:  points,
		Health:         HealthStatus(after),
		Recommendation: Recommendation(after, c, points),
		Event:          ev,
	}
}

func (e *Engine) Get(conversationID string) (Snapshot, bool) {
	conv, ok := e.lookup(conversationID)
	if !ok {
		return Snapshot{}, false
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.snapshot(conversationID), true
}

// Reset restores the base score and clears history and counters. The
// participant set survives. Unknown conversations are created.
func (e *Engine) Reset(conversationID string) Snapshot {
	conv := e.getOrCreate(conversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.score = e.cfg.BaseScore
	conv.history = nil
	conv.counts = make(map[emotion.Category]int)
	conv.updatedAt = e.cfg.Now().UTC()
	return conv.snapshot(conversationID)
}

// Evict drops all state for a conversation that was permanently removed.
func (e *Engine) Evict(conversationID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.conversations[conversationID]; !ok {
		return false
	}
	delete(e.conversations, conversationID)
	return true
}

func (e *Engine) Statistics(conversationID string) (Statistics, bool) {
	conv, ok := e.lookup(conversationID)
	if !ok {
		return Statistics{}, false
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()

	breakdown := make(map[emotion.Category]int, len(conv.counts))
	total := 0
	for _, k := range emotion.Categories() {
		breakdown[k] = conv.counts[k]
		total += conv.counts[k]
	}
	positive := breakdown[emotion.Excited]
	negative := breakdown[emotion.Angry] + breakdown[emotion.Stressed]
	ratio := float64(positive)
	if negative > 0 {
		ratio = float64(positive) / float64(negative)
	}
	ratio = math.Round(ratio*100) / 100

	return Statistics{
		TotalMessages:    total,
		PositiveMessages: positive,
		NegativeMessages: negative,
		Ratio:            ratio,
		GottmanHealthy:   ratio >= GottmanRatio,
		CurrentScore:     conv.score,
		EmotionBreakdown: breakdown,
	}, true
}

func (e *Engine) Restore(state RestoreState) {
	conv := e.getOrCreate(state.ConversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.score = clampInt(state.CurrentScore, 0, 100)
	history := state.History
	if len(history) > e.cfg.HistoryLimit {
		history = history[len(history)-e.cfg.HistoryLimit:]
	}
	conv.history = make([]Event, len(history))
	copy(conv.history, history)
	conv.counts = make(map[emotion.Category]int, len(state.EmotionCounts))
	for k, v := range state.EmotionCounts {
		if k.Valid() && v > 0 {
			conv.counts[k] = v
		}
	}
	for _, p := range state.Participants {
		if strings.TrimSpace(p) != "" {
			conv.participants[p] = struct{}{}
		}
	}
	conv.updatedAt = state.UpdatedAt
}

func (e *Engine) IDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.conversations))
	for id := range e.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) lookup(conversationID string) (*conversation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	conv, ok := e.conversations[conversationID]
	return conv, ok
}

func (e *Engine) getOrCreate(conversationID string) *conversation {
	if conv, ok := e.lookup(conversationID); ok {
		return conv
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if conv, ok := e.conversations[conversationID]; ok {
		return conv
	}
	conv := &conversation{
		score:        e.cfg.BaseScore,
		participants: make(map[string]struct{}),
		counts:       make(map[emotion.Category]int),
	}
	e.conversations[conversationID] = conv
	return conv
}

func (c *conversation) appendEvent(ev Event, limit int) {
	if len(c.history) >= limit {
		drop := len(c.history) - limit + 1
		copy(c.history, c.history[drop:])
		c.history = c.history[:len(c.history)-drop]
	}
	c.history = append(c.history, ev)
}

func (c *conversation) snapshot(conversationID string) Snapshot {
	participants := make([]string, 0, len(c.participants))
	for p := range c.participants {
		participants = append(participants, p)
	}
	sort.Strings(participants)

	counts := make(map[emotion.Category]int, len(c.counts))
	for k, v := range c.counts {
		counts[k] = v
	}
	history := make([]Event, len(c.history))
	copy(history, c.history)

	return Snapshot{
		ConversationID: conversationID,
		CurrentScore:   c.score,
		Health:         HealthStatus(c.score),
		Participants:   participants,
		EmotionCounts:  counts,
		History:        history,
		UpdatedAt:      c.updatedAt,
	}
}

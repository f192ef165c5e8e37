package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rapport/internal/emotion"
	"rapport/internal/score"
)

var ErrConversationNotFound = errors.New("conversation not found")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS conversation_scores (
			conversation_id TEXT PRIMARY KEY,
			current_score INT NOT NULL DEFAULT 50,
			participants JSONB NOT NULL DEFAULT '[]'::jsonb,
			emotion_counts JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS score_events (
			event_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id TEXT NOT NULL DEFAULT '',
			emotion TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			points_applied INT NOT NULL,
			score_before INT NOT NULL,
			score_after INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_score_events_conversation_created ON score_events(conversation_id, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveScoreEvent(ctx context.Context, conversationID string, ev score.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO score_events(event_id, conversation_id, sender_id, emotion, confidence, points_applied, score_before, score_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`, ev.ID, conversationID, ev.SenderID, string(ev.Emotion), ev.Confidence, ev.PointsApplied, ev.ScoreBefore, ev.ScoreAfter, ev.Timestamp)
	return err
}

func (s *Store) UpsertSnapshot(ctx context.Context, snap score.Snapshot) error {
	participants := snap.Participants
	if participants == nil {
		participants = []string{}
	}
	participantsJSON, err := json.Marshal(participants)
	if err != nil {
		return err
	}
	counts := snap.EmotionCounts
	if counts == nil {
		counts = map[emotion.Category]int{}
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversation_scores(conversation_id, current_score, participants, emotion_counts, updated_at)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, $5)
		ON CONFLICT (conversation_id)
		DO UPDATE SET
			current_score = EXCLUDED.current_score,
			participants = EXCLUDED.participants,
			emotion_counts = EXCLUDED.emotion_counts,
			updated_at = EXCLUDED.updated_at
	`, snap.ConversationID, snap.CurrentScore, string(participantsJSON), string(countsJSON), updatedAt)
	return err
}

func (s *Store) ListSnapshots(ctx context.Context) ([]score.RestoreState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, current_score, participants, emotion_counts, updated_at
		FROM conversation_scores
		ORDER BY conversation_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]score.RestoreState, 0)
	for rows.Next() {
		state, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (s *Store) RecentEvents(ctx context.Context, conversationID string, limit int) ([]score.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, sender_id, emotion, confidence, points_applied, score_before, score_after, created_at
		FROM score_events
		WHERE conversation_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]score.Event, 0, limit)
	for rows.Next() {
		var ev score.Event
		var label string
		if err := rows.Scan(&ev.ID, &ev.SenderID, &label, &ev.Confidence, &ev.PointsApplied, &ev.ScoreBefore, &ev.ScoreAfter, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.Emotion = emotion.Category(label)
		ev.Timestamp = ev.Timestamp.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// oldest first, same order as the in-memory history
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) DeleteScoreEvents(ctx context.Context, conversationID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM score_events WHERE conversation_id=$1`, conversationID)
	return err
}

func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM score_events WHERE conversation_id=$1`, conversationID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM conversation_scores WHERE conversation_id=$1`, conversationID)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func scanSnapshot(row pgx.Row) (score.RestoreState, error) {
	var out score.RestoreState
	var participantsRaw []byte
	var countsRaw []byte
	if err := row.Scan(&out.ConversationID, &out.CurrentScore, &participantsRaw, &countsRaw, &out.UpdatedAt); err != nil {
		return score.RestoreState{}, err
	}
	if err := json.Unmarshal(participantsRaw, &out.Participants); err != nil {
		return score.RestoreState{}, err
	}
	if err := json.Unmarshal(countsRaw, &out.EmotionCounts); err != nil {
		return score.RestoreState{}, err
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}

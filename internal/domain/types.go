package domain

import (
	"rapport/internal/analysis"
	"rapport/internal/score"
)

// MessageInput is one chat message handed to the engine by the chat surface.
type MessageInput struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
	SenderID       string `json:"sender_id"`
	Text           string `json:"text"`
	TS             string `json:"ts,omitempty"`
}

type MessageOutcome struct {
	ConversationID string             `json:"conversation_id"`
	MessageID      string             `json:"message_id"`
	SenderID       string             `json:"sender_id"`
	Analysis       analysis.Result    `json:"analysis"`
	Score          score.UpdateResult `json:"score"`
}

// MQTT payloads

type ScoreUpdatePayload struct {
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	SenderID       string       `json:"sender_id"`
	Label          string       `json:"label"`
	Confidence     float64      `json:"confidence"`
	Source         string       `json:"source"`
	Explanation    string       `json:"explanation"`
	NewScore       int          `json:"new_score"`
	PointsApplied  int          `json:"points_applied"`
	Health         score.Health `json:"health"`
	Recommendation string       `json:"recommendation"`
	TS             string       `json:"ts"`
}

type ConversationCommandResult struct {
	ConversationID string `json:"conversation_id"`
	Command        string `json:"command"`
	OK             bool   `json:"ok"`
	CurrentScore   int    `json:"current_score,omitempty"`
	TS             string `json:"ts"`
}

package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport/internal/domain"
	"rapport/internal/mqtt"
	"rapport/internal/score"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		kind   string
		sender string
		text   string
		ok     bool
	}{
		{name: "blank", line: "   ", ok: false},
		{name: "default sender", line: "see you at 6", kind: mqtt.KindMessage, sender: "me", text: "see you at 6", ok: true},
		{name: "explicit sender", line: "alice: love you!", kind: mqtt.KindMessage, sender: "alice", text: "love you!", ok: true},
		{name: "colon in sentence", line: "note this: call mom", kind: mqtt.KindMessage, sender: "me", text: "note this: call mom", ok: true},
		{name: "time is not a sender", line: ":) hi", kind: mqtt.KindMessage, sender: "me", text: ":) hi", ok: true},
		{name: "sender without text", line: "bob:", ok: false},
		{name: "reset", line: "/reset", kind: mqtt.KindReset, ok: true},
		{name: "evict", line: "/EVICT", kind: mqtt.KindEvict, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, msg, ok := parseLine(tt.line, "me")
			assert.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.sender, msg.SenderID)
			assert.Equal(t, tt.text, msg.Text)
		})
	}
}

func TestFormatScore(t *testing.T) {
	got := formatScore(domain.ScoreUpdatePayload{
		Label:         "angry",
		Confidence:    0.95,
		Source:        "fallback",
		NewScore:      36,
		PointsApplied: -14,
		Health:        score.Health{Status: score.StatusConcerning},
		Explanation:   "They are upset with you.",
	})
	assert.Contains(t, got, "[angry 0.95 fallback] score=36 (-14) concerning")
	assert.Contains(t, got, "They are upset with you.")
}

func TestScanLinesStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lines, errCh := scanLines(ctx, strings.NewReader("first\nsecond\n"))
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scanner goroutine still blocked after cancel")
	}
	_, open := <-lines
	assert.False(t, open)
}

func TestScanLinesReadsToEOF(t *testing.T) {
	lines, errCh := scanLines(context.Background(), strings.NewReader("a\nb\n"))
	var got []string
	for line := range lines {
		got = append(got, line)
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.NoError(t, <-errCh)
}

package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport/internal/domain"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "rapport/conversation/+/message", TopicConversationMessages("rapport"))
	assert.Equal(t, "rapport/conversation/+/reset", TopicConversationResets("rapport"))
	assert.Equal(t, "rapport/conversation/+/evict", TopicConversationEvictions("rapport"))
	assert.Equal(t, "rapport/conversation/c1/score", TopicScore("rapport", "c1"))
	assert.Equal(t, "a/b/conversation/c1/ack", TopicAck("a/b", "c1"))
	assert.Equal(t, "rapport/conversation/c1/reset", TopicConversation("rapport", "c1", KindReset))
}

func TestParseConversationTopic(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		prefix  string
		id      string
		kind    string
		wantErr bool
	}{
		{name: "message", topic: "rapport/conversation/c1/message", prefix: "rapport", id: "c1", kind: "message"},
		{name: "nested prefix", topic: "app/prod/conversation/c-9/reset", prefix: "app/prod", id: "c-9", kind: "reset"},
		{name: "wrong prefix", topic: "other/conversation/c1/message", prefix: "rapport", wantErr: true},
		{name: "wrong segment", topic: "rapport/terminal/c1/message", prefix: "rapport", wantErr: true},
		{name: "too short", topic: "rapport/conversation/c1", prefix: "rapport", wantErr: true},
		{name: "too long", topic: "rapport/conversation/c1/message/extra", prefix: "rapport", wantErr: true},
		{name: "empty id", topic: "rapport/conversation//message", prefix: "rapport", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, kind, err := ParseConversationTopic(tt.topic, tt.prefix)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	in, err := DecodeMessage("rapport/conversation/c1/message", "rapport", []byte(`{"message_id":"m1","sender_id":"alice","text":"love you"}`))
	require.NoError(t, err)
	assert.Equal(t, "c1", in.ConversationID)
	assert.Equal(t, "m1", in.MessageID)
	assert.Equal(t, "alice", in.SenderID)
	assert.Equal(t, "love you", in.Text)

	in, err = DecodeMessage("rapport/conversation/c1/message", "rapport", []byte("  see you at 6 "))
	require.NoError(t, err)
	assert.Equal(t, "see you at 6", in.Text)

	_, err = DecodeMessage("rapport/conversation/c1/message", "rapport", []byte(`{"conversation_id":"c2","text":"x"}`))
	require.Error(t, err)

	_, err = DecodeMessage("rapport/conversation/c1/message", "rapport", []byte(`{"text":`))
	require.Error(t, err)

	_, err = DecodeMessage("rapport/conversation/c1/reset", "rapport", nil)
	require.Error(t, err)
}

func TestPublishScoreWithoutConnection(t *testing.T) {
	h := NewHub(HubConfig{TopicPrefix: "rapport"}, nil)
	require.ErrorIs(t, h.PublishScore(t.Context(), domain.ScoreUpdatePayload{ConversationID: "c1"}), ErrNotConnected)
}

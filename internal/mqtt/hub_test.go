package mqtt

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport/internal/domain"
	"rapport/internal/score"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingHandler struct {
	mu     sync.Mutex
	calls  []string
	doneCh chan struct{}
}

func (r *recordingHandler) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	n := len(r.calls)
	r.mu.Unlock()
	if n == 3 {
		close(r.doneCh)
	}
}

func (r *recordingHandler) HandleMessage(_ context.Context, in domain.MessageInput) (domain.MessageOutcome, error) {
	r.record("message:" + in.ConversationID + ":" + in.Text)
	return domain.MessageOutcome{}, nil
}

func (r *recordingHandler) Reset(_ context.Context, id string) score.Snapshot {
	r.record("reset:" + id)
	return score.Snapshot{ConversationID: id, CurrentScore: 50}
}

func (r *recordingHandler) Evict(_ context.Context, id string) bool {
	r.record("evict:" + id)
	return true
}

func TestHubDispatchesInArrivalOrder(t *testing.T) {
	h := NewHub(HubConfig{TopicPrefix: "rapport"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := &recordingHandler{doneCh: make(chan struct{})}
	h.SetHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.dispatch(ctx)

	h.handleMessage(nil, fakeMessage{topic: "rapport/conversation/c1/message", payload: []byte(`{"text":"hi"}`)})
	h.handleMessage(nil, fakeMessage{topic: "rapport/conversation/c1/message", payload: []byte(`{"text":`)})
	h.handleReset(nil, fakeMessage{topic: "rapport/conversation/c1/reset"})
	h.handleEvict(nil, fakeMessage{topic: "rapport/conversation/c2/evict"})

	select {
	case <-handler.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.calls, 3)
	assert.Equal(t, []string{"message:c1:hi", "reset:c1", "evict:c2"}, handler.calls)
}

package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"rapport/internal/domain"
	"rapport/internal/score"
)

type HubConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// ConversationHandler is the part of the orchestrator the hub dispatches to.
type ConversationHandler interface {
	HandleMessage(ctx context.Context, in domain.MessageInput) (domain.MessageOutcome, error)
	Reset(ctx context.Context, conversationID string) score.Snapshot
	Evict(ctx context.Context, conversationID string) bool
}

type Hub struct {
	cfg     HubConfig
	client  paho.Client
	handler ConversationHandler
	logger  *slog.Logger

	// inbound work, handled in arrival order by dispatch
	jobs chan func(ctx context.Context)
}

const (
	jobQueueSize   = 256
	publishTimeout = 5 * time.Second
)

func NewHub(cfg HubConfig, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logger,
		jobs:   make(chan func(ctx context.Context), jobQueueSize),
	}
}

// SetHandler must be called before Start.
func (h *Hub) SetHandler(handler ConversationHandler) {
	h.handler = handler
}

func (h *Hub) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.Error("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		if err := h.subscribeHandlers(); err != nil {
			h.logger.Error("mqtt subscribe failed", "error", err)
		}
	})

	go h.dispatch(ctx)

	h.client = paho.NewClient(opts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	h.logger.Info("mqtt connected", "broker", h.cfg.BrokerURL, "topic_prefix", h.cfg.TopicPrefix)

	go func() {
		<-ctx.Done()
		h.client.Disconnect(100)
	}()

	return nil
}

func (h *Hub) subscribeHandlers() error {
	if token := h.client.Subscribe(TopicConversationMessages(h.cfg.TopicPrefix), 1, h.handleMessage); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicConversationResets(h.cfg.TopicPrefix), 1, h.handleReset); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicConversationEvictions(h.cfg.TopicPrefix), 1, h.handleEvict); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (h *Hub) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-h.jobs:
			job(ctx)
		}
	}
}

func (h *Hub) enqueue(topic string, job func(ctx context.Context)) {
	select {
	case h.jobs <- job:
	default:
		h.logger.Warn("mqtt job queue full, dropping message", "topic", topic)
	}
}

func (h *Hub) handleMessage(_ paho.Client, msg paho.Message) {
	in, err := DecodeMessage(msg.Topic(), h.cfg.TopicPrefix, msg.Payload())
	if err != nil {
		h.logger.Warn("skip invalid conversation message", "topic", msg.Topic(), "error", err)
		return
	}
	if h.handler == nil {
		return
	}
	// the orchestrator publishes the score update
	h.enqueue(msg.Topic(), func(ctx context.Context) {
		if _, err := h.handler.HandleMessage(ctx, in); err != nil {
			h.logger.Warn("handle conversation message failed", "conversation_id", in.ConversationID, "error", err)
		}
	})
}

func (h *Hub) handleReset(_ paho.Client, msg paho.Message) {
	conversationID, err := ParseConversationID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid reset topic", "topic", msg.Topic(), "error", err)
		return
	}
	if h.handler == nil {
		return
	}
	h.enqueue(msg.Topic(), func(ctx context.Context) {
		snap := h.handler.Reset(ctx, conversationID)
		h.ack(conversationID, domain.ConversationCommandResult{
			ConversationID: conversationID,
			Command:        KindReset,
			OK:             true,
			CurrentScore:   snap.CurrentScore,
		})
	})
}

func (h *Hub) handleEvict(_ paho.Client, msg paho.Message) {
	conversationID, err := ParseConversationID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid evict topic", "topic", msg.Topic(), "error", err)
		return
	}
	if h.handler == nil {
		return
	}
	h.enqueue(msg.Topic(), func(ctx context.Context) {
		existed := h.handler.Evict(ctx, conversationID)
		h.ack(conversationID, domain.ConversationCommandResult{
			ConversationID: conversationID,
			Command:        KindEvict,
			OK:             existed,
		})
	})
}

func (h *Hub) ack(conversationID string, result domain.ConversationCommandResult) {
	if h.client == nil {
		return
	}
	result.TS = time.Now().UTC().Format(time.RFC3339Nano)
	body, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := h.publish(TopicAck(h.cfg.TopicPrefix, conversationID), body); err != nil {
		h.logger.Warn("publish command ack failed", "conversation_id", conversationID, "error", err)
	}
}

func (h *Hub) PublishScore(_ context.Context, payload domain.ScoreUpdatePayload) error {
	if h.client == nil || !h.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.publish(TopicScore(h.cfg.TopicPrefix, payload.ConversationID), body)
}

func (h *Hub) publish(topic string, body []byte) error {
	token := h.client.Publish(topic, 1, false, body)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// DecodeMessage builds a MessageInput from an inbound message topic and
// payload. A plain-text payload is accepted as the message text.
func DecodeMessage(topic, prefix string, payload []byte) (domain.MessageInput, error) {
	conversationID, kind, err := ParseConversationTopic(topic, prefix)
	if err != nil {
		return domain.MessageInput{}, err
	}
	if kind != KindMessage {
		return domain.MessageInput{}, errUnexpectedKind(kind)
	}

	var in domain.MessageInput
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(payload, &in); err != nil {
			return domain.MessageInput{}, err
		}
	} else {
		in.Text = trimmed
	}
	if in.ConversationID != "" && in.ConversationID != conversationID {
		return domain.MessageInput{}, errConversationMismatch(conversationID, in.ConversationID)
	}
	in.ConversationID = conversationID
	return in, nil
}

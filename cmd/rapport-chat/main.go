package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"rapport/internal/config"
	"rapport/internal/domain"
	"rapport/internal/mqtt"
)

// rapport-chat plays the chat surface: every stdin line is published as a
// conversation message and the score update is printed when it arrives.
// Lines look like "alice: text"; without a sender prefix the default sender
// is used. "/reset" and "/evict" send the matching commands.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.LoadChatClientConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scores := make(chan domain.ScoreUpdatePayload, 16)
	client, err := startMQTT(cfg, scores, logger)
	if err != nil {
		logger.Error("start chat mqtt failed", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(100)

	logger.Info("chat simulator ready", "conversation_id", cfg.ConversationID, "topic_prefix", cfg.MQTTTopicPrefix)
	if err := runLoop(ctx, os.Stdin, os.Stdout, client, cfg, scores); err != nil {
		logger.Error("chat loop failed", "error", err)
		os.Exit(1)
	}
}

func startMQTT(cfg config.ChatClientConfig, scores chan<- domain.ScoreUpdatePayload, logger *slog.Logger) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	scoreTopic := mqtt.TopicScore(cfg.MQTTTopicPrefix, cfg.ConversationID)
	if token := client.Subscribe(scoreTopic, 1, func(_ paho.Client, msg paho.Message) {
		var payload domain.ScoreUpdatePayload
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			logger.Warn("invalid score payload", "error", err)
			return
		}
		select {
		case scores <- payload:
		default:
		}
	}); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	ackTopic := mqtt.TopicAck(cfg.MQTTTopicPrefix, cfg.ConversationID)
	if token := client.Subscribe(ackTopic, 1, func(_ paho.Client, msg paho.Message) {
		logger.Info("command ack", "payload", strings.TrimSpace(string(msg.Payload())))
	}); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

func runLoop(ctx context.Context, in io.Reader, out io.Writer, client paho.Client, cfg config.ChatClientConfig, scores <-chan domain.ScoreUpdatePayload) error {
	lines, errCh := scanLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-errCh; err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			}
			if err := handleLine(ctx, line, out, client, cfg, scores); err != nil {
				return err
			}
		}
	}
}

// scanLines feeds lines from in until EOF or ctx is done. errCh receives
// exactly one value before lines is closed.
func scanLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- scanner.Err()
	}()
	return lines, errCh
}

func handleLine(ctx context.Context, line string, out io.Writer, client paho.Client, cfg config.ChatClientConfig, scores <-chan domain.ScoreUpdatePayload) error {
	cmd, msg, ok := parseLine(line, cfg.DefaultSender)
	if !ok {
		return nil
	}
	prefix := cfg.MQTTTopicPrefix
	switch cmd {
	case mqtt.KindReset, mqtt.KindEvict:
		if token := client.Publish(mqtt.TopicConversation(prefix, cfg.ConversationID, cmd), 1, false, []byte("{}")); token.Wait() && token.Error() != nil {
			return token.Error()
		}
		return nil
	}

	msg.ConversationID = cfg.ConversationID
	msg.MessageID = uuid.NewString()
	msg.TS = time.Now().UTC().Format(time.RFC3339Nano)
	buf, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if token := client.Publish(mqtt.TopicMessage(prefix, cfg.ConversationID), 1, false, buf); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	timer := time.NewTimer(cfg.WaitForScore)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			_, _ = fmt.Fprintln(out, "(no score update received)")
			return nil
		case p := <-scores:
			if p.MessageID != msg.MessageID {
				continue
			}
			_, _ = fmt.Fprintln(out, formatScore(p))
			return nil
		}
	}
}

// parseLine returns the command kind ("message", "reset" or "evict") and the
// message to send. Blank lines are skipped.
func parseLine(line, defaultSender string) (string, domain.MessageInput, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", domain.MessageInput{}, false
	}
	switch strings.ToLower(line) {
	case "/reset":
		return mqtt.KindReset, domain.MessageInput{}, true
	case "/evict":
		return mqtt.KindEvict, domain.MessageInput{}, true
	}

	sender := defaultSender
	text := line
	if idx := strings.Index(line, ":"); idx > 0 {
		candidate := strings.TrimSpace(line[:idx])
		if candidate != "" && !strings.ContainsAny(candidate, " \t") {
			sender = candidate
			text = strings.TrimSpace(line[idx+1:])
		}
	}
	if text == "" {
		return "", domain.MessageInput{}, false
	}
	return mqtt.KindMessage, domain.MessageInput{SenderID: sender, Text: text}, true
}

func formatScore(p domain.ScoreUpdatePayload) string {
	return fmt.Sprintf("[%s %.2f %s] score=%d (%+d) %s\n  %s\n  %s",
		p.Label, p.Confidence, p.Source, p.NewScore, p.PointsApplied, p.Health.Status, p.Explanation, p.Recommendation)
}

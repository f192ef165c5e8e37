package mqtt

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected   = errors.New("mqtt client not connected")
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

func errUnexpectedKind(kind string) error {
	return fmt.Errorf("unexpected topic kind: %s", kind)
}

func errConversationMismatch(topicID, payloadID string) error {
	return fmt.Errorf("conversation mismatch: topic %s, payload %s", topicID, payloadID)
}

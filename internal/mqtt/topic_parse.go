package mqtt

import (
	"fmt"
	"strings"
)

// expected: {prefix}/conversation/{conversationId}/{kind}
func ParseConversationTopic(topic, prefix string) (conversationID, kind string, err error) {
	parts := strings.Split(topic, "/")
	prefixParts := strings.Split(prefix, "/")
	if len(parts) != len(prefixParts)+3 {
		return "", "", fmt.Errorf("invalid topic: %s", topic)
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return "", "", fmt.Errorf("topic prefix mismatch: %s", topic)
		}
	}
	if parts[len(prefixParts)] != "conversation" {
		return "", "", fmt.Errorf("invalid topic pattern: %s", topic)
	}
	conversationID = parts[len(prefixParts)+1]
	if conversationID == "" || conversationID == "+" || conversationID == "#" {
		return "", "", fmt.Errorf("invalid conversation id in topic: %s", topic)
	}
	return conversationID, parts[len(prefixParts)+2], nil
}

func ParseConversationID(topic, prefix string) (string, error) {
	id, _, err := ParseConversationTopic(topic, prefix)
	return id, err
}

package mqtt

import "fmt"

const (
	KindMessage = "message"
	KindReset   = "reset"
	KindEvict   = "evict"
	KindScore   = "score"
	KindAck     = "ack"
)

func TopicConversationMessages(prefix string) string {
	return fmt.Sprintf("%s/conversation/+/%s", prefix, KindMessage)
}

func TopicConversationResets(prefix string) string {
	return fmt.Sprintf("%s/conversation/+/%s", prefix, KindReset)
}

func TopicConversationEvictions(prefix string) string {
	return fmt.Sprintf("%s/conversation/+/%s", prefix, KindEvict)
}

func TopicMessage(prefix, conversationID string) string {
	return fmt.Sprintf("%s/conversation/%s/%s", prefix, conversationID, KindMessage)
}

func TopicScore(prefix, conversationID string) string {
	return fmt.Sprintf("%s/conversation/%s/%s", prefix, conversationID, KindScore)
}

func TopicAck(prefix, conversationID string) string {
	return fmt.Sprintf("%s/conversation/%s/%s", prefix, conversationID, KindAck)
}

func TopicConversation(prefix, conversationID, kind string) string {
	return fmt.Sprintf("%s/conversation/%s/%s", prefix, conversationID, kind)
}

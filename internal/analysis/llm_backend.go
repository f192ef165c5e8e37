package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rapport/internal/emotion"
	"rapport/internal/llm"
)

const llmSystemPrompt = `You classify the emotional tone of a single chat message between two people in a relationship.
Choose exactly one label:
- angry: hostility, blame, irritation or contempt
- stressed: anxiety, sadness, overwhelm or distress
- excited: affection, joy, gratitude or enthusiasm
- neutral: informational, logistical or unclear tone
Answer with a JSON object: {"label": "<label>", "confidence": <0..1>, "explanation": "<one short sentence about how the message is likely meant>"}`

// LLMBackend asks a chat-completion model for a verdict.
type LLMBackend struct {
	provider llm.Provider
	model    string
}

func NewLLMBackend(provider llm.Provider, model string) *LLMBackend {
	return &LLMBackend{provider: provider, model: model}
}

func (b *LLMBackend) Name() string {
	if b == nil || b.provider == nil {
		return "llm"
	}
	return "llm:" + b.provider.Name()
}

func (b *LLMBackend) Enabled() bool {
	return b != nil && b.provider != nil && b.model != ""
}

func (b *LLMBackend) Classify(ctx context.Context, text string) (Verdict, error) {
	resp, err := b.provider.Complete(ctx, llm.Request{
		Model:     b.model,
		System:    llmSystemPrompt,
		Messages:  []llm.Message{{Role: "user", Content: strings.TrimSpace(text)}},
		MaxTokens: 200,
		JSONMode:  true,
	})
	if err != nil {
		return Verdict{}, err
	}
	return parseLLMVerdict(resp.Content)
}

func parseLLMVerdict(content string) (Verdict, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return Verdict{}, fmt.Errorf("llm reply has no JSON object")
	}
	var out struct {
		Label       string  `json:"label"`
		Confidence  float64 `json:"confidence"`
		Explanation string  `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Verdict{}, fmt.Errorf("decode llm verdict: %w", err)
	}
	label, ok := emotion.ParseCategory(out.Label)
	if !ok {
		return Verdict{}, fmt.Errorf("llm returned unmapped label %q", out.Label)
	}
	return Verdict{
		Label:       label,
		Confidence:  out.Confidence,
		Explanation: out.Explanation,
	}, nil
}

// extractJSONObject tolerates code fences and prose around the object.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

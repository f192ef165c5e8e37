package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rapport/internal/emotion"
)

// RemoteBackend calls an external emotion service over HTTP.
type RemoteBackend struct {
	baseURL string
	http    *http.Client
}

func NewRemoteBackend(baseURL string, timeout time.Duration) *RemoteBackend {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RemoteBackend{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *RemoteBackend) Name() string {
	return "remote"
}

func (c *RemoteBackend) Enabled() bool {
	return c != nil && c.baseURL != ""
}

func (c *RemoteBackend) Classify(ctx context.Context, text string) (Verdict, error) {
	if !c.Enabled() {
		return Verdict{}, fmt.Errorf("emotion service is not configured")
	}
	payload := map[string]string{"text": strings.TrimSpace(text)}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/emotion/analyze", bytes.NewReader(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Verdict{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return Verdict{}, fmt.Errorf("emotion service status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	// Both the compact PAD schema (emotion, intensity) and a label/confidence
	// schema are accepted.
	var out struct {
		Label       string  `json:"label"`
		Emotion     string  `json:"emotion"`
		Confidence  float64 `json:"confidence"`
		Intensity   float64 `json:"intensity"`
		Explanation string  `json:"explanation"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Verdict{}, err
	}
	raw := out.Label
	if raw == "" {
		raw = out.Emotion
	}
	label, ok := emotion.ParseCategory(raw)
	if !ok {
		return Verdict{}, fmt.Errorf("emotion service returned unmapped label %q", raw)
	}
	conf := out.Confidence
	if conf <= 0 {
		conf = out.Intensity
	}
	return Verdict{
		Label:       label,
		Confidence:  conf,
		Explanation: out.Explanation,
	}, nil
}

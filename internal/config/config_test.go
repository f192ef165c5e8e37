package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RAPPORT_CONFIG_FILE", "RAPPORT_HTTP_ADDR", "RAPPORT_ENHANCED_BACKEND", "RAPPORT_ENHANCED_TIMEOUT_MS",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DB_DSN", "MQTT_BROKER_URL", "RAPPORT_BASE_SCORE", "EMOTION_SERVICE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadServerConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9020", cfg.HTTPAddr)
	assert.Equal(t, BackendNone, cfg.EnhancedBackend)
	assert.Equal(t, 1500*time.Millisecond, cfg.EnhancedTimeout)
	assert.Equal(t, 50, cfg.BaseScore)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.False(t, cfg.PersistenceEnabled())
	assert.False(t, cfg.MQTTEnabled())
}

func TestLoadServerConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rapport.yaml")
	body := `
http_addr: ":7000"
enhanced_backend: openai
enhanced_timeout: 750ms
openai_api_key: ${TEST_RAPPORT_KEY}
db_dsn: postgres://localhost/rapport
history_limit: 40
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("RAPPORT_CONFIG_FILE", path)
	t.Setenv("TEST_RAPPORT_KEY", "sk-from-env")
	t.Setenv("RAPPORT_HTTP_ADDR", ":7100")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.HTTPAddr)
	assert.Equal(t, BackendOpenAI, cfg.EnhancedBackend)
	assert.Equal(t, 750*time.Millisecond, cfg.EnhancedTimeout)
	assert.Equal(t, "sk-from-env", cfg.OpenAIAPIKey)
	assert.Equal(t, 40, cfg.HistoryLimit)
	assert.True(t, cfg.PersistenceEnabled())
}

func TestLoadServerConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "openai without key", env: map[string]string{"RAPPORT_ENHANCED_BACKEND": "openai"}},
		{name: "claude without key", env: map[string]string{"RAPPORT_ENHANCED_BACKEND": "claude"}},
		{name: "unknown backend", env: map[string]string{"RAPPORT_ENHANCED_BACKEND": "bert"}},
		{name: "non-positive timeout", env: map[string]string{"RAPPORT_ENHANCED_TIMEOUT_MS": "0"}},
		{name: "base score out of range", env: map[string]string{"RAPPORT_BASE_SCORE": "120"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadServerConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAPPORT_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadServerConfig()
	require.Error(t, err)
}

func TestLoadChatClientConfig(t *testing.T) {
	t.Setenv("CHAT_CONVERSATION_ID", "c-42")
	t.Setenv("CHAT_SCORE_WAIT_SECONDS", "2")
	t.Setenv("MQTT_TOPIC_PREFIX", "")
	cfg := LoadChatClientConfig()
	assert.Equal(t, "c-42", cfg.ConversationID)
	assert.Equal(t, 2*time.Second, cfg.WaitForScore)
	assert.Equal(t, "rapport", cfg.MQTTTopicPrefix)
}

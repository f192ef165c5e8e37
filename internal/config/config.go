package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendNone   = "none"
	BackendRemote = "remote"
	BackendOpenAI = "openai"
	BackendClaude = "claude"
)

type ServerConfig struct {
	HTTPAddr              string        `yaml:"http_addr"`
	MaxBodyBytes          int64         `yaml:"max_body_bytes"`
	LogLevel              string        `yaml:"log_level"`
	LexiconPath           string        `yaml:"lexicon_path"`
	DBDSN                 string        `yaml:"db_dsn"`
	MQTTBrokerURL         string        `yaml:"mqtt_broker_url"`
	MQTTClientID          string        `yaml:"mqtt_client_id"`
	MQTTUsername          string        `yaml:"mqtt_username"`
	MQTTPassword          string        `yaml:"mqtt_password"`
	MQTTTopicPrefix       string        `yaml:"mqtt_topic_prefix"`
	EnhancedBackend       string        `yaml:"enhanced_backend"`
	EnhancedTimeout       time.Duration `yaml:"enhanced_timeout"`
	EmotionServiceURL     string        `yaml:"emotion_service_url"`
	LLMModel              string        `yaml:"llm_model"`
	OpenAIBaseURL         string        `yaml:"openai_base_url"`
	OpenAIAPIKey          string        `yaml:"openai_api_key"`
	AnthropicBaseURL      string        `yaml:"anthropic_base_url"`
	AnthropicAPIKey       string        `yaml:"anthropic_api_key"`
	BaseScore             int           `yaml:"base_score"`
	HistoryLimit          int           `yaml:"history_limit"`
	SnapshotFlushInterval time.Duration `yaml:"snapshot_flush_interval"`
}

// ChatClientConfig drives the rapport-chat simulator.
type ChatClientConfig struct {
	ConversationID  string
	DefaultSender   string
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	WaitForScore    time.Duration
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:              ":9020",
		MaxBodyBytes:          1 << 20,
		LogLevel:              "info",
		MQTTClientID:          "rapport-server",
		MQTTTopicPrefix:       "rapport",
		EnhancedBackend:       BackendNone,
		EnhancedTimeout:       1500 * time.Millisecond,
		EmotionServiceURL:     "http://localhost:9012",
		LLMModel:              "gpt-4o-mini",
		OpenAIBaseURL:         "https://api.openai.com/v1",
		AnthropicBaseURL:      "https://api.anthropic.com",
		BaseScore:             50,
		HistoryLimit:          100,
		SnapshotFlushInterval: 10 * time.Second,
	}
}

// LoadServerConfig layers defaults, the optional RAPPORT_CONFIG_FILE and
// environment variables, in that order.
func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()

	if path := os.Getenv("RAPPORT_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return ServerConfig{}, err
		}
	}

	cfg.HTTPAddr = getenvDefault("RAPPORT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MaxBodyBytes = getenvInt64Default("RAPPORT_MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LexiconPath = getenvDefault("RAPPORT_LEXICON_PATH", cfg.LexiconPath)
	cfg.DBDSN = getenvDefault("DB_DSN", cfg.DBDSN)
	cfg.MQTTBrokerURL = getenvDefault("MQTT_BROKER_URL", cfg.MQTTBrokerURL)
	cfg.MQTTClientID = getenvDefault("RAPPORT_MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.MQTTUsername = getenvDefault("MQTT_USERNAME", cfg.MQTTUsername)
	cfg.MQTTPassword = getenvDefault("MQTT_PASSWORD", cfg.MQTTPassword)
	cfg.MQTTTopicPrefix = getenvDefault("MQTT_TOPIC_PREFIX", cfg.MQTTTopicPrefix)
	cfg.EnhancedBackend = strings.ToLower(strings.TrimSpace(getenvDefault("RAPPORT_ENHANCED_BACKEND", cfg.EnhancedBackend)))
	cfg.EnhancedTimeout = time.Duration(getenvIntDefault("RAPPORT_ENHANCED_TIMEOUT_MS", int(cfg.EnhancedTimeout/time.Millisecond))) * time.Millisecond
	cfg.EmotionServiceURL = strings.TrimRight(getenvDefault("EMOTION_SERVICE_URL", cfg.EmotionServiceURL), "/")
	cfg.LLMModel = getenvDefault("LLM_MODEL", cfg.LLMModel)
	cfg.OpenAIBaseURL = getenvDefault("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIAPIKey = getenvDefault("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicBaseURL = getenvDefault("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)
	cfg.AnthropicAPIKey = getenvDefault("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.BaseScore = getenvIntDefault("RAPPORT_BASE_SCORE", cfg.BaseScore)
	cfg.HistoryLimit = getenvIntDefault("RAPPORT_HISTORY_LIMIT", cfg.HistoryLimit)
	cfg.SnapshotFlushInterval = time.Duration(getenvIntDefault("RAPPORT_SNAPSHOT_FLUSH_SECONDS", int(cfg.SnapshotFlushInterval/time.Second))) * time.Second

	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func LoadChatClientConfig() ChatClientConfig {
	return ChatClientConfig{
		ConversationID:  getenvDefault("CHAT_CONVERSATION_ID", "conversation-debug-01"),
		DefaultSender:   getenvDefault("CHAT_SENDER_ID", "me"),
		MQTTBrokerURL:   getenvDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:    getenvDefault("CHAT_MQTT_CLIENT_ID", "rapport-chat-debug"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "rapport"),
		WaitForScore:    time.Duration(getenvIntDefault("CHAT_SCORE_WAIT_SECONDS", 5)) * time.Second,
	}
}

func (c ServerConfig) Validate() error {
	switch c.EnhancedBackend {
	case BackendNone:
	case BackendRemote:
		if c.EmotionServiceURL == "" {
			return fmt.Errorf("EMOTION_SERVICE_URL is required when RAPPORT_ENHANCED_BACKEND=remote")
		}
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when RAPPORT_ENHANCED_BACKEND=openai")
		}
	case BackendClaude:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when RAPPORT_ENHANCED_BACKEND=claude")
		}
	default:
		return fmt.Errorf("unknown enhanced backend: %q", c.EnhancedBackend)
	}
	if c.EnhancedTimeout <= 0 {
		return fmt.Errorf("enhanced timeout must be positive")
	}
	if c.BaseScore < 0 || c.BaseScore > 100 {
		return fmt.Errorf("base score must be within 0..100, got %d", c.BaseScore)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}
	return nil
}

func (c ServerConfig) PersistenceEnabled() bool {
	return c.DBDSN != ""
}

func (c ServerConfig) MQTTEnabled() bool {
	return c.MQTTBrokerURL != ""
}

func loadFile(path string, cfg *ServerConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvInt64Default(key string, val int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return val
	}
	return n
}

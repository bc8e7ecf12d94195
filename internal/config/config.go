package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Retrieval RetrievalConfig
	Storage   StorageConfig
	Feedback  FeedbackConfig
	Chat      ChatConfig
	Log       LogConfig
}

// Load parses the full configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	retrieval, err := loadRetrievalConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Retrieval: retrieval,
		Storage:   loadStorageConfig(),
		Feedback:  loadFeedbackConfig(),
		Chat:      chat,
		Log:       logCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the Ark model endpoint shared by the orchestrator,
// specialist, and follow-up calls.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from this configuration. Each call
// returns an independent instance, so tool bindings on one do not leak into
// another.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("missing Ark credentials: set ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// RetrievalConfig describes the Weaviate knowledge base.
type RetrievalConfig struct {
	Host   string
	Scheme string
	Class  string
	Limit  int
}

// Enabled reports whether a knowledge base endpoint is configured.
func (c RetrievalConfig) Enabled() bool {
	return c.Host != ""
}

func loadRetrievalConfig() (RetrievalConfig, error) {
	limit := 5
	if override, err := parseOptionalIntEnv("WEAVIATE_LIMIT"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RetrievalConfig{}, fmt.Errorf("WEAVIATE_LIMIT must be positive, got %d", *override)
		}
		limit = *override
	}

	return RetrievalConfig{
		Host:   strings.TrimSpace(os.Getenv("WEAVIATE_HOST")),
		Scheme: getEnvOrDefault("WEAVIATE_SCHEME", "http"),
		Class:  getEnvOrDefault("WEAVIATE_CLASS", "KnowledgeChunk"),
		Limit:  limit,
	}, nil
}

// StorageConfig describes the GCS bucket holding the document corpus.
type StorageConfig struct {
	Bucket          string
	CredentialsFile string
}

// Enabled reports whether document serving is configured.
func (c StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Bucket:          strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	}
}

// FeedbackConfig describes the embedded feedback database.
type FeedbackConfig struct {
	Path string
}

func loadFeedbackConfig() FeedbackConfig {
	return FeedbackConfig{
		Path: getEnvOrDefault("FEEDBACK_DB_PATH", "data/feedback"),
	}
}

// ChatConfig carries the turn supervision limits.
type ChatConfig struct {
	StreamTimeout   time.Duration
	SessionTTL      time.Duration
	QueryTokenLimit int
	MaxImageBytes   int64
}

func loadChatConfig() (ChatConfig, error) {
	timeoutSeconds := 25
	if override, err := parseOptionalIntEnv("CHAT_STREAM_TIMEOUT_SECONDS"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		timeoutSeconds = *override
	}

	ttlSeconds := 3600
	if override, err := parseOptionalIntEnv("CHAT_SESSION_TTL_SECONDS"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		ttlSeconds = *override
	}

	return ChatConfig{
		StreamTimeout:   time.Duration(timeoutSeconds) * time.Second,
		SessionTTL:      time.Duration(ttlSeconds) * time.Second,
		QueryTokenLimit: 150,
		MaxImageBytes:   5 << 20,
	}, nil
}

// LogConfig describes the structured log output.
type LogConfig struct {
	File       string
	Production bool
}

func loadLogConfig() (LogConfig, error) {
	production, err := parseBoolEnv("LOG_PRODUCTION", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		File:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		Production: production,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env      string
	Server   ServerConfig
	DB       DBConfig
	Model    ModelConfig
	Chat     ChatConfig
	Profiles ProfilesConfig
	Endpoint EndpointConfig
	Agent    AgentConfig
	Image    ImageConfig
	Blob     BlobConfig
	Cache    CacheConfig
	Worker   WorkerConfig
	OTel     OTelConfig
}

type ServerConfig struct {
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
	MinConns int32
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// ModelConfig points at the local model API used for direct chat, RAG
// generation, and embeddings.
type ModelConfig struct {
	URL               string
	ChatModel         string
	EmbeddingModel    string
	TokenizerEncoding string
}

// ChatConfig carries retrieval defaults applied when a profile leaves them
// unset.
type ChatConfig struct {
	DefaultDocumentCount   int
	DefaultMaxSourceTokens int
	DefaultMaxAnswerTokens int
	DefaultIndexName       string
}

// EndpointConfig shapes the shared client used for endpoint-assistant and
// endpoint-task profiles. The per-profile URL and credential come from named
// settings, not from here.
type EndpointConfig struct {
	RequestsPerSecond int
	Burst             int
	StaticBearerToken string
}

// ProfilesConfig controls where chat-service profiles are loaded from.
// BlobURL wins over InlineBase64; when both are empty the embedded defaults
// are used.
type ProfilesConfig struct {
	BlobURL      string
	InlineBase64 string
}

type AgentConfig struct {
	BaseURL             string
	AgentID             string
	PollIntervalSeconds int
}

type ImageConfig struct {
	URL   string
	Model string
}

// BlobConfig points at the object store holding profile blobs and uploaded
// user documents.
type BlobConfig struct {
	BaseURL   string
	Container string
}

type CacheConfig struct {
	Size int
	TTL  int // minutes
}

type WorkerConfig struct {
	PollIntervalSeconds int
	MaxBackoffSeconds   int
}

type OTelConfig struct {
	Enabled      bool
	ExporterHost string
}

func Load() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port: getEnv("PORT", "9020"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "chat-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "chat_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "chat_password"),
			Name:     getEnv("DB_NAME", "chat_db"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Model: ModelConfig{
			URL:               getEnvWithAlt("MODEL_API_URL", "OLLAMA_URL", "http://model-api:11434"),
			ChatModel:         getEnv("CHAT_MODEL", "gpt-oss20b-cpu"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			TokenizerEncoding: getEnv("TOKENIZER_ENCODING", "cl100k_base"),
		},
		Chat: ChatConfig{
			DefaultDocumentCount:   getEnvInt("CHAT_DEFAULT_DOCUMENT_COUNT", 5),
			DefaultMaxSourceTokens: getEnvInt("CHAT_DEFAULT_MAX_SOURCE_TOKENS", 2000),
			DefaultMaxAnswerTokens: getEnvInt("CHAT_DEFAULT_MAX_ANSWER_TOKENS", 1024),
			DefaultIndexName:       getEnv("CHAT_DEFAULT_INDEX", "main"),
		},
		Profiles: ProfilesConfig{
			BlobURL:      getEnv("PROFILES_BLOB_URL", ""),
			InlineBase64: getEnv("PROFILES_INLINE", ""),
		},
		Endpoint: EndpointConfig{
			RequestsPerSecond: getEnvInt("ENDPOINT_RPS", 10),
			Burst:             getEnvInt("ENDPOINT_BURST", 5),
			StaticBearerToken: getSecret("ENDPOINT_BEARER_TOKEN", "ENDPOINT_BEARER_TOKEN_FILE", ""),
		},
		Agent: AgentConfig{
			BaseURL:             getEnv("AGENT_API_URL", ""),
			AgentID:             getEnv("AGENT_ID", ""),
			PollIntervalSeconds: getEnvInt("AGENT_POLL_INTERVAL_SECONDS", 2),
		},
		Image: ImageConfig{
			URL:   getEnv("IMAGE_API_URL", ""),
			Model: getEnv("IMAGE_MODEL", "sdxl-turbo"),
		},
		Blob: BlobConfig{
			BaseURL:   getEnv("BLOB_STORE_URL", ""),
			Container: getEnv("BLOB_CONTAINER", "config"),
		},
		Cache: CacheConfig{
			Size: getEnvInt("RETRIEVAL_CACHE_SIZE", 256),
			TTL:  getEnvInt("RETRIEVAL_CACHE_TTL_MINUTES", 10),
		},
		Worker: WorkerConfig{
			PollIntervalSeconds: getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 5),
			MaxBackoffSeconds:   getEnvInt("WORKER_MAX_BACKOFF_SECONDS", 300),
		},
		OTel: OTelConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			ExporterHost: getEnv("OTEL_EXPORTER_HOST", "localhost"),
		},
	}
}

// EnvSettings resolves named endpoint settings from the environment, so a
// profile can reference "ASSISTANT_ENDPOINT_URL" without the service knowing
// the name in advance.
type EnvSettings struct{}

func (EnvSettings) Setting(name string) string {
	if name == "" {
		return ""
	}
	return getSecret(name, name+"_FILE", "")
}

// StaticTokenProvider serves one pre-issued bearer token regardless of scope.
// Deployments behind a managed-identity sidecar leave it unset and fall back
// to API key auth.
type StaticTokenProvider struct {
	TokenValue string
}

func (p StaticTokenProvider) Token(_ context.Context, _ string) (string, error) {
	if p.TokenValue == "" {
		return "", fmt.Errorf("no bearer token configured")
	}
	return p.TokenValue, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Upload   UploadConfig
	Infra    InfraConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	EventLogFilePath   string
	CorsAllowedOrigins string
	StaticDir          string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	CookieName         string
	CookieSecure       bool
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

type AIConfig struct {
	LLMProvider       string // "openai" or "ollama"
	LLMModel          string
	OpenAIKey         string
	OpenAIBaseURL     string
	OllamaBaseURL     string
	MaxTokens         int
	CompletionTimeout time.Duration
	SystemPrompt      string
	VisionModel       string
}

type UploadConfig struct {
	Dir     string
	MaxSize int // bytes
}

type InfraConfig struct {
	RedisURL        string
	NatsURL         string
	LockBackend     string // "local" or "redis"
	LockTTL         time.Duration
	ChatEventsTopic string
	OtelEnabled     bool
	OtelEndpoint    string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "9527"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:9527"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			EventLogFilePath:   getEnv("EVENT_LOG_FILE_PATH", "logs/chat_events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			StaticDir:          getEnv("STATIC_DIR", "./static"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			TokenTTL:           getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			CookieName:         getEnv("SESSION_COOKIE_NAME", "chat_session"),
			CookieSecure:       getEnvAsBool("SESSION_COOKIE_SECURE", false),
			GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:9527/api/auth/google/callback"),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
			LLMModel:          getEnv("LLM_MODEL", "gpt-4"),
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			MaxTokens:         getEnvAsInt("AI_MAX_TOKENS", 2000),
			CompletionTimeout: getEnvAsDuration("AI_COMPLETION_TIMEOUT", 60*time.Second),
			SystemPrompt:      getEnv("AI_SYSTEM_PROMPT", ""),
			VisionModel:       getEnv("AI_VISION_MODEL", "gpt-4o-mini"),
		},
		Upload: UploadConfig{
			Dir:     getEnv("UPLOAD_DIR", "uploads"),
			MaxSize: getEnvAsInt("UPLOAD_MAX_BYTES", 10*1024*1024),
		},
		Infra: InfraConfig{
			RedisURL:        getEnv("REDIS_URL", ""),
			NatsURL:         getEnv("NATS_URL", ""),
			LockBackend:     getEnv("LOCK_BACKEND", "local"),
			LockTTL:         getEnvAsDuration("LOCK_TTL", 2*time.Minute),
			ChatEventsTopic: getEnv("CHAT_EVENTS_TOPIC", "CHAT_EVENTS"),
			OtelEnabled:     getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "2m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

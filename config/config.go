package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read once at startup and handed to
// adapters at construction. Components never read the environment themselves.
type Config struct {
	Server    Server
	Auth      Auth
	LLM       LLM
	Retrieval Retrieval
	RateLimit RateLimit
	Storage   Storage
}

type Server struct {
	Port string
}

type Auth struct {
	JWTSecret string
	JWTExpiry time.Duration
	APIKey    string
	APISecret string
}

type LLM struct {
	// Provider selects the completion adapter: "openai" or "gemini".
	Provider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GeminiAPIKey string
	GeminiModel  string

	Timeout time.Duration
}

type Retrieval struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type RateLimit struct {
	Requests int
	Window   time.Duration
}

type Storage struct {
	// Backend is "sqlite" or "memory".
	Backend string
	DSN     string
}

// Load reads all env vars and builds the config.
func Load() *Config {
	cfg := &Config{
		Server: Server{
			Port: getEnv("PORT", "8080"),
		},
		Auth: Auth{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTExpiry: getDurationEnv("JWT_EXPIRY", 24*time.Hour),
			APIKey:    getEnv("AUTH_API_KEY", ""),
			APISecret: getEnv("AUTH_API_SECRET", ""),
		},
		LLM: LLM{
			Provider:      getEnv("LLM_PROVIDER", "openai"),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
			Timeout:       getDurationEnv("LLM_TIMEOUT", 30*time.Second),
		},
		Retrieval: Retrieval{
			APIKey:  getEnv("CHATPDF_API_KEY", ""),
			BaseURL: getEnv("CHATPDF_BASE_URL", "https://api.chatpdf.com/v1"),
			Timeout: getDurationEnv("RETRIEVAL_TIMEOUT", 15*time.Second),
		},
		RateLimit: RateLimit{
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 10),
			Window:   getDurationEnv("RATE_LIMIT_WINDOW", 10*time.Second),
		},
		Storage: Storage{
			Backend: getEnv("STORAGE_BACKEND", "sqlite"),
			DSN:     getEnv("SQLITE_DSN", "file:conversations.db"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return d
}

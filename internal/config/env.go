package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	DatabaseURL string
	SslCertPath string

	AIChatAgent      string
	GeminiAPIKey     string
	GeminiEmbedModel string
	OpenAIAPIKey     string
	OpenAIEmbedModel string
	OpenAIBaseURL    string
	EmbedDim         int
	EmbedTimeout     time.Duration

	HTTPTimeout        time.Duration
	BatchSize          int
	TrafikverketAPIKey string
	SourcesFile        string

	RawArchiveBucket string
	AwsAccessKey     string
	AwsSecretKey     string
	AwsRegion        string

	LogMode string
	LogFile string

	Port        string
	JWTSecret   string
	CORSOrigins []string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SslCertPath:        getEnv("SSL_CERT_PATH", ""),
		AIChatAgent:        strings.ToLower(strings.TrimSpace(getEnv("AI_CHAT_AGENT", ProviderGemini))),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiEmbedModel:   getEnv("GEMINI_EMBED_MODEL", "gemini-embedding-001"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbedModel:   getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		EmbedDim:           getEnvInt("EMBEDDING_DIMENSIONALITY", 1536),
		EmbedTimeout:       getEnvSeconds("EMBED_TIMEOUT_SECONDS", 60*time.Second),
		HTTPTimeout:        getEnvSeconds("HTTP_TIMEOUT_SECONDS", 30*time.Second),
		BatchSize:          getEnvInt("BATCH_SIZE", 100),
		TrafikverketAPIKey: getEnv("TRAFIKVERKET_API_KEY", ""),
		SourcesFile:        getEnv("SOURCES_FILE", ""),
		RawArchiveBucket:   getEnv("RAW_ARCHIVE_BUCKET", ""),
		AwsAccessKey:       getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:       getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:          getEnv("AWS_REGION", "eu-north-1"),
		LogMode:            getEnv("LOG_MODE", "development"),
		LogFile:            getEnv("LOG_FILE", ""),
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	return cfg
}

// Validate checks the settings every ingestion run depends on.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONALITY must be positive, got %d", c.EmbedDim)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	switch c.AIChatAgent {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY not set for AI_CHAT_AGENT=%s", c.AIChatAgent)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY not set for AI_CHAT_AGENT=%s", c.AIChatAgent)
		}
	default:
		return fmt.Errorf("unknown AI_CHAT_AGENT %q (want %s or %s)", c.AIChatAgent, ProviderGemini, ProviderOpenAI)
	}
	return nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	n := getEnvInt(key, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	HTTPPort  string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	JWTSecret string `env:"JWT_SECRET"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"legal_assistant.db"`

	VectorStore      string `env:"VECTOR_STORE" envDefault:"sqlite"`
	VectorDimensions int    `env:"VECTOR_DIMENSIONS" envDefault:"768"`

	LLMProvider    string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL"`
	ChatModel      string `env:"CHAT_MODEL"`
	EmbeddingModel string `env:"EMBEDDING_MODEL"`

	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	ChunkStoreTimeout time.Duration `env:"CHUNK_STORE_TIMEOUT" envDefault:"30s"`

	RAGTopK                int     `env:"RAG_TOP_K" envDefault:"4"`
	RAGSimilarityThreshold float64 `env:"RAG_SIMILARITY_THRESHOLD" envDefault:"0.7"`
	ChatMemoryMaxMessages  int     `env:"CHAT_MEMORY_MAX_MESSAGES" envDefault:"10"`
	SessionResolution      string  `env:"SESSION_RESOLUTION" envDefault:"claim"`

	EmbeddingCacheSize int    `env:"EMBEDDING_CACHE_SIZE" envDefault:"1024"`
	PromptTemplatePath string `env:"PROMPT_TEMPLATE_PATH"`
	MaxUploadBytes     int64  `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	TokenizerEncoding  string `env:"TOKENIZER_ENCODING" envDefault:"cl100k_base"`
}

var AppConfig Config

// LoadConfig reads an optional .env file, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}

	switch c.VectorStore {
	case "sqlite":
		if c.DatabaseDriver != "sqlite" {
			return fmt.Errorf("VECTOR_STORE=sqlite requires DATABASE_DRIVER=sqlite")
		}
	case "pgvector":
		if c.DatabaseDriver != "postgres" {
			return fmt.Errorf("VECTOR_STORE=pgvector requires DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("VECTOR_STORE must be sqlite or pgvector, got %q", c.VectorStore)
	}

	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be gemini or openai, got %q", c.LLMProvider)
	}

	switch c.SessionResolution {
	case "claim", "check":
	default:
		return fmt.Errorf("SESSION_RESOLUTION must be claim or check, got %q", c.SessionResolution)
	}

	if c.RAGTopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive")
	}
	if c.RAGSimilarityThreshold < 0 || c.RAGSimilarityThreshold > 1 {
		return fmt.Errorf("RAG_SIMILARITY_THRESHOLD must be within [0,1]")
	}
	if c.ChatMemoryMaxMessages <= 0 {
		return fmt.Errorf("CHAT_MEMORY_MAX_MESSAGES must be positive")
	}
	return nil
}

// RequireJWTSecret is checked by the HTTP server only; the admin CLI does not need it.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

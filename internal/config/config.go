package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Embedding EmbeddingConfig
	Storage   StorageConfig
	Scoring   ScoringConfig
	Aging     AgingConfig
	Ingestion IngestionConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EmbeddingConfig struct {
	OpenAIKey  string
	Model      string
	Dimensions int
	BatchLimit int
	// Outbound rate limit; a violation fails the call immediately.
	RatePerSecond float64
	RateBurst     int
}

type StorageConfig struct {
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

// ScoringConfig holds the penalty and weighting policy. Values are policy,
// not algorithm: they are injected into the scoring service so a test or a
// policy change never touches call sites.
type ScoringConfig struct {
	SeverityPenalties map[string]int
	CategoryWeights   map[string]float64
}

// AgingConfig drives RFI severity escalation. Thresholds must be sorted by
// MinAgeDays ascending; an open RFI younger than the first threshold gets no
// age check at all.
type AgingConfig struct {
	Thresholds []AgingThreshold
}

type AgingThreshold struct {
	MinAgeDays int
	Severity   string
}

type IngestionConfig struct {
	// A document stuck in "processing" longer than this is considered
	// abandoned by a crashed run and may be reclaimed.
	StalenessWindow time.Duration
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dims, err := getEnvInt("EMBEDDING_DIMENSIONS", 1536)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_DIMENSIONS: %w", err)
	}

	batchLimit, err := getEnvInt("EMBEDDING_BATCH_LIMIT", 2048)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_BATCH_LIMIT: %w", err)
	}

	staleMinutes, err := getEnvInt("INGEST_STALENESS_MINUTES", 15)
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_STALENESS_MINUTES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Embedding: EmbeddingConfig{
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			Model:         getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimensions:    dims,
			BatchLimit:    batchLimit,
			RatePerSecond: 10,
			RateBurst:     20,
		},
		Storage: StorageConfig{
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:      getEnv("STORAGE_BUCKET", "project-documents"),
		},
		Scoring:   DefaultScoring(),
		Aging:     DefaultAging(),
		Ingestion: IngestionConfig{StalenessWindow: time.Duration(staleMinutes) * time.Minute},
	}

	return cfg, nil
}

// DefaultScoring returns the stock penalty policy: low=1, medium=3, high=7,
// critical=15, categories equally weighted.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		SeverityPenalties: map[string]int{
			"low":      1,
			"medium":   3,
			"high":     7,
			"critical": 15,
		},
		CategoryWeights: nil, // nil means equal weighting across the catalog's categories
	}
}

// DefaultAging returns the stock escalation thresholds: 7d medium,
// 14d high, 30d critical.
func DefaultAging() AgingConfig {
	return AgingConfig{
		Thresholds: []AgingThreshold{
			{MinAgeDays: 7, Severity: "medium"},
			{MinAgeDays: 14, Severity: "high"},
			{MinAgeDays: 30, Severity: "critical"},
		},
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Embedding.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

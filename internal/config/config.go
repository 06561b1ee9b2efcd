package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"tubedigest"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"tubedigest"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	YouTubeAPIKey string   `envconfig:"YOUTUBE_API_KEY"`
	GeminiAPIKey  string   `envconfig:"GEMINI_API_KEY"`
	PlaylistIDs   []string `envconfig:"PLAYLIST_IDS"`

	MailgunAPIKey    string   `envconfig:"MAILGUN_API_KEY"`
	MailgunDomain    string   `envconfig:"MAILGUN_DOMAIN"`
	DigestFrom       string   `envconfig:"DIGEST_FROM" default:"digest@tubedigest.local"`
	DigestRecipients []string `envconfig:"DIGEST_RECIPIENTS"`

	// Extraction pipeline tuning. Token counts are whitespace words; the
	// window size and the overlap must be counted in the same unit.
	MaxTokens              int     `envconfig:"MAX_TOKENS" default:"4000"`
	OverlapTokens          int     `envconfig:"OVERLAP_TOKENS" default:"200"`
	IdeasPerVideo          int     `envconfig:"IDEAS_PER_VIDEO" default:"5"`
	DedupThresholdIntra    float64 `envconfig:"DEDUP_THRESHOLD_INTRA" default:"0.55"`
	DedupThresholdCross    float64 `envconfig:"DEDUP_THRESHOLD_CROSS" default:"0.70"`
	DedupBackend           string  `envconfig:"DEDUP_BACKEND" default:"lexical"`
	RecentWindowDays       int     `envconfig:"RECENT_WINDOW_DAYS" default:"7"`
	MaxRetryAttempts       int     `envconfig:"MAX_RETRY_ATTEMPTS" default:"3"`
	ReprocessThresholdDays int     `envconfig:"REPROCESS_THRESHOLD_DAYS" default:"7"`
	PipelineConcurrency    int     `envconfig:"PIPELINE_CONCURRENCY" default:"2"`
	ExtractionModel        string  `envconfig:"EXTRACTION_MODEL" default:"gemini-2.0-flash"`
	EmbeddingModel         string  `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`

	EnableAPI            bool   `envconfig:"ENABLE_API" default:"true"`
	EnablePipelineWorker bool   `envconfig:"ENABLE_PIPELINE_WORKER" default:"false"`
	ServerPort           int    `envconfig:"SERVER_PORT" default:"8081"`
	MigrationPath        string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails the whole run at startup on a bad configuration; values are
// never silently clamped.
func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: MAX_TOKENS must be positive, got %d", ErrInvalidValue, c.MaxTokens)
	}
	if c.OverlapTokens < 0 {
		return fmt.Errorf("%w: OVERLAP_TOKENS must not be negative, got %d", ErrInvalidValue, c.OverlapTokens)
	}
	if c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("%w: OVERLAP_TOKENS (%d) must be smaller than MAX_TOKENS (%d)",
			ErrInvalidValue, c.OverlapTokens, c.MaxTokens)
	}
	if c.IdeasPerVideo <= 0 {
		return fmt.Errorf("%w: IDEAS_PER_VIDEO must be positive, got %d", ErrInvalidValue, c.IdeasPerVideo)
	}
	if c.DedupThresholdIntra <= 0 || c.DedupThresholdIntra > 1 {
		return fmt.Errorf("%w: DEDUP_THRESHOLD_INTRA must be in (0,1], got %v", ErrInvalidValue, c.DedupThresholdIntra)
	}
	if c.DedupThresholdCross <= 0 || c.DedupThresholdCross > 1 {
		return fmt.Errorf("%w: DEDUP_THRESHOLD_CROSS must be in (0,1], got %v", ErrInvalidValue, c.DedupThresholdCross)
	}
	if c.DedupBackend != "lexical" && c.DedupBackend != "vector" {
		return fmt.Errorf("%w: DEDUP_BACKEND must be lexical or vector, got %q", ErrInvalidValue, c.DedupBackend)
	}
	if c.MaxRetryAttempts < 1 {
		return fmt.Errorf("%w: MAX_RETRY_ATTEMPTS must be at least 1, got %d", ErrInvalidValue, c.MaxRetryAttempts)
	}
	if c.RecentWindowDays < 1 {
		return fmt.Errorf("%w: RECENT_WINDOW_DAYS must be at least 1, got %d", ErrInvalidValue, c.RecentWindowDays)
	}
	if c.ReprocessThresholdDays < 1 {
		return fmt.Errorf("%w: REPROCESS_THRESHOLD_DAYS must be at least 1, got %d", ErrInvalidValue, c.ReprocessThresholdDays)
	}
	if c.PipelineConcurrency < 1 {
		return fmt.Errorf("%w: PIPELINE_CONCURRENCY must be at least 1, got %d", ErrInvalidValue, c.PipelineConcurrency)
	}
	return nil
}

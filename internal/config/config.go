package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

const (
	BackendPostgres = "postgres"
	BackendWeaviate = "weaviate"
)

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"ragindexer"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"ragindexer"`

	// VectorBackend selects where chunk rows live: "postgres" (pgvector) or "weaviate".
	VectorBackend  string `envconfig:"VECTOR_BACKEND" default:"postgres"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd  string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost    string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP    string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	EnableAPI   bool   `envconfig:"ENABLE_API" default:"true"`
	EnableQueue bool   `envconfig:"ENABLE_QUEUE" default:"true"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSAccessKey string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	S3Endpoint   string `envconfig:"S3_ENDPOINT"`

	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"json"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// RetrySchedule is a cron spec for re-publishing failed index runs. Empty disables it.
	RetrySchedule string `envconfig:"RETRY_SCHEDULE"`
	ToolCacheSize int    `envconfig:"TOOL_CACHE_SIZE" default:"256"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`

	// ConfigFile optionally points at a YAML file overriding pipeline tunables.
	ConfigFile string `envconfig:"RAG_CONFIG_FILE"`

	Pipeline Pipeline `envconfig:"RAG"`
}

// Pipeline enumerates every indexing tunable. It is loaded once and handed to
// constructors by value.
type Pipeline struct {
	ChunkSize         int           `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap      int           `envconfig:"CHUNK_OVERLAP" default:"200"`
	MinChunkSize      int           `envconfig:"MIN_CHUNK_SIZE" default:"100"`
	MaxChunkSize      int           `envconfig:"MAX_CHUNK_SIZE" default:"2000"`
	ProcessingVersion string        `envconfig:"PROCESSING_VERSION" default:"1.0"`
	EmbeddingModel    string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	BatchSize         int           `envconfig:"BATCH_SIZE" default:"10"`
	RateLimitDelay    time.Duration `envconfig:"RATE_LIMIT_DELAY" default:"100ms"`
	MaxRetries        int           `envconfig:"MAX_RETRIES" default:"3"`
	EmbedTimeout      time.Duration `envconfig:"EMBED_TIMEOUT" default:"60s"`
	URLTimeout        time.Duration `envconfig:"URL_TIMEOUT" default:"30s"`
	Tokenizer         string        `envconfig:"TOKENIZER_MODEL" default:"gpt-4"`

	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.78"`
	MaxMatches          int     `envconfig:"MAX_MATCHES" default:"10"`
	TopChunks           int     `envconfig:"TOP_CHUNKS" default:"10"`

	Quality Quality `envconfig:"QUALITY"`
}

type Quality struct {
	BaseScore        float64  `envconfig:"BASE_SCORE" default:"0.5"`
	OptimalMin       int      `envconfig:"OPTIMAL_MIN" default:"200"`
	OptimalMax       int      `envconfig:"OPTIMAL_MAX" default:"1500"`
	LengthBonus      float64  `envconfig:"LENGTH_BONUS" default:"0.2"`
	LongBonus        float64  `envconfig:"LONG_BONUS" default:"0.1"`
	StructureMarkers []string `envconfig:"STRUCTURE_MARKERS" default:"however,therefore,because,furthermore,additionally,consequently"`
	StructureBonus   float64  `envconfig:"STRUCTURE_BONUS" default:"0.1"`
	TechnicalMarkers []string `envconfig:"TECHNICAL_MARKERS" default:"api,feature,integration,performance,configuration,implementation"`
	TechnicalBonus   float64  `envconfig:"TECHNICAL_BONUS" default:"0.1"`
	SentenceMin      int      `envconfig:"SENTENCE_MIN" default:"3"`
	SentenceMax      int      `envconfig:"SENTENCE_MAX" default:"10"`
	SentenceBonus    float64  `envconfig:"SENTENCE_BONUS" default:"0.1"`
}

func Load() (*Config, error) {
	// Ignore errors, env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		f, err := os.Open(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		if err := ApplyFile(&cfg.Pipeline, f); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

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
	if c.VectorBackend != BackendPostgres && c.VectorBackend != BackendWeaviate {
		return fmt.Errorf("%w: VECTOR_BACKEND must be %q or %q", ErrInvalid, BackendPostgres, BackendWeaviate)
	}
	return c.Pipeline.Validate()
}

// RequireEmbedder reports whether the embedding backend can be constructed.
func (c *Config) RequireEmbedder() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	return nil
}

func (p Pipeline) Validate() error {
	switch {
	case p.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalid)
	case p.ChunkOverlap < 0:
		return fmt.Errorf("%w: chunk overlap must not be negative", ErrInvalid)
	case p.MinChunkSize < 0:
		return fmt.Errorf("%w: min chunk size must not be negative", ErrInvalid)
	case p.MaxChunkSize < p.MinChunkSize:
		return fmt.Errorf("%w: max chunk size below min chunk size", ErrInvalid)
	case p.RateLimitDelay < 0:
		return fmt.Errorf("%w: rate limit delay must not be negative", ErrInvalid)
	case p.BatchSize <= 0:
		return fmt.Errorf("%w: batch size must be positive", ErrInvalid)
	case p.MaxRetries < 0 || p.MaxRetries > math.MaxUint16:
		return fmt.Errorf("%w: max retries must be between 0 and %d", ErrInvalid, math.MaxUint16)
	case p.EmbeddingModel == "":
		return fmt.Errorf("%w: EMBEDDING_MODEL", ErrMissingRequired)
	case p.Quality.OptimalMin > p.Quality.OptimalMax:
		return fmt.Errorf("%w: quality optimal range is inverted", ErrInvalid)
	case p.Quality.SentenceMin > p.Quality.SentenceMax:
		return fmt.Errorf("%w: quality sentence range is inverted", ErrInvalid)
	}
	return nil
}

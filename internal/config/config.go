package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the solace service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Safety    SafetyConfig    `yaml:"safety"`
	Chat      ChatConfig      `yaml:"chat"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotating JSON log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig holds API authentication settings. Empty APIKeys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	RatePerMinute   int      `yaml:"rate_limit_per_minute"`
}

// Database drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and configures the chunk store.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, postgres (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`        // postgres only
	MatchFunc        string   `yaml:"match_func"` // postgres only, optional SQL function
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // metrics label, default "openai"
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	DocInstruction   string `yaml:"document_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"` // 0 = cache entries never expire
}

// LLMConfig holds chat completion settings.
type LLMConfig struct {
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	MaxRetries    int     `yaml:"max_retries"`
	RatePerMinute int     `yaml:"rate_per_minute"` // 0 = unpaced
}

// RetrievalConfig holds the retrieval pipeline tunables.
type RetrievalConfig struct {
	TopK                int                  `yaml:"top_k"`
	Threshold           *float64             `yaml:"threshold"`
	CandidateMultiplier int                  `yaml:"candidate_multiplier"`
	TopicBoostFactor    float64              `yaml:"topic_boost_factor"`
	Cache               RetrievalCacheConfig `yaml:"cache"`
}

// RetrievalCacheConfig bounds the query cache. Zero values mean no expiry and no size limit.
type RetrievalCacheConfig struct {
	TTLSec     int `yaml:"ttl_sec"`
	MaxEntries int `yaml:"max_entries"`
}

// SafetyConfig holds input screening settings.
type SafetyConfig struct {
	MaxMessageLength int `yaml:"max_message_length"`
}

// ChatConfig holds chat flow settings.
type ChatConfig struct {
	MaxHistory int `yaml:"max_history"`
}

// TracingConfig configures OTLP export. Empty Endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// IngestConfig holds chunking settings for the indexer.
type IngestConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap"`
	BatchSize    int  `yaml:"batch_size"`
}

// Overlap returns the configured chunk overlap in tokens, 50 when unset.
func (i *IngestConfig) Overlap() int {
	if i.ChunkOverlap == nil {
		return 50
	}
	return *i.ChunkOverlap
}

// Retrieval defaults.
const (
	DefaultTopK                = 3
	DefaultThreshold           = 0.4
	DefaultCandidateMultiplier = 3
	DefaultTopicBoostFactor    = 0.15
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
//
//nolint:gocyclo // flat list of defaults
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60 // LLM retries can take a while
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RatePerMinute <= 0 {
		c.HTTP.RatePerMinute = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "solace:"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "llama-3.3-70b-versatile"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 3
	}
	c.Retrieval.applyDefaults()
	if c.Safety.MaxMessageLength <= 0 {
		c.Safety.MaxMessageLength = 1000
	}
	if c.Chat.MaxHistory <= 0 {
		c.Chat.MaxHistory = 6
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "solace"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 1
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 500
	}
	if c.Ingest.ChunkOverlap == nil {
		overlap := 50
		c.Ingest.ChunkOverlap = &overlap
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 8
	}
}

func (r *RetrievalConfig) applyDefaults() {
	if r.TopK <= 0 {
		r.TopK = DefaultTopK
	}
	if r.Threshold == nil {
		t := DefaultThreshold
		r.Threshold = &t
	}
	if r.CandidateMultiplier <= 0 {
		r.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if r.TopicBoostFactor == 0 {
		r.TopicBoostFactor = DefaultTopicBoostFactor
	}
}

// ThresholdValue returns the similarity threshold, falling back to the default.
func (r *RetrievalConfig) ThresholdValue() float64 {
	if r.Threshold == nil {
		return DefaultThreshold
	}
	return *r.Threshold
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be valkey, redis or postgres, got %q", c.Database.Driver)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}
	if c.Ingest.ChunkSize < 100 || c.Ingest.ChunkSize > 1000 {
		return fmt.Errorf("ingest.chunk_size must be between 100 and 1000, got %d", c.Ingest.ChunkSize)
	}
	if o := c.Ingest.Overlap(); o < 0 || o > 200 {
		return fmt.Errorf("ingest.chunk_overlap must be between 0 and 200, got %d", o)
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in (0, 1], got %g", c.Tracing.SampleRatio)
	}
	return nil
}

// Validate checks retrieval tunables against their allowed ranges.
func (r *RetrievalConfig) Validate() error {
	if r.TopK < 1 || r.TopK > 10 {
		return fmt.Errorf("retrieval.top_k must be between 1 and 10, got %d", r.TopK)
	}
	if t := r.ThresholdValue(); t < 0 || t > 1 {
		return fmt.Errorf("retrieval.threshold must be between 0 and 1, got %g", t)
	}
	if r.CandidateMultiplier < 1 || r.CandidateMultiplier > 10 {
		return fmt.Errorf("retrieval.candidate_multiplier must be between 1 and 10, got %d", r.CandidateMultiplier)
	}
	if r.TopicBoostFactor <= 0 || r.TopicBoostFactor > 0.5 {
		return fmt.Errorf("retrieval.topic_boost_factor must be in (0, 0.5], got %g", r.TopicBoostFactor)
	}
	if r.Cache.TTLSec < 0 || r.Cache.MaxEntries < 0 {
		return fmt.Errorf("retrieval.cache values must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file, for tests run from package dirs
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

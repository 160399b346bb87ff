package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the capbot configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Repository RepositoryConfig `yaml:"repository"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Detection  DetectionConfig  `yaml:"detection"`
	Index      IndexConfig      `yaml:"index"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the Redis/Valkey connection used by the similarity
// index, the embedding cache and the statistics counters.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RepositoryConfig selects the relational topic store.
type RepositoryConfig struct {
	Driver string `yaml:"driver"` // sqlite, pgx (default: sqlite)
	DSN    string `yaml:"dsn"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	Instruction       string  `yaml:"instruction"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	CacheTTLHours     int     `yaml:"cache_ttl_hours"`     // 0 = keep forever
}

// GeneratorConfig holds the chat completion provider settings.
type GeneratorConfig struct {
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	Temperature       float32 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	AdvisorEnabled    bool    `yaml:"advisor_enabled"`
}

// Timeout returns the generator call timeout.
func (g GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

// DetectionConfig holds duplicate detection defaults.
type DetectionConfig struct {
	Threshold              float64 `yaml:"threshold"`
	CandidateK             int     `yaml:"candidate_k"`
	MinCandidateSimilarity float64 `yaml:"min_candidate_similarity"`
	PreserveCoreIdea       *bool   `yaml:"preserve_core_idea"`
}

// IndexConfig holds HNSW index, pagination and bulk indexing settings.
type IndexConfig struct {
	Name            string `yaml:"name"`
	KeyPrefix       string `yaml:"key_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
	Workers         int    `yaml:"workers"`
	BatchSize       int    `yaml:"batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, test, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, then applies defaults and validates.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	// Resolutions wait on up to three provider calls.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Repository.Driver == "" {
		c.Repository.Driver = "sqlite"
	}
	if c.Repository.DSN == "" && c.Repository.Driver == "sqlite" {
		c.Repository.DSN = "capbot.db"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}

	if c.Generator.Provider == "" {
		c.Generator.Provider = "openai"
	}
	if c.Generator.Model == "" {
		c.Generator.Model = "gpt-4o-mini"
	}
	if c.Generator.TimeoutSec <= 0 {
		c.Generator.TimeoutSec = 30
	}
	if c.Generator.Temperature <= 0 {
		c.Generator.Temperature = 0.8
	}
	if c.Generator.MaxTokens <= 0 {
		c.Generator.MaxTokens = 2500
	}
	if c.Generator.APIKey == "" {
		c.Generator.APIKey = c.Embedding.APIKey
	}

	if c.Detection.Threshold == 0 {
		c.Detection.Threshold = 0.8
	}
	if c.Detection.CandidateK <= 0 {
		c.Detection.CandidateK = 10
	}
	if c.Detection.MinCandidateSimilarity == 0 {
		c.Detection.MinCandidateSimilarity = 0.3
	}
	if c.Detection.PreserveCoreIdea == nil {
		preserve := true
		c.Detection.PreserveCoreIdea = &preserve
	}

	if c.Index.Name == "" {
		c.Index.Name = "capbot:topics"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "capbot:topic:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.DefaultPageSize <= 0 {
		c.Index.DefaultPageSize = 20
	}
	if c.Index.MaxPageSize <= 0 {
		c.Index.MaxPageSize = 100
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = 4
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 32
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}

	switch c.Repository.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("repository.driver must be \"sqlite\" or \"pgx\", got %q", c.Repository.Driver)
	}
	if c.Repository.DSN == "" {
		return fmt.Errorf("repository.dsn is required")
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.RequestsPerSecond < 0 || c.Generator.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}

	if c.Detection.Threshold < 0 || c.Detection.Threshold > 1 {
		return fmt.Errorf("detection.threshold must be in [0, 1], got %v", c.Detection.Threshold)
	}
	if c.Detection.MinCandidateSimilarity < 0 || c.Detection.MinCandidateSimilarity > 1 {
		return fmt.Errorf(
			"detection.min_candidate_similarity must be in [0, 1], got %v",
			c.Detection.MinCandidateSimilarity,
		)
	}
	if c.Index.DefaultPageSize > c.Index.MaxPageSize {
		return fmt.Errorf("index.default_page_size (%d) exceeds index.max_page_size (%d)",
			c.Index.DefaultPageSize, c.Index.MaxPageSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to this source file, for tests run from package directories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
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

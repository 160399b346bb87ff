package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"unknown database driver", func(c *Config) { c.Database.Driver = "memcached" }, "database.driver"},
		{"valkey driver", func(c *Config) { c.Database.Driver = "valkey" }, ""},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown repository driver", func(c *Config) { c.Repository.Driver = "mysql" }, "repository.driver"},
		{"missing dsn", func(c *Config) { c.Repository.DSN = "" }, "repository.dsn"},
		{"dimensions", func(c *Config) { c.Embedding.Dimensions = -1 }, "embedding.dimensions"},
		{"negative rps", func(c *Config) { c.Generator.RequestsPerSecond = -1 }, "requests_per_second"},
		{"threshold above one", func(c *Config) { c.Detection.Threshold = 1.2 }, "detection.threshold"},
		{"threshold below zero", func(c *Config) { c.Detection.Threshold = -0.1 }, "detection.threshold"},
		{"min similarity", func(c *Config) { c.Detection.MinCandidateSimilarity = 2 }, "min_candidate_similarity"},
		{"page sizes", func(c *Config) { c.Index.DefaultPageSize = 500 }, "default_page_size"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 90 || cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Database.Driver != "redis" || cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Repository.Driver != "sqlite" || cfg.Repository.DSN != "capbot.db" {
		t.Errorf("unexpected repository defaults: %+v", cfg.Repository)
	}
	if cfg.Embedding.Dimensions != 1536 || cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Generator.TimeoutSec != 30 || cfg.Generator.Temperature != 0.8 || cfg.Generator.MaxTokens != 2500 {
		t.Errorf("unexpected generator defaults: %+v", cfg.Generator)
	}
	if cfg.Detection.Threshold != 0.8 || cfg.Detection.CandidateK != 10 || cfg.Detection.MinCandidateSimilarity != 0.3 {
		t.Errorf("unexpected detection defaults: %+v", cfg.Detection)
	}
	if cfg.Detection.PreserveCoreIdea == nil || !*cfg.Detection.PreserveCoreIdea {
		t.Error("preserve_core_idea must default to true")
	}
	if cfg.Index.Name != "capbot:topics" || cfg.Index.KeyPrefix != "capbot:topic:" {
		t.Errorf("unexpected index naming: %+v", cfg.Index)
	}
	if cfg.Index.HNSWM != 16 || cfg.Index.HNSWEFConstruct != 200 || cfg.Index.Workers != 4 {
		t.Errorf("unexpected index defaults: %+v", cfg.Index)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	preserve := false
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Repository: RepositoryConfig{Driver: "pgx", DSN: "postgres://localhost/capbot"},
		Detection:  DetectionConfig{Threshold: 0.7, PreserveCoreIdea: &preserve},
		Index:      IndexConfig{HNSWM: 32, Workers: 8},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Repository.DSN != "postgres://localhost/capbot" {
		t.Errorf("dsn overridden: %q", cfg.Repository.DSN)
	}
	if cfg.Detection.Threshold != 0.7 || *cfg.Detection.PreserveCoreIdea {
		t.Errorf("detection overridden: %+v", cfg.Detection)
	}
	if cfg.Index.HNSWM != 32 || cfg.Index.Workers != 8 {
		t.Errorf("index overridden: %+v", cfg.Index)
	}
}

func TestApplyDefaults_GeneratorKeyFromEmbedding(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{APIKey: "sk-shared"}}
	cfg.ApplyDefaults()
	if cfg.Generator.APIKey != "sk-shared" {
		t.Errorf("generator api key = %q", cfg.Generator.APIKey)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("CAPBOT_TEST_PORT", "9090")
	t.Setenv("CAPBOT_TEST_KEY", "")

	cfg, err := Parse([]byte(`
http:
  port: ${CAPBOT_TEST_PORT}
database:
  addrs: ["${CAPBOT_TEST_REDIS:-localhost:6379}"]
embedding:
  api_key: "${CAPBOT_TEST_KEY:-sk-default}"
detection:
  threshold: 0.85
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v", cfg.Database.Addrs)
	}
	if cfg.Embedding.APIKey != "sk-default" {
		t.Errorf("api key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Detection.Threshold != 0.85 {
		t.Errorf("threshold = %v", cfg.Detection.Threshold)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error for missing addrs")
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	for _, env := range []string{"local", "test", "prod"} {
		t.Run(env, func(t *testing.T) {
			if _, err := Load(env); err != nil {
				t.Fatalf("load %s: %v", env, err)
			}
		})
	}
}

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

// Config holds the lifeline API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Auth     AuthConfig     `yaml:"auth"`
	Index    IndexConfig    `yaml:"index"`
	RAG      RAGConfig      `yaml:"rag"`
	Logging  LoggingConfig  `yaml:"logging"`
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

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// GatewayConfig holds AI gateway settings: which embedding provider to use and
// the per-provider connection parameters.
type GatewayConfig struct {
	EmbeddingProvider string           `yaml:"embedding_provider"` // gemini, openai (default: gemini)
	Gemini            GeminiConfig     `yaml:"gemini"`
	OpenAI            OpenAIConfig     `yaml:"openai"`
	Generation        GenerationConfig `yaml:"generation"`
}

// GeminiConfig holds the Gemini REST gateway settings.
type GeminiConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	EmbedModel    string `yaml:"embed_model"`
	GenerateModel string `yaml:"generate_model"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// OpenAIConfig holds the OpenAI-compatible embedding provider settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// GenerationConfig tunes the generation gateway. Zero values defer to the
// remote service defaults.
type GenerationConfig struct {
	Temperature     float32 `yaml:"temperature"`
	TopK            int     `yaml:"top_k"`
	TopP            float32 `yaml:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// IndexConfig holds vector index provisioning settings.
type IndexConfig struct {
	VectorDim           int `yaml:"vector_dim"`
	PollIntervalSec     int `yaml:"poll_interval_sec"`
	ProvisionTimeoutSec int `yaml:"provision_timeout_sec"`
	MaxBatchSize        int `yaml:"max_batch_size"`
}

// RAGConfig holds the per-call-site retrieval settings.
type RAGConfig struct {
	Guides  ServiceConfig `yaml:"guides"`
	Advisor ServiceConfig `yaml:"advisor"`
}

// ServiceConfig configures one retrieval call site.
type ServiceConfig struct {
	Collection string  `yaml:"collection"`
	MinScore   float64 `yaml:"min_score"`
	Limit      int     `yaml:"limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Gateway.EmbeddingProvider == "" {
		c.Gateway.EmbeddingProvider = "gemini"
	}
	if c.Gateway.Gemini.BaseURL == "" {
		c.Gateway.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Gateway.Gemini.EmbedModel == "" {
		c.Gateway.Gemini.EmbedModel = "embedding-001"
	}
	if c.Gateway.Gemini.GenerateModel == "" {
		c.Gateway.Gemini.GenerateModel = "gemini-2.0-flash"
	}
	if c.Gateway.Gemini.TimeoutSec <= 0 {
		c.Gateway.Gemini.TimeoutSec = 30
	}
	if c.Gateway.Generation == (GenerationConfig{}) {
		c.Gateway.Generation = GenerationConfig{
			Temperature:     0.2,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		}
	}
	if c.Index.VectorDim <= 0 {
		c.Index.VectorDim = 768
	}
	if c.Index.PollIntervalSec <= 0 {
		c.Index.PollIntervalSec = 5
	}
	if c.Index.ProvisionTimeoutSec <= 0 {
		c.Index.ProvisionTimeoutSec = 600
	}
	if c.Index.MaxBatchSize <= 0 {
		c.Index.MaxBatchSize = 100
	}
	if c.RAG.Guides.Collection == "" {
		c.RAG.Guides.Collection = "machine_guides"
	}
	if c.RAG.Advisor.Collection == "" {
		c.RAG.Advisor.Collection = "geo_best_practices"
	}
	applyServiceDefaults(&c.RAG.Guides, 3)
	applyServiceDefaults(&c.RAG.Advisor, 5)
}

func applyServiceDefaults(s *ServiceConfig, limit int) {
	if s.MinScore <= 0 {
		s.MinScore = 0.75
	}
	if s.Limit <= 0 {
		s.Limit = limit
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Gateway.EmbeddingProvider {
	case "gemini", "openai":
		// ok
	default:
		return fmt.Errorf(
			"gateway.embedding_provider must be \"gemini\" or \"openai\", got %q",
			c.Gateway.EmbeddingProvider,
		)
	}
	for _, svc := range []struct {
		name string
		cfg  ServiceConfig
	}{
		{"rag.guides", c.RAG.Guides},
		{"rag.advisor", c.RAG.Advisor},
	} {
		if svc.cfg.MinScore < 0 || svc.cfg.MinScore > 1 {
			return fmt.Errorf("%s.min_score must be in [0,1], got %v", svc.name, svc.cfg.MinScore)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

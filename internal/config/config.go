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

// Config holds the docqa API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Session   SessionConfig   `yaml:"session"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Cache     CacheConfig     `yaml:"cache"`
	Upload    UploadConfig    `yaml:"upload"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	TimeoutSec       int `yaml:"timeout_sec"`        // idle time before a session expires
	SweepIntervalSec int `yaml:"sweep_interval_sec"` // background sweep period
}

// RetrievalConfig holds chunking and search settings.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k"`          // chunks fed to generation per question
	SummaryTopK  int `yaml:"summary_top_k"`  // chunks fed to summarization
	ChunkSize    int `yaml:"chunk_size"`     // characters per chunk
	ChunkOverlap int `yaml:"chunk_overlap"`  // characters shared between chunks
}

// LLMConfig holds embedding and generation provider settings.
type LLMConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	GenerationModel     string `yaml:"generation_model"`
	AnswerMaxTokens     int    `yaml:"answer_max_tokens"`
	SummaryMaxTokens    int    `yaml:"summary_max_tokens"`
	CompareMaxTokens    int    `yaml:"compare_max_tokens"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Driver   string   `yaml:"driver"` // memory, redis, none (default: memory)
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

// UploadConfig holds temporary upload settings.
type UploadConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
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
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Session.TimeoutSec <= 0 {
		c.Session.TimeoutSec = 3600
	}
	if c.Session.SweepIntervalSec <= 0 {
		c.Session.SweepIntervalSec = 300
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 4
	}
	if c.Retrieval.SummaryTopK <= 0 {
		c.Retrieval.SummaryTopK = 6
	}
	if c.Retrieval.ChunkSize <= 0 {
		c.Retrieval.ChunkSize = 1000
	}
	if c.Retrieval.ChunkOverlap <= 0 {
		c.Retrieval.ChunkOverlap = 100
	}
	if c.LLM.AnswerMaxTokens <= 0 {
		c.LLM.AnswerMaxTokens = 200
	}
	if c.LLM.SummaryMaxTokens <= 0 {
		c.LLM.SummaryMaxTokens = 250
	}
	if c.LLM.CompareMaxTokens <= 0 {
		c.LLM.CompareMaxTokens = 300
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = os.TempDir()
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 32 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap (%d) must be smaller than retrieval.chunk_size (%d)",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	switch c.Cache.Driver {
	case "memory", "none":
		// ok
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for cache.driver=redis")
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\", \"redis\" or \"none\", got %q", c.Cache.Driver)
	}
	if c.LLM.EmbeddingModel == "" {
		return fmt.Errorf("llm.embedding_model is required")
	}
	if c.LLM.GenerationModel == "" {
		return fmt.Errorf("llm.generation_model is required")
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

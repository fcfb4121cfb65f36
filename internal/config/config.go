package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ragline-ai/ragline/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultResponseThreshold = 0.98
	defaultDocumentThreshold = 0.95
	defaultCacheTTLSeconds   = 86400
	defaultEvictionMinutes   = 60
	defaultRetrievalLimit    = 3
	defaultKnowledgeScore    = 0.1
	defaultChunkSize         = 1000
)

// Config represents the complete application configuration
type Config struct {
	Server      models.ServerConfig        `yaml:"server"`
	Database    *models.DatabaseConfig     `yaml:"database,omitempty"`
	Redis       *models.RedisConfig        `yaml:"redis,omitempty"`
	RateLimit   models.RateLimitConfig     `yaml:"rate_limit"`
	VectorIndex models.VectorIndexConfig   `yaml:"vector_index"`
	Cache       models.SemanticCacheConfig `yaml:"cache"`
	Knowledge   models.KnowledgeConfig     `yaml:"knowledge"`
	Embedding   models.EmbeddingConfig     `yaml:"embedding"`
	Generation  models.GenerationConfig    `yaml:"generation"`
	Guardrails  models.GuardrailsConfig    `yaml:"guardrails"`
	Scrape      models.ScrapeConfig        `yaml:"scrape"`
}

// LoadFromFile loads configuration from a YAML file with environment variable substitution
func LoadFromFile(configPath string) (*Config, error) {
	// Validate and clean the file path to prevent directory traversal
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	content := substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// LoadEnvFiles loads environment variables from .env files in order of precedence
// Loads files in the order provided (first has highest priority)
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// New creates a new Config instance by loading from the specified config file path
func New(configPath string) (*Config, error) {
	return LoadFromFile(configPath)
}

func (c *Config) applyDefaults() {
	if c.Cache.ResponseThreshold <= 0 || c.Cache.ResponseThreshold > 1 {
		c.Cache.ResponseThreshold = defaultResponseThreshold
	}
	if c.Cache.DocumentThreshold <= 0 || c.Cache.DocumentThreshold > 1 {
		c.Cache.DocumentThreshold = defaultDocumentThreshold
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	if c.Cache.EvictionIntervalMin <= 0 {
		c.Cache.EvictionIntervalMin = defaultEvictionMinutes
	}
	if c.Cache.DocCollection == "" {
		c.Cache.DocCollection = "doc_cache"
	}
	if c.Cache.ResponseCollection == "" {
		c.Cache.ResponseCollection = "response_cache"
	}
	if c.Knowledge.Collection == "" {
		c.Knowledge.Collection = "knowledge_base"
	}
	if c.Knowledge.RetrievalLimit <= 0 {
		c.Knowledge.RetrievalLimit = defaultRetrievalLimit
	}
	if c.Knowledge.ScoreThreshold <= 0 {
		c.Knowledge.ScoreThreshold = defaultKnowledgeScore
	}
	if c.Knowledge.ChunkSize <= 0 {
		c.Knowledge.ChunkSize = defaultChunkSize
	}
}

// Validate checks that the configuration is complete enough to start
func (c *Config) Validate() error {
	if c.VectorIndex.Backend == "" {
		return fmt.Errorf("vector_index.backend is required")
	}
	if c.VectorIndex.Dimension <= 0 {
		return fmt.Errorf("vector_index.dimension must be positive")
	}
	switch c.VectorIndex.Backend {
	case models.VectorBackendQdrant:
		if c.VectorIndex.Qdrant == nil || c.VectorIndex.Qdrant.URL == "" {
			return fmt.Errorf("vector_index.qdrant.url is required for the qdrant backend")
		}
	case models.VectorBackendPgvector:
		if c.VectorIndex.Postgres == nil || c.VectorIndex.Postgres.URL == "" {
			return fmt.Errorf("vector_index.postgres.url is required for the pgvector backend")
		}
	case models.VectorBackendMemory:
	default:
		return fmt.Errorf("unsupported vector index backend: %s", c.VectorIndex.Backend)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Generation.Provider == "" {
		return fmt.Errorf("generation.provider is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	return nil
}

// IsProduction returns true when running in production environment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variables
func substituteEnvVars(content string) string {
	// Pattern matches ${VAR_NAME} or ${VAR_NAME:-default_value}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		submatches := re.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""

		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

package models

// GenerationProvider identifies a text-generation backend
type GenerationProvider string

const (
	ProviderOpenAI    GenerationProvider = "openai"
	ProviderAnthropic GenerationProvider = "anthropic"
	ProviderGemini    GenerationProvider = "gemini"
)

// GenerationConfig configures the text-generation model call
type GenerationConfig struct {
	Provider    GenerationProvider `yaml:"provider" json:"provider"`
	Model       string             `yaml:"model" json:"model"`
	APIKey      string             `yaml:"api_key" json:"-"`
	BaseURL     string             `yaml:"base_url,omitempty" json:"base_url,omitzero"`
	Temperature float64            `yaml:"temperature,omitempty" json:"temperature,omitzero"`
	MaxTokens   int                `yaml:"max_tokens,omitempty" json:"max_tokens,omitzero"`
}

// EmbeddingConfig configures the embedding model call. The endpoint must be
// OpenAI-compatible; BaseURL covers self-hosted deployments.
type EmbeddingConfig struct {
	Model   string `yaml:"model" json:"model"`
	APIKey  string `yaml:"api_key" json:"-"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitzero"`
}

// GuardrailConfig configures one safety classifier instance
type GuardrailConfig struct {
	Model          string  `yaml:"model" json:"model"`
	APIKey         string  `yaml:"api_key" json:"-"`
	BaseURL        string  `yaml:"base_url,omitempty" json:"base_url,omitzero"`
	TimeoutSeconds float64 `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitzero"`
	FailOpen       *bool   `yaml:"fail_open,omitempty" json:"fail_open,omitzero"`
	// Threshold is the risk score at or above which output is blocked.
	// Only meaningful for the output guard.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitzero"`
}

// GuardrailsConfig holds both classifier instances
type GuardrailsConfig struct {
	Input  GuardrailConfig `yaml:"input" json:"input"`
	Output GuardrailConfig `yaml:"output" json:"output"`
}

// ScrapeConfig configures URL content fetching
type ScrapeConfig struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	TimeoutMs int  `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitzero"`
	MaxURLs   int  `yaml:"max_urls,omitempty" json:"max_urls,omitzero"`
}

// RedisConfig holds the redis connection used by the rate limiter
type RedisConfig struct {
	URL string `yaml:"url" json:"url"`
}

// RateLimitConfig configures per-client request limiting
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled" json:"enabled"`
	Max           int  `yaml:"max,omitempty" json:"max,omitzero"`
	WindowSeconds int  `yaml:"window_seconds,omitempty" json:"window_seconds,omitzero"`
}

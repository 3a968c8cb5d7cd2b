package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/jacklau/neardup/internal/dedup"
)

// EnvPrefix prefixes the environment variables that override the cluster
// section, e.g. NEARDUP_MIN_SIMILARITY.
const EnvPrefix = "NEARDUP_"

// Config is the top-level configuration.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Providers ProvidersConfig `yaml:"providers"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Embed     EmbedConfig     `yaml:"embed"`
	Phatic    PhaticConfig    `yaml:"phatic"`
	Store     StoreConfig     `yaml:"store"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// GitHubConfig holds GitHub authentication settings.
type GitHubConfig struct {
	Auth           string `yaml:"auth"`
	AppID          string `yaml:"app_id"`
	InstallationID string `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
	PrivateKey     string `yaml:"private_key"`
	Token          string `yaml:"token"`
}

// ProviderConfig holds settings for a single provider (embedding or LLM).
type ProviderConfig struct {
	Type   string `yaml:"type"`
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
	URL    string `yaml:"url"`
	// MaxTokens caps LLM completions; 0 keeps the provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// ProvidersConfig groups embedding and LLM provider configs.
type ProvidersConfig struct {
	Embedding ProviderConfig `yaml:"embedding"`
	LLM       ProviderConfig `yaml:"llm"`
}

// ClusterConfig holds the clustering engine parameters. Every field can be
// overridden from the environment.
type ClusterConfig struct {
	MinSimilarity  float64 `yaml:"min_similarity" env:"MIN_SIMILARITY"`
	MinClusterSize int     `yaml:"min_cluster_size" env:"MIN_CLUSTER_SIZE"`
	ChunkSize      int     `yaml:"chunk_size" env:"CHUNK_SIZE"`
	// Workers is the extraction parallelism; 0 means GOMAXPROCS.
	Workers  int    `yaml:"workers" env:"WORKERS"`
	Strategy string `yaml:"strategy" env:"STRATEGY"`
}

// EmbedConfig controls how corpora are embedded.
type EmbedConfig struct {
	BatchSize         int    `yaml:"batch_size"`
	MaxChars          int    `yaml:"max_chars"`
	MaxAttempts       int    `yaml:"max_attempts"`
	Workers           int    `yaml:"workers"`
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// PhaticConfig configures the small-talk filter used by embed --drop-phatic.
type PhaticConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// ExamplesPath replaces the built-in example phrases, one per line.
	ExamplesPath string `yaml:"examples_path"`
}

// NotifyConfig holds the webhooks that cluster --notify posts run summaries to.
type NotifyConfig struct {
	SlackWebhook   string `yaml:"slack_webhook"`
	DiscordWebhook string `yaml:"discord_webhook"`
}

// StoreConfig holds storage settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RequestTimeout returns the parsed request timeout duration.
func (e EmbedConfig) RequestTimeout() (time.Duration, error) {
	if e.RequestTimeoutRaw == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(e.RequestTimeoutRaw)
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load reads and parses a config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Default returns the configuration used when no config file exists:
// defaults plus environment overrides.
func Default() (*Config, error) {
	return Parse(nil)
}

// Parse parses config from raw YAML bytes, expanding env vars, applying
// NEARDUP_ overrides and defaults, and validating.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := env.ParseWithOptions(&cfg.Cluster, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing %s environment overrides: %w", EnvPrefix, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Cluster.MinSimilarity == 0 {
		cfg.Cluster.MinSimilarity = 0.70
	}
	if cfg.Cluster.MinClusterSize == 0 {
		cfg.Cluster.MinClusterSize = 5
	}
	if cfg.Cluster.ChunkSize == 0 {
		cfg.Cluster.ChunkSize = 1000
	}
	if cfg.Cluster.Strategy == "" {
		cfg.Cluster.Strategy = string(dedup.StrategyBatched)
	}
	if cfg.Embed.BatchSize == 0 {
		cfg.Embed.BatchSize = 1000
	}
	if cfg.Embed.MaxChars == 0 {
		cfg.Embed.MaxChars = 8000
	}
	if cfg.Embed.MaxAttempts == 0 {
		cfg.Embed.MaxAttempts = 3
	}
	if cfg.Embed.Workers == 0 {
		cfg.Embed.Workers = 4
	}
	if cfg.Embed.RequestTimeoutRaw == "" {
		cfg.Embed.RequestTimeoutRaw = "30s"
	}
	if cfg.Phatic.SimilarityThreshold == 0 {
		cfg.Phatic.SimilarityThreshold = 0.5
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.neardup/neardup.db"
	}
	cfg.Store.Path = expandTilde(cfg.Store.Path)
	cfg.Phatic.ExamplesPath = expandTilde(cfg.Phatic.ExamplesPath)
	cfg.GitHub.PrivateKeyPath = expandTilde(cfg.GitHub.PrivateKeyPath)
}

func validate(cfg *Config) error {
	c := cfg.Cluster
	if c.MinSimilarity <= 0 || c.MinSimilarity >= 1 {
		return fmt.Errorf("min_similarity must be between 0 and 1 exclusive, got %f", c.MinSimilarity)
	}
	if c.MinClusterSize < 1 {
		return fmt.Errorf("min_cluster_size must be at least 1, got %d", c.MinClusterSize)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1, got %d", c.ChunkSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := dedup.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	if cfg.Embed.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", cfg.Embed.BatchSize)
	}
	if _, err := time.ParseDuration(cfg.Embed.RequestTimeoutRaw); err != nil {
		return fmt.Errorf("invalid request_timeout %q: %w", cfg.Embed.RequestTimeoutRaw, err)
	}

	if cfg.Phatic.SimilarityThreshold < 0 || cfg.Phatic.SimilarityThreshold > 1 {
		return fmt.Errorf("phatic similarity_threshold must be between 0 and 1, got %f", cfg.Phatic.SimilarityThreshold)
	}

	// Validate provider types if set
	validEmbedTypes := map[string]bool{"openai": true, "ollama": true, "": true}
	if !validEmbedTypes[cfg.Providers.Embedding.Type] {
		return fmt.Errorf("unsupported embedding provider type: %s", cfg.Providers.Embedding.Type)
	}

	validLLMTypes := map[string]bool{"openai": true, "ollama": true, "anthropic": true, "": true}
	if !validLLMTypes[cfg.Providers.LLM.Type] {
		return fmt.Errorf("unsupported LLM provider type: %s", cfg.Providers.LLM.Type)
	}

	validAuth := map[string]bool{"app": true, "token": true, "": true}
	if !validAuth[cfg.GitHub.Auth] {
		return fmt.Errorf("unsupported github auth: %s", cfg.GitHub.Auth)
	}

	return nil
}

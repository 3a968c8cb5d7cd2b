package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacklau/neardup/internal/config"
	"github.com/jacklau/neardup/internal/dedup"
	"github.com/jacklau/neardup/internal/github"
	"github.com/jacklau/neardup/internal/label"
	"github.com/jacklau/neardup/internal/notify"
	"github.com/jacklau/neardup/internal/provider"
	"github.com/jacklau/neardup/internal/store"

	gogithub "github.com/google/go-github/v60/github"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "neardup",
	Short: "Find clusters of near-duplicate documents by embedding similarity",
	Long: `Neardup embeds a corpus of short texts (a text file or a repository's
GitHub issues), then groups documents whose cosine similarity to a central
document exceeds a threshold. Large corpora are processed block by block so
the similarity matrix never has to fit in memory.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".neardup", "config.yaml")
	}
	return filepath.Join(home, ".neardup", "config.yaml")
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// loadConfig reads the config file. Without --config a missing default
// file is not an error: built-in defaults and NEARDUP_ overrides apply.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default()
		}
	}
	return config.Load(path)
}

// components holds initialized components for use by subcommands.
type components struct {
	Config    *config.Config
	Store     *store.DB
	GHClient  *gogithub.Client
	Embedder  provider.Embedder
	Completer provider.Completer
	Logger    *slog.Logger
}

// initComponents creates all components from config.
func initComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	c := &components{
		Config: cfg,
		Logger: logger,
	}

	if err := ensureDir(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	c.Store = db

	client, err := newGitHubClient(cfg.GitHub)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.GHClient = client

	switch cfg.Providers.Embedding.Type {
	case "openai":
		c.Embedder = provider.NewOpenAIEmbedder(cfg.Providers.Embedding.APIKey, cfg.Providers.Embedding.Model)
	case "ollama":
		c.Embedder = provider.NewOllamaEmbedder(cfg.Providers.Embedding.URL, cfg.Providers.Embedding.Model)
	case "":
		// No embedding provider configured
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported embedding provider type: %q", cfg.Providers.Embedding.Type)
	}

	maxTokens := provider.WithMaxTokens(cfg.Providers.LLM.MaxTokens)
	switch cfg.Providers.LLM.Type {
	case "openai":
		c.Completer = provider.NewOpenAICompleter(cfg.Providers.LLM.APIKey, cfg.Providers.LLM.Model, maxTokens)
	case "anthropic":
		c.Completer = provider.NewAnthropicCompleter(cfg.Providers.LLM.APIKey, cfg.Providers.LLM.Model, maxTokens)
	case "ollama":
		c.Completer = provider.NewOllamaCompleter(cfg.Providers.LLM.URL, cfg.Providers.LLM.Model, maxTokens)
	case "":
		// No LLM provider configured
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported LLM provider type: %q", cfg.Providers.LLM.Type)
	}

	return c, nil
}

// newGitHubClient builds a client for the configured auth mode. Without
// auth the client is anonymous, which only reaches public repositories.
func newGitHubClient(cfg config.GitHubConfig) (*gogithub.Client, error) {
	switch cfg.Auth {
	case "app":
		appID, err := strconv.ParseInt(cfg.AppID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing app_id: %w", err)
		}
		installID, err := strconv.ParseInt(cfg.InstallationID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing installation_id: %w", err)
		}
		client, err := github.NewGitHubClient(appID, installID, []byte(cfg.PrivateKey), cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("creating GitHub client: %w", err)
		}
		return client, nil
	default:
		return github.NewTokenClient(cfg.Token), nil
	}
}

// newLabeler returns nil when no LLM provider is configured.
func (c *components) newLabeler() *label.Labeler {
	if c.Completer == nil {
		return nil
	}
	timeout, err := c.Config.Embed.RequestTimeout()
	if err != nil {
		timeout = 30 * time.Second
	}
	return label.NewLabeler(c.Completer, timeout, c.Logger)
}

// newEngine builds a clustering engine from the cluster config section.
func newEngine(cfg config.ClusterConfig, logger *slog.Logger, progress func(done, total int)) (*dedup.Engine, error) {
	opts := []dedup.Option{
		dedup.WithMinSimilarity(cfg.MinSimilarity),
		dedup.WithMinClusterSize(cfg.MinClusterSize),
		dedup.WithChunkSize(cfg.ChunkSize),
		dedup.WithLogger(logger),
	}
	if cfg.Workers > 0 {
		opts = append(opts, dedup.WithWorkers(cfg.Workers))
	}
	if progress != nil {
		opts = append(opts, dedup.WithProgress(progress))
	}
	return dedup.NewEngine(opts...)
}

// createNotifier builds the notifier named by --notify from the configured webhooks.
func createNotifier(cfg config.NotifyConfig, notifyType string) (notify.Notifier, error) {
	n, err := notify.NewNotifier(notifyType, cfg.SlackWebhook, cfg.DiscordWebhook)
	if err != nil {
		return nil, fmt.Errorf("creating notifier: %w", err)
	}
	return n, nil
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

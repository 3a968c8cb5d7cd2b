package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacklau/neardup/internal/corpus"
	"github.com/jacklau/neardup/internal/github"
	"github.com/jacklau/neardup/internal/phatic"
	"github.com/jacklau/neardup/internal/store"
)

var (
	embedText       string
	embedGitHub     string
	embedState      string
	embedLimit      int
	embedOut        string
	embedDropPhatic bool
)

var embedCmd = &cobra.Command{
	Use:   "embed <corpus>",
	Short: "Embed a corpus of texts and store it",
	Long: `Embed reads documents from a text file (one per line) or from a GitHub
repository's issues, embeds them with the configured provider, and stores the
corpus under the given name. An existing corpus with that name is replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().StringVar(&embedText, "text", "", "text file with one document per line")
	embedCmd.Flags().StringVar(&embedGitHub, "github", "", "GitHub repository (owner/repo) whose issues form the corpus")
	embedCmd.Flags().StringVar(&embedState, "state", "open", "issue state for --github: open, closed, or all")
	embedCmd.Flags().IntVar(&embedLimit, "limit", 0, "maximum number of issues for --github (0 for all)")
	embedCmd.Flags().StringVar(&embedOut, "out", "", "also write the embeddings to this JSON file")
	embedCmd.Flags().BoolVar(&embedDropPhatic, "drop-phatic", false, "drop small-talk documents (greetings, thanks) before storing")
	embedCmd.MarkFlagsMutuallyExclusive("text", "github")
	embedCmd.MarkFlagsOneRequired("text", "github")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	name := args[0]
	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	if c.Embedder == nil {
		return fmt.Errorf("no embedding provider configured (set providers.embedding in config)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	texts, source, err := readCorpus(ctx, c)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
		return nil
	}
	logger.Info("corpus loaded", "source", source, "documents", len(texts))

	timeout, err := cfg.Embed.RequestTimeout()
	if err != nil {
		return fmt.Errorf("parsing request timeout: %w", err)
	}

	bar := newProgressBar(0, "Embedding", cmd.ErrOrStderr())
	start := time.Now()
	vecs, err := corpus.Embed(ctx, c.Embedder, texts, corpus.Options{
		BatchSize:   cfg.Embed.BatchSize,
		MaxChars:    cfg.Embed.MaxChars,
		MaxAttempts: cfg.Embed.MaxAttempts,
		Workers:     cfg.Embed.Workers,
		Timeout:     timeout,
		Logger:      logger,
		Progress:    bar.Update,
	})
	if err != nil {
		return fmt.Errorf("embedding corpus: %w", err)
	}
	bar.Finish()

	dropped := 0
	if embedDropPhatic {
		texts, vecs, dropped, err = dropPhatic(ctx, c, texts, vecs)
		if err != nil {
			return err
		}
		logger.Info("dropped phatic documents", "count", dropped)
	}

	if err := replaceCorpus(c.Store, name, source, cfg.Providers.Embedding.Model, texts, vecs); err != nil {
		return err
	}

	if embedOut != "" {
		if err := corpus.WriteVectors(embedOut, vecs); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Embedded corpus %q from %s\n", name, source)
	fmt.Fprintf(out, "  Documents:  %d\n", len(texts))
	if embedDropPhatic {
		fmt.Fprintf(out, "  Dropped:    %d phatic\n", dropped)
	}
	if len(vecs) > 0 {
		fmt.Fprintf(out, "  Dimension:  %d\n", len(vecs[0]))
	}
	fmt.Fprintf(out, "  Duration:   %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// readCorpus loads documents from --text or --github and returns them with a
// source description.
func readCorpus(ctx context.Context, c *components) ([]string, string, error) {
	if embedText != "" {
		texts, err := corpus.ReadLines(embedText)
		if err != nil {
			return nil, "", err
		}
		return texts, "file:" + embedText, nil
	}

	owner, repo, ok := github.ParseRepo(embedGitHub)
	if !ok {
		return nil, "", fmt.Errorf("invalid repo format: expected owner/repo, got %q", embedGitHub)
	}
	issues, err := github.ListIssueTexts(ctx, c.GHClient, owner, repo, github.ListOptions{
		State: embedState,
		Limit: embedLimit,
	}, c.Logger)
	if err != nil {
		return nil, "", fmt.Errorf("listing issues: %w", err)
	}

	var texts []string
	for _, t := range github.Texts(issues) {
		if t != "" {
			texts = append(texts, t)
		}
	}
	return texts, "github:" + owner + "/" + repo, nil
}

// dropPhatic removes small-talk documents, keeping texts and vecs aligned.
func dropPhatic(ctx context.Context, c *components, texts []string, vecs [][]float32) ([]string, [][]float32, int, error) {
	var examples []string
	if path := c.Config.Phatic.ExamplesPath; path != "" {
		var err error
		if examples, err = corpus.ReadLines(path); err != nil {
			return nil, nil, 0, fmt.Errorf("reading phatic examples: %w", err)
		}
	}

	detector, err := phatic.NewDetector(ctx, c.Embedder, examples, c.Config.Phatic.SimilarityThreshold)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("creating phatic detector: %w", err)
	}

	keptTexts := texts[:0:0]
	keptVecs := vecs[:0:0]
	for i, t := range texts {
		isPhatic, err := detector.IsPhatic(ctx, t, vecs[i])
		if err != nil {
			return nil, nil, 0, fmt.Errorf("checking document %d: %w", i, err)
		}
		if isPhatic {
			continue
		}
		keptTexts = append(keptTexts, t)
		keptVecs = append(keptVecs, vecs[i])
	}
	return keptTexts, keptVecs, len(texts) - len(keptTexts), nil
}

// replaceCorpus stores texts and vecs under name in place of any corpus
// that already has that name.
func replaceCorpus(s store.Store, name, source, model string, texts []string, vecs [][]float32) error {
	docs := make([]store.Document, len(texts))
	for i := range texts {
		docs[i] = store.Document{Index: i, Text: texts[i], Embedding: vecs[i]}
	}
	if _, err := s.ReplaceCorpus(name, source, model, docs); err != nil {
		return fmt.Errorf("storing corpus %q: %w", name, err)
	}
	return nil
}

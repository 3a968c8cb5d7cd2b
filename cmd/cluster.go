package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jacklau/neardup/internal/config"
	"github.com/jacklau/neardup/internal/corpus"
	"github.com/jacklau/neardup/internal/dedup"
	"github.com/jacklau/neardup/internal/notify"
	"github.com/jacklau/neardup/internal/store"
)

var (
	clusterVectors        string
	clusterStrategy       string
	clusterChunkSize      int
	clusterMinSimilarity  float64
	clusterMinClusterSize int
	clusterWorkers        int
	clusterOut            string
	clusterLabel          bool
	clusterShow           int
	clusterNotify         string
)

var clusterCmd = &cobra.Command{
	Use:   "cluster [corpus]",
	Short: "Group near-duplicate documents of a corpus",
	Long: `Cluster finds groups of documents that are all more similar than
--min-similarity to a central document. Only groups larger than
--min-cluster-size are reported, and every document belongs to at most one
group. Clustering a stored corpus records the run so it can be inspected
later with 'neardup show'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCluster,
}

func init() {
	clusterCmd.Flags().StringVar(&clusterVectors, "vectors", "", "cluster embeddings from a JSON file instead of a stored corpus")
	clusterCmd.Flags().StringVar(&clusterStrategy, "strategy", "", "whole, streaming, batched, incremental, or hierarchical (default from config)")
	clusterCmd.Flags().IntVar(&clusterChunkSize, "chunk-size", 0, "documents per block (default from config)")
	clusterCmd.Flags().Float64Var(&clusterMinSimilarity, "min-similarity", 0, "similarity a member must exceed (default from config)")
	clusterCmd.Flags().IntVar(&clusterMinClusterSize, "min-cluster-size", 0, "size a cluster must exceed (default from config)")
	clusterCmd.Flags().IntVar(&clusterWorkers, "workers", 0, "parallel extraction workers (default from config)")
	clusterCmd.Flags().StringVar(&clusterOut, "out", "", "write clusters to this JSON file")
	clusterCmd.Flags().BoolVar(&clusterLabel, "label", false, "name each cluster with the configured LLM")
	clusterCmd.Flags().IntVar(&clusterShow, "show", 20, "number of clusters to print")
	clusterCmd.Flags().StringVar(&clusterNotify, "notify", "", "post a run summary to slack, discord, or both")
	rootCmd.AddCommand(clusterCmd)
}

func runCluster(cmd *cobra.Command, args []string) error {
	if (len(args) == 1) == (clusterVectors != "") {
		return fmt.Errorf("specify either a corpus name or --vectors")
	}

	logger := setupLogger()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cc := clusterOverrides(cmd, cfg.Cluster)

	strategy, err := dedup.ParseStrategy(cc.Strategy)
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if clusterNotify != "" {
		if notifier, err = createNotifier(cfg.Notify, clusterNotify); err != nil {
			return err
		}
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Store.Close()

	var (
		embeddings [][]float32
		corp       *store.Corpus
	)
	if clusterVectors != "" {
		if embeddings, err = corpus.ReadVectors(clusterVectors); err != nil {
			return err
		}
	} else {
		if corp, err = c.Store.GetCorpusByName(args[0]); err != nil {
			return fmt.Errorf("loading corpus %q: %w", args[0], err)
		}
		if embeddings, err = c.Store.GetEmbeddings(corp.ID); err != nil {
			return err
		}
	}
	if len(embeddings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Corpus is empty.")
		return nil
	}

	bar := newProgressBar(0, "Clustering", cmd.ErrOrStderr())
	engine, err := newEngine(cc, logger, bar.Update)
	if err != nil {
		return err
	}

	if dim := len(embeddings[0]); cc.ChunkSize < len(embeddings) {
		logger.Debug("block memory",
			"block", humanize.IBytes(uint64(cc.ChunkSize)*uint64(len(embeddings))*8),
			"embeddings", humanize.IBytes(uint64(len(embeddings))*uint64(dim)*8),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	space, err := engine.Prepare(embeddings)
	if err != nil {
		return err
	}
	start := time.Now()
	p, err := engine.Cluster(ctx, space, strategy)
	if err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	elapsed := time.Since(start)
	bar.Finish()

	var texts []string
	if corp != nil {
		if texts, err = corpusTexts(c.Store, corp.ID, len(embeddings), p); err != nil {
			return err
		}
	}

	var labels []string
	if clusterLabel {
		labeler := c.newLabeler()
		switch {
		case labeler == nil:
			logger.Warn("--label ignored: no LLM provider configured")
		case texts == nil:
			logger.Warn("--label ignored: texts are only available for stored corpora")
		default:
			if labels, err = labelPartition(ctx, labeler, p, texts); err != nil {
				return fmt.Errorf("labeling clusters: %w", err)
			}
		}
	}

	var runID string
	if corp != nil {
		run := &store.Run{
			CorpusID:       corp.ID,
			Strategy:       string(strategy),
			MinSimilarity:  cc.MinSimilarity,
			MinClusterSize: cc.MinClusterSize,
			ChunkSize:      cc.ChunkSize,
			Duration:       elapsed,
		}
		if err := c.Store.SaveRun(run, p, labels); err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		runID = run.ID
	}

	if clusterOut != "" {
		if err := corpus.WriteClusters(clusterOut, corpus.Reports(p, texts, labels)); err != nil {
			return err
		}
	}

	if notifier != nil {
		corpusName := clusterVectors
		if corp != nil {
			corpusName = corp.Name
		}
		summary := runSummary(corpusName, runID, strategy, elapsed, p, texts, labels, len(embeddings))
		if err := notifier.Notify(ctx, summary); err != nil {
			logger.Error("sending run notification", "error", err)
		}
	}

	printPartition(cmd.OutOrStdout(), p, texts, labels, len(embeddings), clusterShow)
	fmt.Fprintf(cmd.OutOrStdout(), "\nStrategy %s took %s", strategy, elapsed.Round(time.Millisecond))
	if runID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), ", saved as run %s", runID)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// clusterOverrides applies the flags the user set on top of the config.
func clusterOverrides(cmd *cobra.Command, cc config.ClusterConfig) config.ClusterConfig {
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cc.Strategy = clusterStrategy
	}
	if flags.Changed("chunk-size") {
		cc.ChunkSize = clusterChunkSize
	}
	if flags.Changed("min-similarity") {
		cc.MinSimilarity = clusterMinSimilarity
	}
	if flags.Changed("min-cluster-size") {
		cc.MinClusterSize = clusterMinClusterSize
	}
	if flags.Changed("workers") {
		cc.Workers = clusterWorkers
	}
	return cc
}

// printPartition writes a summary line and up to limit clusters.
func printPartition(w io.Writer, p dedup.Partition, texts, labels []string, total, limit int) {
	fmt.Fprintf(w, "%d clusters covering %d of %d documents\n", len(p), p.Documents(), total)
	if len(p) == 0 {
		return
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSIZE\tCENTROID\tDESCRIPTION")
	for i, c := range p {
		if limit > 0 && i == limit {
			break
		}
		desc := ""
		switch {
		case i < len(labels) && labels[i] != "":
			desc = labels[i]
		case c.Centroid < len(texts):
			desc = snippet(texts[c.Centroid], 60)
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", i, c.Len(), c.Centroid, desc)
	}
	tw.Flush()

	if limit > 0 && len(p) > limit {
		fmt.Fprintf(w, "... and %d more\n", len(p)-limit)
	}
}

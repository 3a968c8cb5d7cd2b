package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jacklau/neardup/internal/dedup"
	"github.com/jacklau/neardup/internal/store"
)

var (
	showLimit   int
	showMembers int
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the clusters of a saved run",
	Long: `Show prints the clusters found by a previous 'neardup cluster' run,
largest first, with each member's text and its similarity to the centroid.
A unique prefix of the run ID is enough.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 10, "number of clusters to print (0 for all)")
	showCmd.Flags().IntVar(&showMembers, "members", 5, "members to print per cluster (0 for all)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	return showRun(cmd.OutOrStdout(), c.Store, args[0], showLimit, showMembers)
}

func showRun(w io.Writer, db *store.DB, runRef string, limit, members int) error {
	run, err := db.GetRun(runRef)
	if err != nil {
		return fmt.Errorf("loading run %q: %w", runRef, err)
	}
	corp, err := db.GetCorpus(run.CorpusID)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	clusters, err := db.GetRunClusters(run.ID)
	if err != nil {
		return err
	}
	embeddings, err := db.GetEmbeddings(corp.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run %s on corpus %q (%s)\n", run.ID, corp.Name, humanize.Time(run.CreatedAt))
	fmt.Fprintf(w, "  strategy=%s min_similarity=%.2f min_cluster_size=%d chunk_size=%d\n",
		run.Strategy, run.MinSimilarity, run.MinClusterSize, run.ChunkSize)
	fmt.Fprintf(w, "  %d clusters covering %s documents\n", run.ClusterCount, humanize.Comma(int64(run.ClusteredDocs)))

	for i, sc := range clusters {
		if limit > 0 && i == limit {
			fmt.Fprintf(w, "\n... and %d more clusters\n", len(clusters)-limit)
			break
		}

		shown := sc.Members
		if members > 0 && len(shown) > members {
			shown = shown[:members]
		}
		texts, err := db.GetTexts(corp.ID, shown)
		if err != nil {
			return err
		}
		scores, err := dedup.MemberScores(embeddings, dedup.Cluster{Centroid: sc.Centroid, Members: shown})
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "\n#%d  %d documents", sc.Rank, len(sc.Members))
		if sc.Label != "" {
			fmt.Fprintf(w, "  %s", sc.Label)
		}
		fmt.Fprintln(w)
		for j, doc := range shown {
			fmt.Fprintf(w, "  %6d  %.3f  %s\n", doc, scores[j], snippet(texts[j], 100))
		}
		if len(shown) < len(sc.Members) {
			fmt.Fprintf(w, "  ... %d more\n", len(sc.Members)-len(shown))
		}
	}
	return nil
}

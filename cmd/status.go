package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jacklau/neardup/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored corpora and clustering runs",
	Long: `Display statistics about stored corpora including document counts,
embedding dimension, run counts, the latest run, and database size.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	allStats, err := c.Store.GetAllCorpusStats()
	if err != nil {
		return fmt.Errorf("querying stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(allStats) == 0 {
		fmt.Fprintln(out, "No corpora stored yet.")
		fmt.Fprintln(out, "Run 'neardup embed <name> --text FILE' or 'neardup embed <name> --github owner/repo' to get started.")
		return nil
	}

	printStats(out, allStats)

	fmt.Fprintln(out)
	dbSize, err := dbFileSize(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(out, "Database: %s (size unknown)\n", cfg.Store.Path)
	} else {
		fmt.Fprintf(out, "Database: %s (%s)\n", cfg.Store.Path, humanize.IBytes(uint64(dbSize)))
	}

	return nil
}

func printStats(w io.Writer, allStats []store.CorpusStats) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CORPUS\tSOURCE\tDOCUMENTS\tDIM\tRUNS\tLAST RUN")
	fmt.Fprintln(tw, "------\t------\t---------\t---\t----\t--------")

	var totalDocs, totalRuns int
	for _, s := range allStats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.Corpus.Name, s.Corpus.Source, humanize.Comma(int64(s.DocumentCount)),
			s.Corpus.Dim, s.RunCount, lastRun(s.LastRun))

		totalDocs += s.DocumentCount
		totalRuns += s.RunCount
	}

	if len(allStats) > 1 {
		fmt.Fprintf(tw, "TOTAL\t\t%s\t\t%d\t\n", humanize.Comma(int64(totalDocs)), totalRuns)
	}
	tw.Flush()
}

// lastRun describes a corpus's latest run: short ID, cluster count and age.
func lastRun(r *store.Run) string {
	if r == nil {
		return "never"
	}
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s (%d clusters, %s)", id, r.ClusterCount, humanize.Time(r.CreatedAt))
}

// dbFileSize returns the size in bytes of the database file.
func dbFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

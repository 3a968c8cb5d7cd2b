package notify

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// maxListed bounds how many clusters a message lists.
const maxListed = 10

// Summary describes a finished clustering run.
type Summary struct {
	Corpus    string
	RunID     string
	Strategy  string
	Documents int
	Clustered int
	Duration  time.Duration
	// Clusters is ordered largest first.
	Clusters []ClusterLine
}

// ClusterLine is one cluster as shown in a message.
type ClusterLine struct {
	Rank        int
	Size        int
	Description string
}

// Title is the headline of a run message.
func (s Summary) Title() string {
	if s.Corpus == "" {
		return "Near-duplicate clusters found"
	}
	return fmt.Sprintf("Near-duplicate clusters in %s", s.Corpus)
}

// FormatCoverage describes how much of the corpus was clustered.
// Example: "13 of 16 documents (81%) in 2 clusters"
func FormatCoverage(s Summary) string {
	pct := 0
	if s.Documents > 0 {
		pct = int(math.Round(float64(s.Clustered) / float64(s.Documents) * 100))
	}
	return fmt.Sprintf("%d of %d documents (%d%%) in %d clusters", s.Clustered, s.Documents, pct, len(s.Clusters))
}

// FormatClusters lists the largest clusters, one per line.
// Example: "- #0 (7 docs) login fails after update"
func FormatClusters(clusters []ClusterLine) string {
	if len(clusters) == 0 {
		return "None found"
	}
	n := min(len(clusters), maxListed)
	parts := make([]string, n)
	for i, c := range clusters[:n] {
		desc := c.Description
		if desc == "" {
			desc = "(no text)"
		}
		parts[i] = fmt.Sprintf("- #%d (%d docs) %s", c.Rank, c.Size, desc)
	}
	if len(clusters) > n {
		parts = append(parts, fmt.Sprintf("... and %d more", len(clusters)-n))
	}
	return strings.Join(parts, "\n")
}

// footer identifies the run in a message.
func footer(s Summary) string {
	parts := []string{"neardup"}
	if s.Strategy != "" {
		parts = append(parts, s.Strategy)
	}
	if s.RunID != "" {
		parts = append(parts, "run "+s.RunID)
	}
	if s.Duration > 0 {
		parts = append(parts, s.Duration.Round(time.Millisecond).String())
	}
	return strings.Join(parts, " - ")
}

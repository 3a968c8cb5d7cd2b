package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jacklau/neardup/internal/dedup"
	"github.com/jacklau/neardup/internal/label"
	"github.com/jacklau/neardup/internal/notify"
	"github.com/jacklau/neardup/internal/store"
)

// labelSamples is how many member texts are shown to the labeler.
const labelSamples = 10

// corpusTexts returns a slice indexed by document holding the texts of every
// clustered document; unclustered documents are left empty.
func corpusTexts(s store.Store, corpusID int64, n int, p dedup.Partition) ([]string, error) {
	var indices []int
	for _, c := range p {
		indices = append(indices, c.Members...)
	}
	texts, err := s.GetTexts(corpusID, indices)
	if err != nil {
		return nil, fmt.Errorf("loading member texts: %w", err)
	}

	out := make([]string, n)
	for i, idx := range indices {
		if idx < n {
			out[idx] = texts[i]
		}
	}
	return out, nil
}

// labelPartition asks labeler for one label per cluster, feeding it the
// centroid text first. texts is indexed by document.
func labelPartition(ctx context.Context, labeler *label.Labeler, p dedup.Partition, texts []string) ([]string, error) {
	labels := make([]string, len(p))
	for i, c := range p {
		members := c.Members
		if len(members) > labelSamples {
			members = members[:labelSamples]
		}
		samples := make([]string, 0, len(members))
		for _, m := range members {
			if m < len(texts) {
				samples = append(samples, texts[m])
			}
		}

		l, err := labeler.Label(ctx, samples)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// No usable text to label from.
			continue
		}
		labels[i] = l
	}
	return labels, nil
}

// snippet squeezes whitespace and shortens s for one-line display.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// runSummary describes a finished run for notification. A cluster is
// described by its label, else by its centroid text.
func runSummary(corpusName, runID string, strategy dedup.Strategy, elapsed time.Duration, p dedup.Partition, texts, labels []string, total int) notify.Summary {
	s := notify.Summary{
		Corpus:    corpusName,
		RunID:     runID,
		Strategy:  string(strategy),
		Documents: total,
		Clustered: p.Documents(),
		Duration:  elapsed,
		Clusters:  make([]notify.ClusterLine, len(p)),
	}
	for i, c := range p {
		desc := ""
		switch {
		case i < len(labels) && labels[i] != "":
			desc = labels[i]
		case c.Centroid < len(texts):
			desc = snippet(texts[c.Centroid], 80)
		}
		s.Clusters[i] = notify.ClusterLine{Rank: i, Size: c.Len(), Description: desc}
	}
	return s
}

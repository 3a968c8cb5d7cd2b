package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jacklau/neardup/internal/dedup"
)

// maxLineBytes bounds a single document line.
const maxLineBytes = 4 << 20

// ReadLines loads a text corpus with one document per line. Surrounding
// whitespace is trimmed and blank lines are skipped.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return lines, nil
}

// ReadVectors loads embeddings stored as a JSON array of arrays.
func ReadVectors(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vectors: %w", err)
	}
	var vecs [][]float32
	if err := json.Unmarshal(data, &vecs); err != nil {
		return nil, fmt.Errorf("parsing vectors %s: %w", path, err)
	}
	return vecs, nil
}

// WriteVectors stores embeddings as a JSON array of arrays.
func WriteVectors(path string, vecs [][]float32) error {
	return writeJSON(path, vecs)
}

// ClusterReport is the file form of one cluster.
type ClusterReport struct {
	Rank     int      `json:"rank"`
	Centroid int      `json:"centroid"`
	Size     int      `json:"size"`
	Label    string   `json:"label,omitempty"`
	Members  []int    `json:"members"`
	Texts    []string `json:"texts,omitempty"`
}

// Reports converts a partition into ClusterReports. When texts is non-nil
// every member's text is included; labels may be nil or shorter than p.
func Reports(p dedup.Partition, texts []string, labels []string) []ClusterReport {
	out := make([]ClusterReport, len(p))
	for i, c := range p {
		r := ClusterReport{
			Rank:     i,
			Centroid: c.Centroid,
			Size:     c.Len(),
			Members:  c.Members,
		}
		if i < len(labels) {
			r.Label = labels[i]
		}
		if texts != nil {
			r.Texts = make([]string, len(c.Members))
			for j, m := range c.Members {
				if m < len(texts) {
					r.Texts[j] = texts[m]
				}
			}
		}
		out[i] = r
	}
	return out
}

// WriteClusters stores cluster reports as indented JSON.
func WriteClusters(path string, reports []ClusterReport) error {
	return writeJSON(path, reports)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

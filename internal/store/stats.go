package store

import "fmt"

// CorpusStats holds aggregate statistics for a single corpus.
type CorpusStats struct {
	Corpus        Corpus
	DocumentCount int
	RunCount      int
	LastRun       *Run
}

// GetCorpusStats returns aggregate statistics for a single corpus.
func (d *DB) GetCorpusStats(corpusID int64) (*CorpusStats, error) {
	corpus, err := d.GetCorpus(corpusID)
	if err != nil {
		return nil, fmt.Errorf("getting corpus: %w", err)
	}

	stats := &CorpusStats{Corpus: *corpus}

	err = d.db.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE corpus_id = ?`, corpusID,
	).Scan(&stats.DocumentCount)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	runs, err := d.ListRuns(corpusID)
	if err != nil {
		return nil, err
	}
	stats.RunCount = len(runs)
	if len(runs) > 0 {
		stats.LastRun = &runs[0]
	}

	return stats, nil
}

// GetAllCorpusStats returns statistics for every corpus.
func (d *DB) GetAllCorpusStats() ([]CorpusStats, error) {
	corpora, err := d.ListCorpora()
	if err != nil {
		return nil, fmt.Errorf("listing corpora: %w", err)
	}

	var results []CorpusStats
	for _, c := range corpora {
		stats, err := d.GetCorpusStats(c.ID)
		if err != nil {
			return nil, fmt.Errorf("getting stats for %s: %w", c.Name, err)
		}
		results = append(results, *stats)
	}

	return results, nil
}

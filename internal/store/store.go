package store

import "github.com/jacklau/neardup/internal/dedup"

// Store defines the storage operations used by the CLI commands.
// It is satisfied by *DB and can be replaced with a mock for testing.
type Store interface {
	// GetCorpusByName retrieves a corpus by name.
	GetCorpusByName(name string) (*Corpus, error)

	// ReplaceCorpus atomically stores docs under name, dropping any older
	// corpus of that name.
	ReplaceCorpus(name, source, model string, docs []Document) (*Corpus, error)

	// GetEmbeddings returns a corpus's embeddings in index order.
	GetEmbeddings(corpusID int64) ([][]float32, error)

	// GetTexts returns the texts of the given documents.
	GetTexts(corpusID int64, indices []int) ([]string, error)

	// SaveRun atomically records a clustering run with its clusters and labels.
	SaveRun(run *Run, p dedup.Partition, labels []string) error
}

// Compile-time check that *DB satisfies the Store interface.
var _ Store = (*DB)(nil)

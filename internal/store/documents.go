package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jacklau/neardup/internal/dedup"
)

// Document is one text of a corpus with its embedding. Index is the
// document's position in the corpus and the index clustering refers to.
type Document struct {
	Index     int
	Text      string
	Embedding []float32
}

// InsertDocuments stores docs for a corpus in a single transaction.
func (d *DB) InsertDocuments(corpusID int64, docs []Document) error {
	return d.withTx(func(tx *sql.Tx) error {
		return insertDocuments(tx, corpusID, docs)
	})
}

func insertDocuments(tx *sql.Tx, corpusID int64, docs []Document) error {
	stmt, err := tx.Prepare(`INSERT INTO documents (corpus_id, idx, text, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.Exec(corpusID, doc.Index, doc.Text, dedup.EncodeEmbedding(doc.Embedding)); err != nil {
			return fmt.Errorf("inserting document %d: %w", doc.Index, err)
		}
	}
	return nil
}

// GetDocuments returns every document of a corpus in index order.
func (d *DB) GetDocuments(corpusID int64) ([]Document, error) {
	rows, err := d.db.Query(
		`SELECT idx, text, embedding FROM documents WHERE corpus_id = ? ORDER BY idx`,
		corpusID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var blob []byte
		if err := rows.Scan(&doc.Index, &doc.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Embedding, err = dedup.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding document %d: %w", doc.Index, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetTexts returns the texts of the given document indices, in the order
// asked for. Unknown indices yield an empty string.
func (d *DB) GetTexts(corpusID int64, indices []int) ([]string, error) {
	out := make([]string, len(indices))
	stmt, err := d.db.Prepare(`SELECT text FROM documents WHERE corpus_id = ? AND idx = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing text lookup: %w", err)
	}
	defer stmt.Close()

	for i, idx := range indices {
		err := stmt.QueryRow(corpusID, idx).Scan(&out[i])
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reading document %d: %w", idx, err)
		}
	}
	return out, nil
}

// GetEmbeddings returns the embeddings of a corpus in index order.
func (d *DB) GetEmbeddings(corpusID int64) ([][]float32, error) {
	rows, err := d.db.Query(
		`SELECT idx, embedding FROM documents WHERE corpus_id = ? ORDER BY idx`,
		corpusID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var out [][]float32
	for rows.Next() {
		var idx int
		var blob []byte
		if err := rows.Scan(&idx, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		vec, err := dedup.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding document %d: %w", idx, err)
		}
		out = append(out, vec)
	}
	return out, rows.Err()
}

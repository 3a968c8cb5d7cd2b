package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Corpus is a named, embedded document collection.
type Corpus struct {
	ID        int64
	Name      string
	Source    string
	Model     string
	Dim       int
	CreatedAt time.Time
}

// CreateCorpus inserts a new corpus record.
func (d *DB) CreateCorpus(name, source, model string, dim int) (*Corpus, error) {
	var id int64
	err := d.withTx(func(tx *sql.Tx) error {
		var err error
		id, err = insertCorpus(tx, name, source, model, dim)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d.GetCorpus(id)
}

// ReplaceCorpus stores docs as the corpus called name, removing any
// existing corpus of that name together with its runs. Either the whole
// replacement happens or nothing changes.
func (d *DB) ReplaceCorpus(name, source, model string, docs []Document) (*Corpus, error) {
	dim := 0
	if len(docs) > 0 {
		dim = len(docs[0].Embedding)
	}

	var id int64
	err := d.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM corpora WHERE name = ?`, name); err != nil {
			return fmt.Errorf("deleting corpus %q: %w", name, err)
		}
		var err error
		if id, err = insertCorpus(tx, name, source, model, dim); err != nil {
			return err
		}
		return insertDocuments(tx, id, docs)
	})
	if err != nil {
		return nil, err
	}
	return d.GetCorpus(id)
}

func insertCorpus(tx *sql.Tx, name, source, model string, dim int) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO corpora (name, source, model, dim, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, source, nullStr(model), dim, formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("creating corpus: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting corpus id: %w", err)
	}
	return id, nil
}

// GetCorpus retrieves a corpus by its ID.
func (d *DB) GetCorpus(id int64) (*Corpus, error) {
	row := d.db.QueryRow(
		`SELECT id, name, source, model, dim, created_at FROM corpora WHERE id = ?`,
		id,
	)
	return scanCorpus(row)
}

// GetCorpusByName retrieves a corpus by name.
func (d *DB) GetCorpusByName(name string) (*Corpus, error) {
	row := d.db.QueryRow(
		`SELECT id, name, source, model, dim, created_at FROM corpora WHERE name = ?`,
		name,
	)
	return scanCorpus(row)
}

// ListCorpora returns all corpora ordered by name.
func (d *DB) ListCorpora() ([]Corpus, error) {
	rows, err := d.db.Query(
		`SELECT id, name, source, model, dim, created_at FROM corpora ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing corpora: %w", err)
	}
	defer rows.Close()

	var corpora []Corpus
	for rows.Next() {
		c, err := scanCorpus(rows)
		if err != nil {
			return nil, err
		}
		corpora = append(corpora, *c)
	}
	return corpora, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCorpus(row scanner) (*Corpus, error) {
	var c Corpus
	var model sql.NullString
	var createdAt string

	if err := row.Scan(&c.ID, &c.Name, &c.Source, &model, &c.Dim, &createdAt); err != nil {
		return nil, notFound(err, "corpus")
	}
	c.Model = model.String
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

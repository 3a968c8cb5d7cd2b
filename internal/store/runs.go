package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jacklau/neardup/internal/dedup"
)

// Run records one clustering pass over a corpus and the parameters it used.
type Run struct {
	ID             string
	CorpusID       int64
	Strategy       string
	MinSimilarity  float64
	MinClusterSize int
	ChunkSize      int
	ClusterCount   int
	ClusteredDocs  int
	Duration       time.Duration
	CreatedAt      time.Time
}

// StoredCluster is a cluster as persisted for a run. Rank is its position
// in the run's partition, largest first.
type StoredCluster struct {
	ID       int64
	Rank     int
	Centroid int
	Label    string
	Members  []int
}

// SaveRun stores a run together with its partition in one transaction.
// When run.ID is empty a new UUID is assigned. Cluster ranks follow
// partition order and member positions follow member order; labels[i],
// when present and non-empty, is stored for cluster i. run's totals are
// filled in from p.
func (d *DB) SaveRun(run *Run, p dedup.Partition, labels []string) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.ClusterCount = len(p)
	run.ClusteredDocs = p.Documents()

	return d.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO runs (id, corpus_id, strategy, min_similarity, min_cluster_size, chunk_size,
			                  cluster_count, clustered_docs, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.CorpusID, run.Strategy, run.MinSimilarity, run.MinClusterSize, run.ChunkSize,
			run.ClusterCount, run.ClusteredDocs, run.Duration.Milliseconds(), formatTime(run.CreatedAt),
		); err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		return insertClusters(tx, run.ID, p, labels)
	})
}

func insertClusters(tx *sql.Tx, runID string, p dedup.Partition, labels []string) error {
	member, err := tx.Prepare(`INSERT INTO cluster_members (cluster_id, doc_idx, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing member insert: %w", err)
	}
	defer member.Close()

	for rank, c := range p {
		label := ""
		if rank < len(labels) {
			label = labels[rank]
		}
		result, err := tx.Exec(
			`INSERT INTO clusters (run_id, rank, centroid, label) VALUES (?, ?, ?, ?)`,
			runID, rank, c.Centroid, nullStr(label),
		)
		if err != nil {
			return fmt.Errorf("inserting cluster %d: %w", rank, err)
		}
		clusterID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting cluster id: %w", err)
		}
		for pos, doc := range c.Members {
			if _, err := member.Exec(clusterID, doc, pos); err != nil {
				return fmt.Errorf("inserting member %d of cluster %d: %w", doc, rank, err)
			}
		}
	}
	return nil
}

const runColumns = `id, corpus_id, strategy, min_similarity, min_cluster_size, chunk_size,
	cluster_count, clustered_docs, duration_ms, created_at`

// likeEscaper escapes the LIKE wildcards in a literal prefix.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GetRun retrieves a run by its ID or by a unique prefix of it. The prefix
// is matched literally.
func (d *DB) GetRun(idOrPrefix string) (*Run, error) {
	if idOrPrefix == "" {
		return nil, fmt.Errorf("run ID must not be empty")
	}

	rows, err := d.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		idOrPrefix, likeEscaper.Replace(idOrPrefix)+"%", idOrPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("run %q: %w", idOrPrefix, ErrNotFound)
	case runs[0].ID == idOrPrefix || len(runs) == 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("run %q: %w", idOrPrefix, ErrAmbiguous)
	}
}

// ListRuns returns the runs of a corpus, newest first.
func (d *DB) ListRuns(corpusID int64) ([]Run, error) {
	rows, err := d.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE corpus_id = ? ORDER BY created_at DESC`,
		corpusID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunClusters returns a run's clusters in rank order with their members
// in stored order.
func (d *DB) GetRunClusters(runID string) ([]StoredCluster, error) {
	rows, err := d.db.Query(`
		SELECT c.id, c.rank, c.centroid, c.label, m.doc_idx
		FROM clusters c
		JOIN cluster_members m ON m.cluster_id = c.id
		WHERE c.run_id = ?
		ORDER BY c.rank, m.position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying clusters: %w", err)
	}
	defer rows.Close()

	var clusters []StoredCluster
	for rows.Next() {
		var (
			id       int64
			rank     int
			centroid int
			label    sql.NullString
			doc      int
		)
		if err := rows.Scan(&id, &rank, &centroid, &label, &doc); err != nil {
			return nil, fmt.Errorf("scanning cluster member: %w", err)
		}
		if n := len(clusters); n == 0 || clusters[n-1].ID != id {
			clusters = append(clusters, StoredCluster{ID: id, Rank: rank, Centroid: centroid, Label: label.String})
		}
		last := &clusters[len(clusters)-1]
		last.Members = append(last.Members, doc)
	}
	return clusters, rows.Err()
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var durationMS int64
	var createdAt string

	err := row.Scan(
		&r.ID, &r.CorpusID, &r.Strategy, &r.MinSimilarity, &r.MinClusterSize, &r.ChunkSize,
		&r.ClusterCount, &r.ClusteredDocs, &durationMS, &createdAt,
	)
	if err != nil {
		return nil, notFound(err, "run")
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

package store

import (
	"errors"
	"testing"
	"time"

	"github.com/jacklau/neardup/internal/dedup"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestCorpus(t *testing.T, db *DB, name string, n int) *Corpus {
	t.Helper()
	c, err := db.CreateCorpus(name, "text:"+name+".txt", "nomic-embed-text", 3)
	if err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{
			Index:     i,
			Text:      string(rune('a' + i)),
			Embedding: []float32{float32(i), 0.5, -1},
		}
	}
	if err := db.InsertDocuments(c.ID, docs); err != nil {
		t.Fatalf("InsertDocuments failed: %v", err)
	}
	return c
}

func TestMigration(t *testing.T) {
	db := setupTestDB(t)

	var version int
	err := db.Conn().QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		t.Fatalf("failed to read user_version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected user_version 1, got %d", version)
	}
}

func TestCorporaCRUD(t *testing.T) {
	db := setupTestDB(t)

	c, err := db.CreateCorpus("tweets", "text:tweets.txt", "", 768)
	if err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	if c.ID == 0 {
		t.Error("expected non-zero corpus ID")
	}
	if c.Name != "tweets" || c.Dim != 768 || c.Model != "" {
		t.Errorf("unexpected corpus: %+v", c)
	}
	if c.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	got, err := db.GetCorpusByName("tweets")
	if err != nil {
		t.Fatalf("GetCorpusByName failed: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("expected ID %d, got %d", c.ID, got.ID)
	}

	if _, err := db.CreateCorpus("issues", "github:o/r", "text-embedding-3-small", 1536); err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	all, err := db.ListCorpora()
	if err != nil {
		t.Fatalf("ListCorpora failed: %v", err)
	}
	if len(all) != 2 || all[0].Name != "issues" || all[1].Name != "tweets" {
		t.Errorf("expected corpora sorted by name, got %+v", all)
	}
}

func TestCorpusDuplicateName(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.CreateCorpus("dup", "text:a", "", 3); err != nil {
		t.Fatalf("first CreateCorpus failed: %v", err)
	}
	if _, err := db.CreateCorpus("dup", "text:b", "", 3); err == nil {
		t.Error("expected error creating duplicate corpus")
	}
}

func TestCorpusNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetCorpusByName("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	c := createTestCorpus(t, db, "docs", 4)

	docs, err := db.GetDocuments(c.ID)
	if err != nil {
		t.Fatalf("GetDocuments failed: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs))
	}
	for i, doc := range docs {
		if doc.Index != i {
			t.Errorf("document %d has index %d", i, doc.Index)
		}
		if doc.Embedding[0] != float32(i) || len(doc.Embedding) != 3 {
			t.Errorf("document %d embedding mismatch: %v", i, doc.Embedding)
		}
	}

	vecs, err := db.GetEmbeddings(c.ID)
	if err != nil {
		t.Fatalf("GetEmbeddings failed: %v", err)
	}
	if len(vecs) != 4 || vecs[3][0] != 3 {
		t.Errorf("unexpected embeddings: %v", vecs)
	}

	texts, err := db.GetTexts(c.ID, []int{2, 0, 99})
	if err != nil {
		t.Fatalf("GetTexts failed: %v", err)
	}
	if texts[0] != "c" || texts[1] != "a" || texts[2] != "" {
		t.Errorf("unexpected texts: %q", texts)
	}
}

func TestInsertDocumentsIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	c := createTestCorpus(t, db, "atomic", 2)

	// Index 1 already exists, so the whole batch must be rejected.
	err := db.InsertDocuments(c.ID, []Document{
		{Index: 2, Text: "new", Embedding: []float32{1, 2, 3}},
		{Index: 1, Text: "clash", Embedding: []float32{1, 2, 3}},
	})
	if err == nil {
		t.Fatal("expected error inserting duplicate index")
	}

	docs, err := db.GetDocuments(c.ID)
	if err != nil {
		t.Fatalf("GetDocuments failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents after rollback, got %d", len(docs))
	}
}

func TestRunsAndClusters(t *testing.T) {
	db := setupTestDB(t)
	c := createTestCorpus(t, db, "runs", 6)

	run := &Run{
		CorpusID:       c.ID,
		Strategy:       "batched",
		MinSimilarity:  0.7,
		MinClusterSize: 1,
		ChunkSize:      1000,
		Duration:       1500 * time.Millisecond,
	}
	p := dedup.Partition{
		{Centroid: 3, Members: []int{3, 1, 5}},
		{Centroid: 0, Members: []int{0, 2}},
	}
	if err := db.SaveRun(run, p, []string{"", "greetings"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if len(run.ID) != 36 {
		t.Fatalf("expected a UUID run ID, got %q", run.ID)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.ClusterCount != 2 || got.ClusteredDocs != 5 {
		t.Errorf("expected totals 2/5, got %d/%d", got.ClusterCount, got.ClusteredDocs)
	}
	if got.Duration != 1500*time.Millisecond || got.Strategy != "batched" || got.MinSimilarity != 0.7 {
		t.Errorf("unexpected run: %+v", got)
	}

	byPrefix, err := db.GetRun(run.ID[:8])
	if err != nil {
		t.Fatalf("GetRun by prefix failed: %v", err)
	}
	if byPrefix.ID != run.ID {
		t.Errorf("expected %s, got %s", run.ID, byPrefix.ID)
	}

	clusters, err := db.GetRunClusters(run.ID)
	if err != nil {
		t.Fatalf("GetRunClusters failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].Rank != 0 || clusters[0].Centroid != 3 {
		t.Errorf("unexpected first cluster: %+v", clusters[0])
	}
	want := []int{3, 1, 5}
	for i, m := range clusters[0].Members {
		if m != want[i] {
			t.Errorf("member order not preserved: %v", clusters[0].Members)
			break
		}
	}
	if clusters[0].Label != "" || clusters[1].Label != "greetings" {
		t.Errorf("labels = %q, %q", clusters[0].Label, clusters[1].Label)
	}
}

func saveEmptyRun(t *testing.T, db *DB, run *Run) {
	t.Helper()
	if err := db.SaveRun(run, nil, nil); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
}

func TestSaveRunIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	c := createTestCorpus(t, db, "atomic-run", 4)

	// Fail the member insert for document 3, after the run row and the first
	// cluster have already been written inside the transaction.
	if _, err := db.Conn().Exec(`CREATE TRIGGER reject_doc BEFORE INSERT ON cluster_members
		WHEN NEW.doc_idx = 3 BEGIN SELECT RAISE(ABORT, 'rejected'); END`); err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	run := &Run{CorpusID: c.ID, Strategy: "whole", MinSimilarity: 0.7, MinClusterSize: 1, ChunkSize: 10}
	p := dedup.Partition{
		{Centroid: 0, Members: []int{0, 1}},
		{Centroid: 2, Members: []int{2, 3}},
	}
	if err := db.SaveRun(run, p, nil); err == nil {
		t.Fatal("expected SaveRun to fail")
	}

	for _, table := range []string{"runs", "clusters", "cluster_members"} {
		var n int
		if err := db.Conn().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("expected %s to be empty after rollback, got %d rows", table, n)
		}
	}
}

func TestGetRunMissingAndAmbiguous(t *testing.T) {
	db := setupTestDB(t)
	c := createTestCorpus(t, db, "prefix", 1)

	if _, err := db.GetRun("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	for _, id := range []string{"abc-1", "abc-2"} {
		saveEmptyRun(t, db, &Run{ID: id, CorpusID: c.ID, Strategy: "whole", MinSimilarity: 0.7, MinClusterSize: 5, ChunkSize: 10})
	}
	if _, err := db.GetRun("abc"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
	if r, err := db.GetRun("abc-2"); err != nil || r.ID != "abc-2" {
		t.Errorf("expected exact match abc-2, got %v, %v", r, err)
	}
}

func TestGetRunPrefixIsLiteral(t *testing.T) {
	db := setupTestDB(t)
	c := createTestCorpus(t, db, "literal", 1)
	saveEmptyRun(t, db, &Run{ID: "abc-1", CorpusID: c.ID, Strategy: "whole", MinSimilarity: 0.7, MinClusterSize: 5, ChunkSize: 10})

	for _, ref := range []string{"%", "_bc", "a%", "ab_"} {
		if _, err := db.GetRun(ref); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRun(%q): expected ErrNotFound, got %v", ref, err)
		}
	}
	if _, err := db.GetRun(""); err == nil {
		t.Error("expected error for empty run ID")
	}
	if r, err := db.GetRun("abc"); err != nil || r.ID != "abc-1" {
		t.Errorf("expected prefix match abc-1, got %v, %v", r, err)
	}
}

func TestReplaceCorpus(t *testing.T) {
	db := setupTestDB(t)
	old := createTestCorpus(t, db, "issues", 3)

	run := &Run{CorpusID: old.ID, Strategy: "whole", MinSimilarity: 0.7, MinClusterSize: 1, ChunkSize: 10}
	if err := db.SaveRun(run, dedup.Partition{{Centroid: 0, Members: []int{0, 1}}}, nil); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	c, err := db.ReplaceCorpus("issues", "github:o/r", "model", []Document{
		{Index: 0, Text: "fresh", Embedding: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("ReplaceCorpus failed: %v", err)
	}
	if c.ID == old.ID || c.Dim != 2 || c.Source != "github:o/r" {
		t.Errorf("unexpected corpus: %+v", c)
	}

	counts := map[string]int{"corpora": 1, "documents": 1, "runs": 0, "clusters": 0, "cluster_members": 0}
	for table, want := range counts {
		var n int
		if err := db.Conn().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != want {
			t.Errorf("expected %d rows in %s, got %d", want, table, n)
		}
	}
}

func TestReplaceCorpusIsAtomic(t *testing.T) {
	db := setupTestDB(t)
	old := createTestCorpus(t, db, "keep", 2)

	// Duplicate index: the insert fails after the old corpus was deleted
	// inside the transaction.
	_, err := db.ReplaceCorpus("keep", "text:new.txt", "", []Document{
		{Index: 0, Text: "x", Embedding: []float32{1, 2, 3}},
		{Index: 0, Text: "y", Embedding: []float32{1, 2, 3}},
	})
	if err == nil {
		t.Fatal("expected ReplaceCorpus to fail")
	}

	got, err := db.GetCorpusByName("keep")
	if err != nil {
		t.Fatalf("old corpus lost: %v", err)
	}
	if got.ID != old.ID {
		t.Errorf("expected corpus %d to survive, got %d", old.ID, got.ID)
	}
	docs, err := db.GetDocuments(old.ID)
	if err != nil {
		t.Fatalf("GetDocuments failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents after rollback, got %d", len(docs))
	}
}

package sqlite

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ecowise/idftab/internal/apperr"
	"github.com/ecowise/idftab/internal/jobstore"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "idftab-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGet(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := jobstore.Record{
		ID:          "job-1",
		Kind:        jobstore.KindConvert,
		Name:        "model.idf",
		Version:     "9.4",
		Objects:     12,
		Rows:        230,
		Status:      jobstore.StatusCompleted,
		Warning:     "no schema for version 9.5, using closest available 9.4",
		ArtifactKey: "job-1/model.zip",
		Checksum:    "abc123",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != rec.Kind || got.Rows != rec.Rows || got.Warning != rec.Warning || got.ArtifactKey != rec.ArtifactKey {
		t.Fatalf("record mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	store := testStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"a", "b", "c"} {
		err := store.Put(ctx, jobstore.Record{
			ID:        id,
			Kind:      jobstore.KindUpdate,
			Status:    jobstore.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, total, err := store.List(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(recs) != 2 || recs[0].ID != "c" || recs[1].ID != "b" {
		t.Fatalf("unexpected page: %+v", recs)
	}
}

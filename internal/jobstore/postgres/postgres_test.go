package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ecowise/idftab/internal/apperr"
	"github.com/ecowise/idftab/internal/jobstore"
)

// Integration test; runs only when IDFTAB_TEST_POSTGRES_DSN points at a
// disposable database.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("IDFTAB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IDFTAB_TEST_POSTGRES_DSN not set")
	}
	store, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_, _ = store.conn.Exec(`DELETE FROM jobs`)
		store.Close()
	})
	return store
}

func TestPutGetList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"pg-a", "pg-b"} {
		err := store.Put(ctx, jobstore.Record{
			ID:        id,
			Kind:      jobstore.KindConvert,
			Name:      "model.idf",
			Status:    jobstore.StatusCompleted,
			Rows:      10 + i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Get(ctx, "pg-b")
	if err != nil {
		t.Fatal(err)
	}
	if got.Rows != 11 {
		t.Fatalf("rows = %d, want 11", got.Rows)
	}

	recs, total, err := store.List(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(recs) != 2 || recs[0].ID != "pg-b" {
		t.Fatalf("list = %+v (total %d)", recs, total)
	}

	if _, err := store.Get(ctx, "absent"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

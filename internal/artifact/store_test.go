package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ecowise/idftab/internal/apperr"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			payload := "ObjectType,ObjectName\nZone,Main\n"
			info, err := store.Put(ctx, "job-1/rows.csv", strings.NewReader(payload), PutOptions{
				ContentType: "text/csv",
				Metadata:    map[string]string{"source": "model.idf"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Size != int64(len(payload)) {
				t.Fatalf("size = %d, want %d", info.Size, len(payload))
			}

			got, rc, err := store.Get(ctx, "job-1/rows.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != payload {
				t.Fatalf("payload mismatch: %q", data)
			}
			if got.ContentType != "text/csv" {
				t.Fatalf("content type = %q", got.ContentType)
			}
			if got.Metadata["source"] != "model.idf" {
				t.Fatalf("metadata = %v", got.Metadata)
			}
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Head(ctx, "missing/key"); !errors.Is(err, apperr.ErrNotFound) {
				t.Fatalf("head error = %v, want ErrNotFound", err)
			}
			if _, _, err := store.Get(ctx, "missing/key"); !errors.Is(err, apperr.ErrNotFound) {
				t.Fatalf("get error = %v, want ErrNotFound", err)
			}
			if err := store.Delete(ctx, "missing/key"); !errors.Is(err, apperr.ErrNotFound) {
				t.Fatalf("delete error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"job-1/rows.csv", "job-1/model.idf", "job-2/rows.csv"} {
				if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
					t.Fatal(err)
				}
			}
			infos, err := store.List(ctx, "job-1/")
			if err != nil {
				t.Fatal(err)
			}
			if len(infos) != 2 {
				t.Fatalf("list returned %d entries, want 2", len(infos))
			}
			if infos[0].Key != "job-1/model.idf" || infos[1].Key != "job-1/rows.csv" {
				t.Fatalf("keys = %v", []string{infos[0].Key, infos[1].Key})
			}
		})
	}
}

func TestStorePresignUnsupported(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.PresignURL(ctx, "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
				t.Fatalf("presign error = %v, want ErrUnsupported", err)
			}
		})
	}
}

func TestFSRejectsTraversal(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Put(context.Background(), "../escape.txt", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

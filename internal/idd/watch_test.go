package idd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const watchSchema = `Zone,
  Name,
  Direction of Relative North [deg];
`

func watchTestEnv(t *testing.T) (string, *Catalog) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "V9-4-0-Energy+.idd"), []byte(watchSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	sources, err := ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	versions, _, err := Load(sources)
	if err != nil {
		t.Fatal(err)
	}
	return dir, NewCatalog(versions)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_NewSchemaLoaded(t *testing.T) {
	dir, catalog := watchTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var gotTags []string

	go Watch(ctx, catalog, dir, logger, func(tags []string) {
		mu.Lock()
		gotTags = append([]string(nil), tags...)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "V22-1-0-Energy+.idd"), []byte(watchSchema), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := catalog.Version("22.1")
		return ok
	}, "new schema version not loaded by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gotTags) == 2
	}, "expected reload callback with both versions")
}

func TestWatch_RemoveSwapsCatalog(t *testing.T) {
	dir, catalog := watchTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = os.WriteFile(filepath.Join(dir, "V22-1-0-Energy+.idd"), []byte(watchSchema), 0o644)
	sources, _ := ReadDir(dir)
	versions, _, err := Load(sources)
	if err != nil {
		t.Fatal(err)
	}
	catalog.Replace(versions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, catalog, dir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "V22-1-0-Energy+.idd"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := catalog.Version("22.1")
		return !ok
	}, "removed schema version still in catalog")
}

func TestWatch_BadSourceKeepsPrevious(t *testing.T) {
	dir, catalog := watchTestEnv(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, catalog, dir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	// Overwrite the only schema with garbage: the reload yields zero usable
	// sources and must keep the previous catalog.
	_ = os.WriteFile(filepath.Join(dir, "V9-4-0-Energy+.idd"), []byte("Zone, Name"), 0o644)

	time.Sleep(600 * time.Millisecond)

	if _, ok := catalog.Version("9.4"); !ok {
		t.Error("catalog lost its last good version after a failed reload")
	}
}

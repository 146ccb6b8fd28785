// Package testutil provides shared test helpers for building schema
// catalogs and temporary job stores.
package testutil

import (
	"os"
	"testing"

	"github.com/ecowise/idftab/internal/idd"
	"github.com/ecowise/idftab/internal/jobstore"
	"github.com/ecowise/idftab/internal/jobstore/sqlite"
)

// SampleIDD is a minimal schema source covering the object types the
// fixtures use.
const SampleIDD = `Version,
  Version Identifier;

Material,
  Name,
  Roughness,
  Thickness [m],
  Conductivity [W/m-K];

Zone,
  Name,
  Direction of Relative North [deg];
`

// TestCatalog builds a catalog with the sample schema at version 9.4.
func TestCatalog(t *testing.T) *idd.Catalog {
	t.Helper()
	versions, bad, err := idd.Load([]idd.Source{{Tag: "9.4", Text: SampleIDD}})
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) != 0 {
		t.Fatalf("sample schema rejected: %v", bad[0])
	}
	return idd.NewCatalog(versions)
}

// TestJobStore creates a temporary SQLite job store that is automatically
// cleaned up.
func TestJobStore(t *testing.T) jobstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "idftab-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := sqlite.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

package idd

import (
	"sort"
	"sync/atomic"
)

// Catalog holds the process-wide schema version map. The map is immutable;
// hot-reload replaces the whole map atomically, so concurrent lookups never
// observe a partially-built state and no locks are needed.
type Catalog struct {
	versions atomic.Pointer[map[string]*SchemaVersion]
}

// NewCatalog creates a catalog over an already-loaded version map.
func NewCatalog(versions map[string]*SchemaVersion) *Catalog {
	c := &Catalog{}
	c.versions.Store(&versions)
	return c
}

// Replace swaps in a new version map wholesale.
func (c *Catalog) Replace(versions map[string]*SchemaVersion) {
	c.versions.Store(&versions)
}

// Version returns the schema for a normalized tag.
func (c *Catalog) Version(tag string) (*SchemaVersion, bool) {
	v, ok := (*c.versions.Load())[tag]
	return v, ok
}

// Tags returns every available version tag, oldest first.
func (c *Catalog) Tags() []string {
	m := *c.versions.Load()
	tags := make([]string, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		mi, ni, _ := parseTag(tags[i])
		mj, nj, _ := parseTag(tags[j])
		if mi != mj {
			return mi < mj
		}
		if ni != nj {
			return ni < nj
		}
		return tags[i] < tags[j]
	})
	return tags
}

// Len returns the number of loaded versions.
func (c *Catalog) Len() int {
	return len(*c.versions.Load())
}

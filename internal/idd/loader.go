package idd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Source is one schema text buffer tagged with its version.
type Source struct {
	Tag  string
	Text string
}

// ErrNoSchemas is returned when loading yields zero usable schema versions.
var ErrNoSchemas = errors.New("idd: no usable schema sources")

// Load eagerly parses every source. A malformed source is reported as a
// *SourceError in the second return value and skipped; the remaining sources
// are still loaded. Only an empty result set is fatal. Tags are normalized
// to major.minor; a later source with the same normalized tag is rejected
// as a duplicate.
func Load(sources []Source) (map[string]*SchemaVersion, []*SourceError, error) {
	versions := make(map[string]*SchemaVersion, len(sources))
	var bad []*SourceError

	for _, src := range sources {
		tag := NormalizeTag(src.Tag)
		if _, dup := versions[tag]; dup {
			bad = append(bad, &SourceError{Tag: src.Tag, Line: 1, Reason: fmt.Sprintf("version %s already loaded", tag)})
			continue
		}
		v, err := Parse(tag, src.Text)
		if err != nil {
			var se *SourceError
			if errors.As(err, &se) {
				bad = append(bad, se)
				continue
			}
			return nil, bad, err
		}
		versions[tag] = v
	}

	if len(versions) == 0 {
		return nil, bad, ErrNoSchemas
	}
	return versions, bad, nil
}

// iddFileRe matches bundled schema file names like "V22-1-0-Energy+.idd",
// capturing the version digits.
var iddFileRe = regexp.MustCompile(`(?i)^V(\d+)-(\d+)(?:-(\d+))?-Energy\+\.idd$`)

// ReadDir collects schema sources from every .idd file in dir. The version
// tag comes from the file name: the bundled "V22-1-0-Energy+.idd" convention
// when it matches, otherwise the file name stem.
func ReadDir(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("idd: read schema dir: %w", err)
	}
	var sources []Source
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".idd") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("idd: read schema file %s: %w", e.Name(), err)
		}
		sources = append(sources, Source{Tag: tagFromFileName(e.Name()), Text: string(data)})
	}
	return sources, nil
}

func tagFromFileName(name string) string {
	if m := iddFileRe.FindStringSubmatch(name); m != nil {
		if m[3] != "" {
			return fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3])
		}
		return fmt.Sprintf("%s.%s", m[1], m[2])
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

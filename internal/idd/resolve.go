package idd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrVersionUndetermined is returned when a document declares no usable
// version. The resolver never guesses silently; the caller decides whether
// to prompt for a manual choice.
var ErrVersionUndetermined = errors.New("idd: document version undetermined")

// MismatchWarning reports that no exact schema match existed and a closest
// compatible version was chosen instead. Non-fatal, but must be surfaced.
type MismatchWarning struct {
	Declared string
	Chosen   string
	Distance int
}

func (w *MismatchWarning) String() string {
	return fmt.Sprintf("no schema for version %s, using closest available %s", w.Declared, w.Chosen)
}

// NormalizeTag strips patch-level noise beyond major.minor: "9.4.0" -> "9.4".
// Tags that do not look like dotted version numbers pass through unchanged.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	parts := strings.Split(tag, ".")
	if len(parts) < 2 {
		return tag
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return tag
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return tag
	}
	return parts[0] + "." + parts[1]
}

func parseTag(tag string) (major, minor int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(tag), ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// Resolve selects the schema version for a declared document version.
// An exact normalized match wins. Otherwise the closest available version
// is chosen by |Δmajor|×100 + |Δminor|, ties breaking toward the lower
// version, and a MismatchWarning is returned alongside it. An absent or
// unparseable declared version yields ErrVersionUndetermined.
func Resolve(declared string, c *Catalog) (*SchemaVersion, *MismatchWarning, error) {
	if strings.TrimSpace(declared) == "" {
		return nil, nil, fmt.Errorf("no version declared: %w", ErrVersionUndetermined)
	}
	tag := NormalizeTag(declared)
	if v, ok := c.Version(tag); ok {
		return v, nil, nil
	}

	major, minor, ok := parseTag(tag)
	if !ok {
		return nil, nil, fmt.Errorf("declared version %q is not a major.minor tag: %w", declared, ErrVersionUndetermined)
	}

	var best *SchemaVersion
	bestDist := 0
	var bestMajor, bestMinor int
	for _, candidate := range c.Tags() {
		cm, cn, ok := parseTag(candidate)
		if !ok {
			continue
		}
		dist := abs(cm-major)*100 + abs(cn-minor)
		better := best == nil || dist < bestDist ||
			(dist == bestDist && (cm < bestMajor || (cm == bestMajor && cn < bestMinor)))
		if better {
			v, _ := c.Version(candidate)
			best = v
			bestDist = dist
			bestMajor, bestMinor = cm, cn
		}
	}
	if best == nil {
		return nil, nil, fmt.Errorf("no comparable schema versions available for %q: %w", declared, ErrVersionUndetermined)
	}
	return best, &MismatchWarning{Declared: tag, Chosen: best.Tag, Distance: bestDist}, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

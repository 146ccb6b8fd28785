package idf

import (
	"fmt"
	"sort"
	"strings"
)

// Conflict is one edit that cannot be safely applied.
type Conflict struct {
	Ref    Ref
	Reason string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("idf: edit %s: %s", c.Ref, c.Reason)
}

// ConflictList collects every conflict across a change set. Apply never
// stops at the first problem; callers get the complete report.
type ConflictList []*Conflict

func (l ConflictList) Error() string {
	if len(l) == 0 {
		return "idf: no conflicts"
	}
	if len(l) == 1 {
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
}

// Apply produces a new document text with every edit substituted in place.
// The original text is copied verbatim outside the edited value spans, so
// comments, blank lines, whitespace style, and record order are untouched.
// An empty change set reproduces the source exactly.
//
// The whole change set is validated first; on any conflict the returned
// text is empty and the error is the full ConflictList. A partially
// modified document is never produced.
func Apply(doc *Document, changes ChangeSet) (string, error) {
	var conflicts ConflictList
	seen := make(map[Ref]struct{}, len(changes))

	for _, e := range changes {
		if _, dup := seen[e.Ref]; dup {
			conflicts = append(conflicts, &Conflict{Ref: e.Ref, Reason: "duplicate edit for the same value"})
			continue
		}
		seen[e.Ref] = struct{}{}

		if e.Ref.Instance < 0 || e.Ref.Instance >= len(doc.Instances) {
			conflicts = append(conflicts, &Conflict{
				Ref:    e.Ref,
				Reason: fmt.Sprintf("instance %d does not exist (document has %d instances)", e.Ref.Instance, len(doc.Instances)),
			})
			continue
		}
		inst := &doc.Instances[e.Ref.Instance]
		if e.Ref.Position < 0 || e.Ref.Position >= len(inst.Values) {
			conflicts = append(conflicts, &Conflict{
				Ref:    e.Ref,
				Reason: fmt.Sprintf("position %d does not exist (instance %q has %d values)", e.Ref.Position, inst.Type, len(inst.Values)),
			})
			continue
		}
		if reason := valueConflict(e.NewValue); reason != "" {
			conflicts = append(conflicts, &Conflict{Ref: e.Ref, Reason: reason})
		}
	}
	if len(conflicts) > 0 {
		return "", conflicts
	}

	ordered := make(ChangeSet, len(changes))
	copy(ordered, changes)
	sort.Slice(ordered, func(i, j int) bool {
		si := doc.Instances[ordered[i].Ref.Instance].ValueSpans[ordered[i].Ref.Position]
		sj := doc.Instances[ordered[j].Ref.Instance].ValueSpans[ordered[j].Ref.Position]
		return si.Start < sj.Start
	})

	var out strings.Builder
	out.Grow(len(doc.Source))
	cursor := 0
	for _, e := range ordered {
		span := doc.Instances[e.Ref.Instance].ValueSpans[e.Ref.Position]
		out.WriteString(doc.Source[cursor:span.Start])
		out.WriteString(e.NewValue)
		cursor = span.End
	}
	out.WriteString(doc.Source[cursor:])
	return out.String(), nil
}

// valueConflict reports why a replacement value cannot be expressed by
// single-value substitution. Separators, terminators, comment introducers,
// quotes, and line breaks would change the record's structure; so would
// surrounding whitespace, which the original token's context already owns.
func valueConflict(v string) string {
	if strings.ContainsAny(v, ",;!\"\n\r") {
		return "new value contains structural characters (one of , ; ! \" or a line break)"
	}
	if strings.TrimSpace(v) != v {
		return "new value carries leading or trailing whitespace"
	}
	return ""
}

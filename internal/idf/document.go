// Package idf parses EnergyPlus building-model documents (IDF) and writes
// edited values back into them without disturbing any unedited text.
package idf

import "fmt"

// Span is a half-open byte range into a document's source text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Instance is one semicolon-terminated record.
//
// Values holds the trimmed (and unquoted) field values; ValueSpans holds the
// byte range of each value's original token, quotes included. An empty
// value's span is the zero-length position immediately before its following
// separator. Spans are never adjusted after parsing; they are the contract
// the update engine depends on for in-place substitution.
type Instance struct {
	Type             string
	Values           []string
	ValueSpans       []Span
	LeadingComments  []string
	TrailingComments map[int]string
	Span             Span
}

// Document is the parsed form of one IDF text. Source is retained verbatim
// for the update engine; instances keep their reference into it via spans.
type Document struct {
	VersionTag     string
	HeaderComments []string
	Instances      []Instance
	Source         string
}

// Ref addresses a single value: instance index within the document and
// position within that instance's values.
type Ref struct {
	Instance int `json:"instance"`
	Position int `json:"position"`
}

func (r Ref) String() string {
	return fmt.Sprintf("(%d, %d)", r.Instance, r.Position)
}

// Value returns the value a ref addresses, or false for a stale ref.
func (d *Document) Value(ref Ref) (string, bool) {
	if ref.Instance < 0 || ref.Instance >= len(d.Instances) {
		return "", false
	}
	inst := &d.Instances[ref.Instance]
	if ref.Position < 0 || ref.Position >= len(inst.Values) {
		return "", false
	}
	return inst.Values[ref.Position], true
}

// Edit replaces the value a ref addresses with NewValue.
type Edit struct {
	Ref      Ref
	NewValue string
}

// ChangeSet is an ordered set of edits, produced externally by diffing an
// edited tabular view against the original and consumed once by Apply.
type ChangeSet []Edit

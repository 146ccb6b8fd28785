// Package idd loads versioned EnergyPlus field schemas (IDD) and resolves
// which schema version applies to a given document.
package idd

import (
	"fmt"
	"strings"
)

// FieldDef is one named value slot within an object schema.
type FieldDef struct {
	Name     string
	Unit     string
	Position int
	IsKey    bool
}

// ObjectSchema is the ordered field list for one object type.
// Field order is authoritative: an instance's N-th positional value always
// maps to Fields[N].
type ObjectSchema struct {
	Type   string
	Fields []FieldDef
}

// KeyField returns the position of the first key field, or -1 if the schema
// marks no key field.
func (s *ObjectSchema) KeyField() int {
	for _, f := range s.Fields {
		if f.IsKey {
			return f.Position
		}
	}
	return -1
}

// SchemaVersion holds every object schema for one EnergyPlus release.
// Immutable once built; shared read-only across conversions.
type SchemaVersion struct {
	Tag       string
	Objects   map[string]*ObjectSchema // keyed by upper-cased object type
	TypeOrder []string
}

// Lookup returns the schema for an object type (case-insensitive), or nil.
func (v *SchemaVersion) Lookup(objectType string) *ObjectSchema {
	return v.Objects[strings.ToUpper(objectType)]
}

// SourceError reports a malformed schema source. It is fatal for that source
// only; other sources remain usable.
type SourceError struct {
	Tag    string
	Line   int
	Reason string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("idd: source %q line %d: %s", e.Tag, e.Line, e.Reason)
}

// Parse parses one IDD schema source. The grammar is line-oriented:
// `!` starts a comment running to end of line; a definition is the object
// type name, a comma, then field names separated by commas, the last one
// terminated by a semicolon. A field name may carry a unit as a trailing
// bracketed suffix (`Thickness [m]`). A field named "Name"
// (case-insensitive) is the object's key field.
func Parse(tag, src string) (*SchemaVersion, error) {
	v := &SchemaVersion{
		Tag:     tag,
		Objects: make(map[string]*ObjectSchema),
	}

	line := 1
	defLine := 0 // line where the open definition started
	var tokens []string
	var cur strings.Builder
	inComment := false

	commit := func() {
		tokens = append(tokens, strings.TrimSpace(cur.String()))
		cur.Reset()
	}

	closeDef := func() error {
		commit()
		if err := addDefinition(v, tokens, defLine); err != nil {
			return err
		}
		tokens = nil
		return nil
	}

	for _, r := range src {
		switch {
		case r == '\n':
			line++
			inComment = false
		case inComment:
			// skip
		case r == '!':
			inComment = true
		case r == ',':
			if len(tokens) == 0 {
				defLine = line
			}
			commit()
		case r == ';':
			if len(tokens) == 0 {
				defLine = line
			}
			if err := closeDef(); err != nil {
				return nil, err
			}
		default:
			cur.WriteRune(r)
		}
	}

	if len(tokens) > 0 || strings.TrimSpace(cur.String()) != "" {
		return nil, &SourceError{Tag: tag, Line: defLine, Reason: "field list not terminated by ';'"}
	}
	if len(v.TypeOrder) == 0 {
		return nil, &SourceError{Tag: tag, Line: 1, Reason: "no object definitions"}
	}
	return v, nil
}

func addDefinition(v *SchemaVersion, tokens []string, line int) error {
	objType := tokens[0]
	if objType == "" {
		return &SourceError{Tag: v.Tag, Line: line, Reason: "empty object type name"}
	}
	key := strings.ToUpper(objType)
	if _, dup := v.Objects[key]; dup {
		return &SourceError{Tag: v.Tag, Line: line, Reason: fmt.Sprintf("object type %q defined twice", objType)}
	}

	schema := &ObjectSchema{Type: objType}
	seen := make(map[string]struct{}, len(tokens)-1)
	for i, raw := range tokens[1:] {
		name, unit := splitUnit(raw)
		if name == "" {
			return &SourceError{Tag: v.Tag, Line: line, Reason: fmt.Sprintf("object type %q: empty field name at position %d", objType, i)}
		}
		norm := strings.ToUpper(name)
		if _, dup := seen[norm]; dup {
			return &SourceError{Tag: v.Tag, Line: line, Reason: fmt.Sprintf("object type %q: field %q declared twice", objType, name)}
		}
		seen[norm] = struct{}{}
		schema.Fields = append(schema.Fields, FieldDef{
			Name:     name,
			Unit:     unit,
			Position: i,
			IsKey:    strings.EqualFold(name, "Name"),
		})
	}

	v.Objects[key] = schema
	v.TypeOrder = append(v.TypeOrder, objType)
	return nil
}

// splitUnit separates a trailing bracketed unit suffix from a field name:
// "Thickness [m]" -> ("Thickness", "m").
func splitUnit(raw string) (name, unit string) {
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(raw, "]") {
		return raw, ""
	}
	open := strings.LastIndex(raw, "[")
	if open < 0 {
		return raw, ""
	}
	return strings.TrimSpace(raw[:open]), strings.TrimSpace(raw[open+1 : len(raw)-1])
}

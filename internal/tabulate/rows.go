// Package tabulate joins parsed IDF documents against a schema version to
// produce named, typed, unit-annotated field rows, groups them into sheet
// views, and maps edited rows back into document change sets.
package tabulate

import (
	"fmt"
	"strings"

	"github.com/ecowise/idftab/internal/idd"
	"github.com/ecowise/idftab/internal/idf"
)

// Row is the atomic unit of tabular output. Ref is what lets the update
// engine map an edited row back to its originating value without re-parsing.
type Row struct {
	ObjectType string  `json:"object_type"`
	ObjectName string  `json:"object_name,omitempty"`
	FieldName  string  `json:"field_name"`
	Value      string  `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	Ref        idf.Ref `json:"ref"`
}

// Rows tabulates every instance of doc against schema. The mapping is pure
// and order-preserving: row order follows instance order, field order
// follows position order.
//
// Naming is tiered. A schema field at the value's position always wins; past
// the end of the schema (or for object types the schema does not know) the
// instance's trailing comment hint labels the value, and failing that a
// positional "Field<N>" placeholder does. Data is never dropped for lack of
// a name. Omitted trailing fields produce no row at all.
func Rows(doc *idf.Document, schema *idd.SchemaVersion) []Row {
	var rows []Row
	for i := range doc.Instances {
		inst := &doc.Instances[i]
		objSchema := schema.Lookup(inst.Type)
		name := objectName(inst, objSchema)

		for p, value := range inst.Values {
			row := Row{
				ObjectType: inst.Type,
				ObjectName: name,
				Value:      value,
				Ref:        idf.Ref{Instance: i, Position: p},
			}
			if objSchema != nil && p < len(objSchema.Fields) {
				row.FieldName = objSchema.Fields[p].Name
				row.Unit = objSchema.Fields[p].Unit
			} else if hint := hintName(inst.TrailingComments[p]); hint != "" {
				row.FieldName = hint
			} else {
				row.FieldName = fmt.Sprintf("Field%d", p)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// objectName picks the instance's identifying name: the value at the
// schema's key field, falling back to the first value when the schema marks
// no key (or is absent), or empty for an instance with no values.
func objectName(inst *idf.Instance, schema *idd.ObjectSchema) string {
	if len(inst.Values) == 0 {
		return ""
	}
	if schema != nil {
		if key := schema.KeyField(); key >= 0 && key < len(inst.Values) {
			return inst.Values[key]
		}
	}
	return inst.Values[0]
}

// hintName cleans a trailing comment into a candidate field name: the
// conventional "!- Name {unit}" form loses its dash and braces.
func hintName(comment string) string {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), "-"))
	if i := strings.Index(s, "{"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

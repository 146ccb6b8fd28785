package tabulate

import (
	"fmt"

	"github.com/ecowise/idftab/internal/idd"
	"github.com/ecowise/idftab/internal/idf"
)

// Verify re-parses the text produced by an update and confirms that every
// row not named in the change set is unchanged, and every edited row now
// carries its new value. It is the optional proof that substitution touched
// exactly what it was asked to.
func Verify(doc *idf.Document, newText string, schema *idd.SchemaVersion, changes idf.ChangeSet) error {
	reparsed, err := idf.Parse(newText)
	if err != nil {
		return fmt.Errorf("tabulate: verify: updated text does not parse: %w", err)
	}

	before := Rows(doc, schema)
	after := Rows(reparsed, schema)
	if len(before) != len(after) {
		return fmt.Errorf("tabulate: verify: row count changed from %d to %d", len(before), len(after))
	}

	edited := make(map[idf.Ref]string, len(changes))
	for _, e := range changes {
		edited[e.Ref] = e.NewValue
	}

	for i := range before {
		b, a := &before[i], &after[i]
		if b.Ref != a.Ref || b.ObjectType != a.ObjectType || b.FieldName != a.FieldName {
			return fmt.Errorf("tabulate: verify: row %d identity changed (%s %s became %s %s)",
				i, b.ObjectType, b.FieldName, a.ObjectType, a.FieldName)
		}
		if want, ok := edited[b.Ref]; ok {
			if a.Value != want {
				return fmt.Errorf("tabulate: verify: edited value %s is %q, expected %q", b.Ref, a.Value, want)
			}
			continue
		}
		if a.Value != b.Value {
			return fmt.Errorf("tabulate: verify: unedited value %s changed from %q to %q", b.Ref, b.Value, a.Value)
		}
	}
	return nil
}

package tabulate

import (
	"fmt"

	"github.com/ecowise/idftab/internal/apperr"
	"github.com/ecowise/idftab/internal/idf"
)

// Diff compares an edited row set against the original tabulation and
// produces the change set to apply. Matching is positional: edited row i
// corresponds to original row i, so adding or removing rows is a stale
// edit, as is a changed identity column (object type or field name) — both
// mean the edited view was derived from a different document.
func Diff(original, edited []Row) (idf.ChangeSet, error) {
	if len(original) != len(edited) {
		return nil, fmt.Errorf("tabulate: edited view has %d rows, original has %d: %w",
			len(edited), len(original), apperr.ErrStaleEdit)
	}

	var changes idf.ChangeSet
	for i := range original {
		o, e := &original[i], &edited[i]
		if o.ObjectType != e.ObjectType || o.FieldName != e.FieldName {
			return nil, fmt.Errorf("tabulate: row %d identity changed (%s/%s became %s/%s): %w",
				i, o.ObjectType, o.FieldName, e.ObjectType, e.FieldName, apperr.ErrStaleEdit)
		}
		if o.Value != e.Value {
			changes = append(changes, idf.Edit{Ref: o.Ref, NewValue: e.Value})
		}
	}
	return changes, nil
}

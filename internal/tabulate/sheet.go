package tabulate

// Output is the consolidated tabular view: the single "ALL" view in document
// order plus per-object-type views. Purely derived; ByType slices are
// subsequences of AllRows with order preserved.
type Output struct {
	AllRows   []Row
	ByType    map[string][]Row
	TypeOrder []string
}

// Build groups rows by object type. AllRows is the input unchanged; group
// keys keep first-seen order; no row is duplicated, dropped, or reordered.
func Build(rows []Row) *Output {
	out := &Output{
		AllRows: rows,
		ByType:  make(map[string][]Row),
	}
	for _, r := range rows {
		if _, seen := out.ByType[r.ObjectType]; !seen {
			out.TypeOrder = append(out.TypeOrder, r.ObjectType)
		}
		out.ByType[r.ObjectType] = append(out.ByType[r.ObjectType], r)
	}
	return out
}

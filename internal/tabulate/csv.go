package tabulate

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Header is the canonical column set of every rendered sheet.
var Header = []string{"ObjectType", "ObjectName", "FieldName", "Value", "Unit"}

// SheetName sanitizes an object type into a worksheet name: alphanumerics,
// spaces, and underscores survive, trailing spaces are stripped, and the
// result is truncated to the 31-character worksheet limit.
func SheetName(objectType string) string {
	var b strings.Builder
	for _, r := range objectType {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '_':
			b.WriteRune(r)
		}
	}
	name := strings.TrimRight(b.String(), " ")
	if name == "" {
		name = "Sheet"
	}
	if len(name) > 31 {
		name = strings.TrimRight(name[:31], " ")
	}
	return name
}

// sheetNamer hands out sanitized names, suffixing collisions that sanitizing
// or truncation introduced.
type sheetNamer struct {
	used map[string]int
}

func newSheetNamer() *sheetNamer { return &sheetNamer{used: make(map[string]int)} }

func (n *sheetNamer) name(objectType string) string {
	base := SheetName(objectType)
	n.used[base]++
	if n.used[base] == 1 {
		return base
	}
	suffix := fmt.Sprintf(" (%d)", n.used[base])
	if len(base)+len(suffix) > 31 {
		base = strings.TrimRight(base[:31-len(suffix)], " ")
	}
	return base + suffix
}

// RenderCSV writes rows as one CSV sheet with the canonical header.
func RenderCSV(rows []Row, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("tabulate: write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.ObjectType, r.ObjectName, r.FieldName, r.Value, r.Unit}); err != nil {
			return fmt.Errorf("tabulate: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderWorkbook writes out as a zip of per-sheet CSVs: the "ALL" sheet
// first, then one sheet per object type in first-seen order. With allOnly
// set, only the consolidated sheet is produced.
func RenderWorkbook(out *Output, w io.Writer, allOnly bool) error {
	zw := zip.NewWriter(w)
	namer := newSheetNamer()

	writeSheet := func(name string, rows []Row) error {
		f, err := zw.Create(namer.name(name) + ".csv")
		if err != nil {
			return fmt.Errorf("tabulate: create sheet %s: %w", name, err)
		}
		return RenderCSV(rows, f)
	}

	if err := writeSheet("ALL", out.AllRows); err != nil {
		return err
	}
	if !allOnly {
		for _, objType := range out.TypeOrder {
			if err := writeSheet(objType, out.ByType[objType]); err != nil {
				return err
			}
		}
	}
	return zw.Close()
}

// ParseRowsCSV reads an edited sheet back into rows. The header must carry
// the canonical columns (extra columns are ignored); refs are not part of
// the sheet format and are recovered positionally by Diff.
func ParseRowsCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("tabulate: read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"ObjectType", "FieldName", "Value"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("tabulate: csv is missing required column %q", required)
		}
	}

	pick := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tabulate: read csv row: %w", err)
		}
		rows = append(rows, Row{
			ObjectType: pick(record, "ObjectType"),
			ObjectName: pick(record, "ObjectName"),
			FieldName:  pick(record, "FieldName"),
			Value:      pick(record, "Value"),
			Unit:       pick(record, "Unit"),
		})
	}
	return rows, nil
}

package mcpserver

// RowFormatContract describes the tabular row format produced by convert
// and consumed by update. LLM consumers should read it before editing rows.
const RowFormatContract = `# idftab Row Format Contract

Every tabulated sheet produced by idftab, and every edited sheet handed back
to the update tool, MUST follow this structure.

## Columns

` + "```" + `csv
ObjectType,ObjectName,FieldName,Value,Unit
Material,Gypsum Board,Thickness,0.019,m
` + "```" + `

1. **ObjectType** – the record's type exactly as written in the IDF
   (e.g. ` + "`" + `Material` + "`" + `, ` + "`" + `BuildingSurface:Detailed` + "`" + `).
2. **ObjectName** – the record's Name field value, empty for nameless types.
3. **FieldName** – the schema field name, a comment hint, or ` + "`" + `Field<N>` + "`" + `
   when neither is known.
4. **Value** – the field's raw value. This is the ONLY column the update
   tool reads back; edit it and nothing else.
5. **Unit** – informational, taken from the schema (e.g. ` + "`" + `m` + "`" + `, ` + "`" + `W/m-K` + "`" + `).

## Rules

1. **Row order and count are identity.** An edited sheet must contain exactly
   the rows of the original sheet, in the original order. Adding, removing,
   or reordering rows makes the whole sheet stale and the update is rejected.
2. **Only Value may change.** ObjectType and FieldName are checked against
   the original tabulation; a mismatch is a stale edit.
3. **Values must be plain tokens.** A new value may not contain ` + "`" + `,` + "`" + `,
   ` + "`" + `;` + "`" + `, ` + "`" + `!` + "`" + `, ` + "`" + `"` + "`" + `, or a line break, and may not carry leading or
   trailing whitespace. Such a value is reported as a conflict and the
   document is left untouched.
4. **All conflicts are reported together.** A rejected update lists every
   conflicting row, not just the first one.
5. **Everything else survives byte for byte.** Comments, blank lines,
   indentation, and record order of the original IDF are preserved exactly;
   only the edited value tokens are substituted.
`

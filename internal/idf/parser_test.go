package idf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIDF = `! Generated by hand for tests.
! Second header line.

Version,9.4.0;

Material,
  Gypsum Board,            !- Name
  MediumSmooth,            !- Roughness
  0.019,                   !- Thickness {m}
  0.16;                    !- Conductivity {W/m-K}

! A zone follows.
Zone,
  Main Zone,               !- Name
  0;                       !- Direction of Relative North {deg}
`

func TestParseDocument(t *testing.T) {
	doc, err := Parse(sampleIDF)
	require.NoError(t, err)

	assert.Equal(t, sampleIDF, doc.Source)
	assert.Equal(t, "9.4.0", doc.VersionTag)
	assert.Equal(t, []string{"Generated by hand for tests.", "Second header line."}, doc.HeaderComments)
	require.Len(t, doc.Instances, 3)

	ver := doc.Instances[0]
	assert.Equal(t, "Version", ver.Type)
	assert.Equal(t, []string{"9.4.0"}, ver.Values)

	mat := doc.Instances[1]
	assert.Equal(t, "Material", mat.Type)
	assert.Equal(t, []string{"Gypsum Board", "MediumSmooth", "0.019", "0.16"}, mat.Values)
	assert.Empty(t, mat.LeadingComments)
	assert.Equal(t, "- Name", mat.TrailingComments[0])
	assert.Equal(t, "- Thickness {m}", mat.TrailingComments[2])
	assert.Equal(t, "- Conductivity {W/m-K}", mat.TrailingComments[3])

	zone := doc.Instances[2]
	assert.Equal(t, []string{"A zone follows."}, zone.LeadingComments)
	assert.Equal(t, []string{"Main Zone", "0"}, zone.Values)
}

func TestParseSpansAreExact(t *testing.T) {
	doc, err := Parse(sampleIDF)
	require.NoError(t, err)

	prevEnd := 0
	for i, inst := range doc.Instances {
		assert.GreaterOrEqual(t, inst.Span.Start, prevEnd, "instance %d span overlaps its predecessor", i)
		assert.Equal(t, byte(';'), sampleIDF[inst.Span.End-1], "instance %d span must include its terminator", i)
		prevEnd = inst.Span.End

		for p, span := range inst.ValueSpans {
			assert.Equal(t, inst.Values[p], sampleIDF[span.Start:span.End],
				"instance %d value %d span must cover exactly the trimmed token", i, p)
		}
	}
}

func TestParseQuotedValues(t *testing.T) {
	doc, err := Parse(`Schedule,"Office, Weekday","On!Call";`)
	require.NoError(t, err)
	require.Len(t, doc.Instances, 1)

	inst := doc.Instances[0]
	assert.Equal(t, []string{"Office, Weekday", "On!Call"}, inst.Values)
	// The span covers the whole token including quotes.
	assert.Equal(t, `"Office, Weekday"`, doc.Source[inst.ValueSpans[0].Start:inst.ValueSpans[0].End])
}

func TestParseEmptyValues(t *testing.T) {
	src := "Zone,A,,c;"
	doc, err := Parse(src)
	require.NoError(t, err)

	inst := doc.Instances[0]
	assert.Equal(t, []string{"A", "", "c"}, inst.Values)

	empty := inst.ValueSpans[1]
	assert.Equal(t, 0, empty.Len())
	// Zero-length span sits immediately before the value's separator.
	assert.Equal(t, byte(','), src[empty.Start])
}

func TestParseRecordWithNoValues(t *testing.T) {
	doc, err := Parse("Lead Input;\nEnd Lead Input;")
	require.NoError(t, err)
	require.Len(t, doc.Instances, 2)
	assert.Equal(t, "Lead Input", doc.Instances[0].Type)
	assert.Empty(t, doc.Instances[0].Values)
	assert.Equal(t, "", doc.VersionTag)
}

func TestParseCRLF(t *testing.T) {
	src := "Version,9.2;\r\nZone,\r\n  A,\r\n  0.5;\r\n"
	doc, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "9.2", doc.VersionTag)
	assert.Equal(t, []string{"A", "0.5"}, doc.Instances[1].Values)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		reason string
	}{
		{"unterminated record", "Version,9.4.0;\nZone,\n  A,\n  0.5\n", "record not terminated"},
		{"terminator in quote", `Zone,"A;B",1;`, "record terminator inside quoted value"},
		{"unterminated quote", "Zone,\"A\n;", "unterminated quoted value"},
		{"unterminated quote at eof", `Zone,"A`, "unterminated quoted value"},
		{"content after terminator", "Zone,A; stray\n", "content after record terminator"},
		{"value resumes after comment", "Zone,\n  Gyp !- hint\n  sum;", "value continues after comment"},
		{"quoted value resumes after comment", "Zone,\n  Gyp !- hint\n  \"sum\";", "value continues after comment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Contains(t, pe.Reason, tc.reason)
			assert.Positive(t, pe.Line)
			assert.Positive(t, pe.Column)
		})
	}
}

func TestParseCommentEndsToken(t *testing.T) {
	// A comment closes the token it interrupts; comment bytes are never
	// value text. A separator may still follow on a later line.
	src := "Zone,\n  A !- hint\n  ,\n  b;"
	doc, err := Parse(src)
	require.NoError(t, err)

	inst := doc.Instances[0]
	assert.Equal(t, []string{"A", "b"}, inst.Values)
	assert.Equal(t, "A", src[inst.ValueSpans[0].Start:inst.ValueSpans[0].End])
	assert.Equal(t, "- hint", inst.TrailingComments[0])

	// Token text after the comment is an error at the resuming byte.
	_, err = Parse("Zone,\n  Gyp !- hint\n  sum;")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.Contains(t, pe.Reason, "value continues after comment")
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("Zone,A; x")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 8, pe.Offset)
	assert.Equal(t, 1, pe.Line)
	assert.Equal(t, 9, pe.Column)
}

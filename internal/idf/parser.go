package idf

import (
	"fmt"
	"strings"
)

// ParseError reports unparseable input. Offset is a byte offset into the
// source; Line and Column are 1-based and derived from it for diagnostics.
type ParseError struct {
	Offset int
	Line   int
	Column int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("idf: line %d, column %d (offset %d): %s", e.Line, e.Column, e.Offset, e.Reason)
}

func errAt(src string, offset int, reason string) *ParseError {
	line, col := 1, 1
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &ParseError{Offset: offset, Line: line, Column: col, Reason: reason}
}

// Parse tokenizes raw IDF text into an ordered sequence of instances,
// preserving the comment and span metadata needed for faithful
// reconstruction. Comments before the first record become document header
// metadata; comments between records attach to the following instance; a
// comment on the same line as a value is recorded as that position's
// field-name hint. The first value of a Version record (case-insensitive)
// becomes the document's version tag.
func Parse(text string) (*Document, error) {
	doc := &Document{Source: text}
	p := &parser{src: text}

	var pending []string
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.src[p.pos] == '!' {
			pending = append(pending, p.readComment())
			continue
		}

		inst, err := p.parseRecord()
		if err != nil {
			return nil, err
		}
		if len(doc.Instances) == 0 {
			doc.HeaderComments = pending
		} else {
			inst.LeadingComments = pending
		}
		pending = nil

		if doc.VersionTag == "" && strings.EqualFold(inst.Type, "Version") && len(inst.Values) > 0 {
			doc.VersionTag = inst.Values[0]
		}
		doc.Instances = append(doc.Instances, inst)
	}

	return doc, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

// readComment consumes a comment from the introducer to end of line and
// returns its trimmed text without the introducer.
func (p *parser) readComment() string {
	start := p.pos + 1 // past '!'
	for !p.eof() && p.src[p.pos] != '\n' {
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos])
}

// parseRecord consumes one record starting at the current position, which
// must be its first non-comment character.
func (p *parser) parseRecord() (Instance, error) {
	start := p.pos
	inst := Instance{TrailingComments: make(map[int]string)}

	typeDone := false
	tokStart, tokEnd := -1, -1 // trimmed token byte range; -1 = empty so far
	tokClosed := false         // a comment ended the token; only a separator may follow
	inQuote := false
	quoteStart := 0

	// commit finishes the current token at a separator located at sep.
	commit := func(sep int) {
		var raw string
		span := Span{Start: sep, End: sep}
		if tokStart >= 0 {
			raw = p.src[tokStart:tokEnd]
			span = Span{Start: tokStart, End: tokEnd}
		}
		if !typeDone {
			inst.Type = unquote(raw)
			typeDone = true
		} else {
			inst.Values = append(inst.Values, unquote(raw))
			inst.ValueSpans = append(inst.ValueSpans, span)
		}
		tokStart, tokEnd = -1, -1
		tokClosed = false
	}

	// hint records a same-line comment as a candidate field name.
	hint := func(text string) {
		if !typeDone {
			return
		}
		pos := len(inst.Values) - 1
		if tokStart >= 0 {
			pos = len(inst.Values) // comment follows an in-progress value
		}
		if pos < 0 {
			return
		}
		if _, taken := inst.TrailingComments[pos]; !taken {
			inst.TrailingComments[pos] = text
		}
	}

	for !p.eof() {
		c := p.src[p.pos]

		if inQuote {
			switch c {
			case '"':
				inQuote = false
				tokEnd = p.pos + 1
				p.pos++
			case ';':
				return inst, errAt(p.src, p.pos, "record terminator inside quoted value")
			case '\n':
				return inst, errAt(p.src, quoteStart, "unterminated quoted value")
			default:
				p.pos++
			}
			continue
		}

		switch c {
		case '"':
			if tokClosed {
				return inst, errAt(p.src, p.pos, "value continues after comment")
			}
			if tokStart < 0 {
				tokStart = p.pos
			}
			quoteStart = p.pos
			inQuote = true
			p.pos++

		case '!':
			// A comment ends any in-progress token; the comment runs to end
			// of line and its bytes are never value text.
			if tokStart >= 0 {
				tokClosed = true
			}
			hint(p.readComment())

		case ',':
			commit(p.pos)
			p.pos++

		case ';':
			commit(p.pos)
			inst.Span = Span{Start: start, End: p.pos + 1}
			p.pos++
			return inst, p.finishLine(&inst)

		case ' ', '\t', '\r', '\n':
			p.pos++

		default:
			if tokClosed {
				return inst, errAt(p.src, p.pos, "value continues after comment")
			}
			if tokStart < 0 {
				tokStart = p.pos
			}
			tokEnd = p.pos + 1
			p.pos++
		}
	}

	if inQuote {
		return inst, errAt(p.src, quoteStart, "unterminated quoted value")
	}
	return inst, errAt(p.src, start, "record not terminated before end of input")
}

// finishLine validates the remainder of the line after a record terminator:
// only whitespace or a comment may follow. A comment here is the trailing
// hint for the record's last value.
func (p *parser) finishLine(inst *Instance) error {
	for !p.eof() {
		switch p.src[p.pos] {
		case '\n':
			return nil
		case ' ', '\t', '\r':
			p.pos++
		case '!':
			if n := len(inst.Values); n > 0 {
				text := p.readComment()
				if _, taken := inst.TrailingComments[n-1]; !taken {
					inst.TrailingComments[n-1] = text
				}
			} else {
				p.readComment()
			}
		default:
			return errAt(p.src, p.pos, "content after record terminator")
		}
	}
	return nil
}

// unquote strips surrounding double quotes from a fully quoted token.
func unquote(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	return raw
}

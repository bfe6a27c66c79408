// Package symbols parses the symbol path segment of market-data requests.
//
// A segment is either a single ticker ("petr4") or a bracketed list of
// quoted tickers ("['PETR4','VALE3']"). Every ticker is upper-cased and the
// caller's listing order is preserved, duplicates included.
package symbols

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSymbolList is returned when a segment uses the bracketed form
// but is not a valid list of quoted strings.
var ErrMalformedSymbolList = errors.New("malformed symbol list")

// SyntaxError describes where a bracketed list failed to parse.
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed symbol list at offset %d: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrMalformedSymbolList }

// Parse turns a raw path segment into one or more upper-cased tickers.
func Parse(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &SyntaxError{Input: raw, Msg: "empty symbol"}
	}
	if !isBracketed(trimmed) {
		if i := strings.IndexAny(trimmed, "[]'\","); i >= 0 {
			return nil, &SyntaxError{Input: raw, Pos: i, Msg: "list syntax outside brackets"}
		}
		return []string{strings.ToUpper(trimmed)}, nil
	}

	p := &parser{input: trimmed}
	list, err := p.parseList()
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Format renders tickers in the form Parse accepts. A single ticker is
// returned bare.
func Format(tickers []string) string {
	if len(tickers) == 1 && !strings.ContainsAny(tickers[0], "[]'\",\\") {
		return tickers[0]
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, t := range tickers {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\'')
		b.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(t))
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}

// A segment that opens or closes with a bracket is always held to the list
// grammar, so "['A'" is an error rather than the ticker "['A'".
func isBracketed(s string) bool {
	return strings.HasPrefix(s, "[") || strings.HasSuffix(s, "]")
}

type parser struct {
	input string
	pos   int
}

func (p *parser) fail(msg string) error {
	return &SyntaxError{Input: p.input, Pos: p.pos, Msg: msg}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// list    = "[" string { "," string } [ "," ] "]"
// string  = quote { char | "\" any } quote
func (p *parser) parseList() ([]string, error) {
	if c, _ := p.peek(); c != '[' {
		return nil, p.fail("expected '['")
	}
	p.pos++

	p.skipSpace()
	if c, ok := p.peek(); ok && c == ']' {
		return nil, p.fail("empty list")
	}

	var out []string
	for {
		p.skipSpace()
		item, err := p.parseString()
		if err != nil {
			return nil, err
		}
		out = append(out, strings.ToUpper(item))

		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.fail("unterminated list")
		}
		if c == ']' {
			p.pos++
			break
		}
		if c != ',' {
			return nil, p.fail("expected ',' or ']'")
		}
		p.pos++

		// trailing comma
		p.skipSpace()
		if c, ok := p.peek(); ok && c == ']' {
			p.pos++
			break
		}
	}

	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, p.fail("unexpected trailing input")
	}
	return out, nil
}

func (p *parser) parseString() (string, error) {
	quote, _ := p.peek()
	if quote != '\'' && quote != '"' {
		return "", p.fail("expected quoted string")
	}
	start := p.pos
	p.pos++

	var b strings.Builder
	for {
		c, ok := p.peek()
		if !ok {
			p.pos = start
			return "", p.fail("unterminated string")
		}
		p.pos++
		switch c {
		case quote:
			if b.Len() == 0 {
				p.pos = start
				return "", p.fail("empty symbol")
			}
			return b.String(), nil
		case '\\':
			esc, ok := p.peek()
			if !ok {
				p.pos = start
				return "", p.fail("unterminated string")
			}
			p.pos++
			b.WriteByte(esc)
		default:
			b.WriteByte(c)
		}
	}
}

package nestedtext

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KenKundert/go-nestedtext/internal/scanner"
)

// Forbidden character sets for inline scalars. Dict keys and values stop at
// colons; list values may contain them.
const (
	inlineDictStops = "{}[],:"
	inlineListStops = "{}[],"
)

// inlineParser is a recursive-descent parser over the character content of a
// single inline-dict or inline-list line. Columns reported in errors and
// keymap entries are the character index plus the line's own indentation, so
// they are directly comparable with block-parsed locations.
type inlineParser struct {
	p    *parser
	line *scanner.Line
	text string
	pos  int
}

func (ip *inlineParser) parse(path Path) (Value, error) {
	v, err := ip.container(path)
	if err != nil {
		return nil, err
	}
	rest := ip.text[ip.pos:]
	if strings.TrimSpace(rest) != "" {
		off := len(rest) - len(strings.TrimLeft(rest, " \t"))
		return nil, ip.errorAt(ip.pos+off, "extra characters after closing bracket")
	}
	return v, nil
}

func (ip *inlineParser) container(path Path) (Value, error) {
	if ip.peek() == '[' {
		return ip.list(path)
	}
	return ip.dict(path)
}

func (ip *inlineParser) list(path Path) (Value, error) {
	ip.pos++ // consume '['
	l := List{}
	if ip.peek() == ']' {
		ip.pos++
		return l, nil
	}
	for {
		childPath := append(slices.Clone(path), len(l))
		v, col, err := ip.value(childPath, inlineListStops)
		if err != nil {
			return nil, err
		}
		l = append(l, v)
		ip.record(childPath, col, col, "")
		ip.skipSpaces()
		switch ip.peek() {
		case ',':
			ip.pos++
		case ']':
			ip.pos++
			return l, nil
		case 0:
			return nil, ip.errorAt(ip.pos, "unterminated inline list")
		default:
			return nil, ip.errorAt(ip.pos, fmt.Sprintf("unexpected character %q", ip.text[ip.pos]))
		}
	}
}

func (ip *inlineParser) dict(path Path) (Value, error) {
	ip.pos++ // consume '{'
	d := NewDict()
	if ip.peek() == '}' {
		ip.pos++
		return d, nil
	}
	afterComma := false
	for {
		rawKey, keyCol := ip.scalar(inlineDictStops)
		switch ip.peek() {
		case ':':
			ip.pos++
		case '}':
			if rawKey == "" && afterComma {
				// trailing comma before the closing brace
				ip.pos++
				return d, nil
			}
			return nil, ip.errorAt(ip.pos, "expected ':'")
		case 0:
			return nil, ip.errorAt(ip.pos, "unterminated inline dictionary")
		default:
			return nil, ip.errorAt(ip.pos, fmt.Sprintf("unexpected character %q", ip.text[ip.pos]))
		}

		key := ip.p.o.normalizeKey(rawKey, path)
		finalKey, drop, err := ip.p.resolveKey(d, key, ip.line, ip.line.Depth+keyCol)
		if err != nil {
			return nil, err
		}
		childPath := append(slices.Clone(path), finalKey)
		v, valCol, err := ip.value(childPath, inlineDictStops)
		if err != nil {
			return nil, err
		}
		if !drop {
			d.Set(finalKey, v)
			ip.record(childPath, keyCol, valCol, rawKey)
		}
		ip.skipSpaces()
		switch ip.peek() {
		case ',':
			ip.pos++
			afterComma = true
		case '}':
			ip.pos++
			return d, nil
		case 0:
			return nil, ip.errorAt(ip.pos, "unterminated inline dictionary")
		default:
			return nil, ip.errorAt(ip.pos, fmt.Sprintf("unexpected character %q", ip.text[ip.pos]))
		}
	}
}

// value parses one inline value: a nested container or a scalar bounded by
// stops. It returns the value and the column of its first character.
func (ip *inlineParser) value(path Path, stops string) (Value, int, error) {
	mark := ip.pos
	ip.skipSpaces()
	switch ip.peek() {
	case '[', '{':
		col := ip.pos
		v, err := ip.container(path)
		return v, col, err
	default:
		ip.pos = mark
		s, col := ip.scalar(stops)
		return String(s), col, nil
	}
}

// scalar consumes the run of characters up to any stop character and returns
// it trimmed of surrounding spaces and tabs, with the column of its first
// retained character (or of the terminator when the scalar is empty).
func (ip *inlineParser) scalar(stops string) (string, int) {
	start := ip.pos
	for ip.pos < len(ip.text) && !strings.ContainsRune(stops, rune(ip.text[ip.pos])) {
		ip.pos++
	}
	raw := ip.text[start:ip.pos]
	ltrimmed := strings.TrimLeft(raw, " \t")
	col := start + len(raw) - len(ltrimmed)
	return strings.TrimRight(ltrimmed, " \t"), col
}

func (ip *inlineParser) skipSpaces() {
	for ip.pos < len(ip.text) && (ip.text[ip.pos] == ' ' || ip.text[ip.pos] == '\t') {
		ip.pos++
	}
}

// peek returns the byte at the cursor, or 0 at end of line.
func (ip *inlineParser) peek() byte {
	if ip.pos >= len(ip.text) {
		return 0
	}
	return ip.text[ip.pos]
}

func (ip *inlineParser) errorAt(pos int, msg string) *Error {
	e := newParseError(msg, ip.line.LineNo, ip.line.Depth+pos, ip.line.Text)
	if ip.line.Prev != nil {
		e.Prev = ip.line.Prev.LineNo
		e.PrevSrc = ip.line.Prev.Text
	}
	return e
}

func (ip *inlineParser) record(path Path, keyCol, valCol int, origKey string) {
	if ip.p.km == nil {
		return
	}
	n := ip.line.LineNo
	ip.p.km.add(path, Location{
		KeyLine: n, KeyCol: ip.line.Depth + keyCol,
		ValueLine: n, ValueCol: ip.line.Depth + valCol,
		KeyText: ip.line.Text, ValueText: ip.line.Text,
		keyFirst: n, keyLast: n, valueFirst: n, valueLast: n,
		OriginalKey: origKey,
	})
}

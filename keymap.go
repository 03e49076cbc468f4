package nestedtext

import (
	"fmt"
	"strconv"
	"strings"
)

// Path identifies a value's position from the document root as an ordered
// sequence of dict keys (string) and list indices (int).
type Path []any

// String renders the path in a readable dotted form, e.g. `a.b[2]`.
func (p Path) String() string {
	var b strings.Builder
	for i, el := range p {
		switch e := el.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", e)
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(e)
		default:
			fmt.Fprintf(&b, "%v", e)
		}
	}
	return b.String()
}

// pathKey encodes a path as a collision-free map key.
func pathKey(p Path) string {
	var b strings.Builder
	for _, el := range p {
		switch e := el.(type) {
		case int:
			b.WriteByte('#')
			b.WriteString(strconv.Itoa(e))
		case string:
			b.WriteString(strconv.Itoa(len(e)))
			b.WriteByte(':')
			b.WriteString(e)
		}
		b.WriteByte('/')
	}
	return b.String()
}

// Location records where a key and its value appear in the source. All line
// and column numbers are 0-based, and columns are byte offsets within the
// line. List indices have no distinct key token, so their key position equals
// their value position.
type Location struct {
	KeyLine   int
	KeyCol    int
	ValueLine int
	ValueCol  int

	// KeyText and ValueText are the literal texts of the first source line
	// of the key and value tokens.
	KeyText   string
	ValueText string

	// OriginalKey is the key as written in the source, before any
	// normalization or duplicate-key renaming.
	OriginalKey string

	keyFirst, keyLast     int
	valueFirst, valueLast int
	km                    *Keymap
}

// KeyLines returns the 1-based first and last source line numbers spanned by
// the key token. Multi-line keys span several lines.
func (l Location) KeyLines() (first, last int) {
	return l.keyFirst + 1, l.keyLast + 1
}

// ValueLines returns the 1-based first and last source line numbers spanned
// by the value token. Multi-line strings span several lines.
func (l Location) ValueLines() (first, last int) {
	return l.valueFirst + 1, l.valueLast + 1
}

// AnnotateKey renders the key's source line followed by a caret at the key
// column. An optional (row, column) delta offsets the caret to point inside
// a multi-line key.
func (l Location) AnnotateKey(delta ...int) string {
	return l.annotate(l.KeyLine, l.KeyCol, l.KeyText, delta)
}

// AnnotateValue renders the value's source line followed by a caret at the
// value column. An optional (row, column) delta offsets the caret to point
// inside a multi-line value.
func (l Location) AnnotateValue(delta ...int) string {
	return l.annotate(l.ValueLine, l.ValueCol, l.ValueText, delta)
}

func (l Location) annotate(line, col int, text string, delta []int) string {
	row, dcol := 0, 0
	if len(delta) > 0 {
		row = delta[0]
	}
	if len(delta) > 1 {
		dcol = delta[1]
	}
	if row != 0 && l.km != nil {
		if t, ok := l.km.Line(line + row); ok {
			text = t
		}
	}
	return caretLine(text, col+dcol)
}

// Keymap maps every key path of one parse call to its source location. It is
// populated by Parse when requested via CaptureKeymap and is read-only
// afterward.
type Keymap struct {
	entries map[string]Location
	lines   []string
}

func (k *Keymap) reset() {
	k.entries = make(map[string]Location)
	k.lines = nil
}

func (k *Keymap) add(path Path, loc Location) {
	loc.km = k
	k.entries[pathKey(path)] = loc
}

// Len returns the number of recorded key paths.
func (k *Keymap) Len() int { return len(k.entries) }

// Lookup returns the location recorded for the given key path.
func (k *Keymap) Lookup(path ...any) (Location, bool) {
	loc, ok := k.entries[pathKey(path)]
	return loc, ok
}

// Line returns the literal text of the 0-based n'th source line.
func (k *Keymap) Line(n int) (string, bool) {
	if n < 0 || n >= len(k.lines) {
		return "", false
	}
	return k.lines[n], true
}

// OriginalPath recovers the pre-normalization, pre-deduplication spelling of
// each key in path. In strict mode an unrecorded prefix is an error; in
// lenient mode its segment passes through unchanged. List indices always pass
// through unchanged.
func (k *Keymap) OriginalPath(path Path, strict bool) (Path, error) {
	out := make(Path, len(path))
	copy(out, path)
	for i, el := range path {
		if _, isKey := el.(string); !isKey {
			continue
		}
		loc, ok := k.Lookup(path[:i+1]...)
		if !ok {
			if strict {
				return nil, &Error{
					Msg:  fmt.Sprintf("unknown key path: %s", Path(path[:i+1])),
					Line: -1, Col: -1, Prev: -1,
				}
			}
			continue
		}
		out[i] = loc.OriginalKey
	}
	return out, nil
}

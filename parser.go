package nestedtext

import (
	"fmt"
	"slices"
	"strings"

	"github.com/KenKundert/go-nestedtext/internal/scanner"
)

// parser holds the state of one parse call. Nothing here outlives the call:
// the duplicate-key state and the keymap are created per invocation, never
// shared process-wide.
type parser struct {
	cur      *scanner.Cursor
	o        *parseOptions
	km       *Keymap
	dupState map[string]any
}

// span records where a parsed value appeared in the source.
type span struct {
	line  int // first line of the value token
	col   int
	first int // first and last source lines covered
	last  int
	text  string // literal text of the first line
}

// The contract for all read functions is that they are entered with the
// cursor buffering the first line of the construct, and they return with the
// cursor buffering the line after it.

func (p *parser) parse() (Value, error) {
	if !p.cur.HasNext() {
		if err := p.cur.Err(); err != nil {
			return nil, newIOError(err)
		}
		switch p.o.top {
		case TopDict:
			return NewDict(), nil
		case TopList:
			return List{}, nil
		case TopString:
			return String(""), nil
		default:
			return nil, nil
		}
	}

	if p.cur.DepthOfNext() != 0 {
		line, err := p.cur.GetNext()
		if err != nil {
			return nil, newIOError(err)
		}
		if e := p.lineErr(line); e != nil {
			return nil, e
		}
		return nil, p.indentError(line, 0)
	}

	if err := p.checkTopShape(); err != nil {
		return nil, err
	}

	v, _, err := p.readValue(0, Path{})
	if err != nil {
		return nil, err
	}
	if err := p.cur.Err(); err != nil {
		return nil, newIOError(err)
	}
	if p.cur.HasNext() {
		line, _ := p.cur.GetNext()
		return nil, p.errorAt(line, line.Depth, "extra content after top-level value")
	}
	return v, nil
}

func (p *parser) checkTopShape() error {
	k := p.cur.TypeOfNext()
	var want string
	switch p.o.top {
	case TopDict:
		if k != scanner.DictItem && k != scanner.KeyItem && k != scanner.InlineDict {
			want = "top-level content must be a dictionary"
		}
	case TopList:
		if k != scanner.ListItem && k != scanner.InlineList {
			want = "top-level content must be a list"
		}
	case TopString:
		if k != scanner.StringItem {
			want = "top-level content must be a string"
		}
	}
	if want == "" {
		return nil
	}
	line, err := p.cur.GetNext()
	if err != nil {
		return newIOError(err)
	}
	if e := p.lineErr(line); e != nil {
		return e
	}
	return p.errorAt(line, line.Depth, want)
}

// readValue dispatches on the kind of the next line.
func (p *parser) readValue(depth int, path Path) (Value, span, error) {
	switch p.cur.TypeOfNext() {
	case scanner.ListItem:
		return p.readList(depth, path)
	case scanner.DictItem, scanner.KeyItem:
		return p.readDict(depth, path)
	case scanner.StringItem:
		return p.readString(depth)
	case scanner.InlineDict, scanner.InlineList:
		line, err := p.cur.GetNext()
		if err != nil {
			return nil, span{}, newIOError(err)
		}
		ip := &inlineParser{p: p, line: line, text: line.Value}
		v, err := ip.parse(path)
		sp := span{line: line.LineNo, col: line.Depth, first: line.LineNo, last: line.LineNo, text: line.Text}
		return v, sp, err
	default:
		line, err := p.cur.GetNext()
		if err != nil {
			return nil, span{}, newIOError(err)
		}
		if e := p.lineErr(line); e != nil {
			return nil, span{}, e
		}
		return nil, span{}, p.errorAt(line, line.Depth, "unrecognized line")
	}
}

func (p *parser) readList(depth int, path Path) (Value, span, error) {
	list := List{}
	sp := span{line: -1}
	for p.cur.StillWithinLevel(depth) {
		line, err := p.cur.GetNext()
		if err != nil {
			return nil, sp, newIOError(err)
		}
		if e := p.lineErr(line); e != nil {
			return nil, sp, e
		}
		if line.Depth != depth {
			return nil, sp, p.indentError(line, depth)
		}
		if line.Kind != scanner.ListItem {
			return nil, sp, p.errorAt(line, depth, "expected list item")
		}
		if sp.line < 0 {
			sp = span{line: line.LineNo, col: depth, first: line.LineNo, last: line.LineNo, text: line.Text}
		}

		childPath := append(slices.Clone(path), len(list))
		loc := Location{OriginalKey: ""}
		var v Value
		switch {
		case line.Value != "":
			v = String(line.Value)
			loc = lineLocation(line, line.ValueOff)
		case p.cur.StillWithinLevel(depth + 1):
			var vs span
			v, vs, err = p.readValue(p.cur.DepthOfNext(), childPath)
			if err != nil {
				return nil, sp, err
			}
			loc = spanLocation(vs)
		default:
			v = String("")
			loc = lineLocation(line, line.ValueOff)
		}
		list = append(list, v)
		sp.last = max(sp.last, loc.valueLast)
		p.record(childPath, loc)
	}
	return list, sp, nil
}

func (p *parser) readDict(depth int, path Path) (Value, span, error) {
	d := NewDict()
	sp := span{line: -1}
	for p.cur.StillWithinLevel(depth) {
		line, err := p.cur.GetNext()
		if err != nil {
			return nil, sp, newIOError(err)
		}
		if e := p.lineErr(line); e != nil {
			return nil, sp, e
		}
		if line.Depth != depth {
			return nil, sp, p.indentError(line, depth)
		}
		if sp.line < 0 {
			sp = span{line: line.LineNo, col: depth, first: line.LineNo, last: line.LineNo, text: line.Text}
		}

		switch line.Kind {
		case scanner.DictItem:
			rawKey := line.Key
			key := p.o.normalizeKey(rawKey, path)
			finalKey, drop, err := p.resolveKey(d, key, line, depth)
			if err != nil {
				return nil, sp, err
			}
			childPath := append(slices.Clone(path), finalKey)

			var v Value
			var loc Location
			switch {
			case line.Value != "":
				v = String(line.Value)
				loc = lineLocation(line, line.ValueOff)
			case p.cur.StillWithinLevel(depth + 1):
				var vs span
				v, vs, err = p.readValue(p.cur.DepthOfNext(), childPath)
				if err != nil {
					return nil, sp, err
				}
				loc = spanLocation(vs)
			default:
				v = String("")
				loc = lineLocation(line, line.ValueOff)
			}
			loc.KeyLine, loc.KeyCol, loc.KeyText = line.LineNo, depth, line.Text
			loc.keyFirst, loc.keyLast = line.LineNo, line.LineNo
			loc.OriginalKey = rawKey
			if !drop {
				d.Set(finalKey, v)
				p.record(childPath, loc)
			}
			sp.last = max(sp.last, loc.valueLast)

		case scanner.KeyItem:
			fragments := []string{line.Value}
			lastLine := line
			for p.cur.StillWithinKey(depth) {
				l, err := p.cur.GetNext()
				if err != nil {
					return nil, sp, newIOError(err)
				}
				fragments = append(fragments, l.Value)
				lastLine = l
			}
			if !p.cur.StillWithinLevel(depth + 1) {
				return nil, sp, p.errorAt(lastLine, depth, "multiline key requires a value")
			}
			rawKey := strings.Join(fragments, "\n")
			key := p.o.normalizeKey(rawKey, path)
			finalKey, drop, err := p.resolveKey(d, key, lastLine, depth)
			if err != nil {
				return nil, sp, err
			}
			childPath := append(slices.Clone(path), finalKey)
			v, vs, err := p.readValue(p.cur.DepthOfNext(), childPath)
			if err != nil {
				return nil, sp, err
			}
			loc := spanLocation(vs)
			loc.KeyLine, loc.KeyCol, loc.KeyText = line.LineNo, line.ValueOff, line.Text
			loc.keyFirst, loc.keyLast = line.LineNo, lastLine.LineNo
			loc.OriginalKey = rawKey
			if !drop {
				d.Set(finalKey, v)
				p.record(childPath, loc)
			}
			sp.last = max(sp.last, loc.valueLast)

		default:
			return nil, sp, p.errorAt(line, depth, "expected dictionary item")
		}
	}
	return d, sp, nil
}

func (p *parser) readString(depth int) (Value, span, error) {
	var frags []string
	sp := span{line: -1}
	for p.cur.StillWithinString(depth) {
		line, err := p.cur.GetNext()
		if err != nil {
			return nil, sp, newIOError(err)
		}
		if e := p.lineErr(line); e != nil {
			return nil, sp, e
		}
		if line.Depth != depth {
			return nil, sp, p.indentError(line, depth)
		}
		if sp.line < 0 {
			sp = span{line: line.LineNo, col: line.ValueOff, first: line.LineNo, last: line.LineNo, text: line.Text}
		}
		frags = append(frags, line.Value)
		sp.last = line.LineNo
	}
	return String(strings.Join(frags, "\n")), sp, nil
}

// resolveKey applies the duplicate-key policy when key already exists in d.
// drop reports that the entry must be discarded after its value has been
// consumed.
func (p *parser) resolveKey(d *Dict, key string, line *scanner.Line, col int) (finalKey string, drop bool, err error) {
	if !d.Has(key) {
		return key, false, nil
	}
	switch p.o.onDup {
	case IgnoreDup:
		return key, true, nil
	case ReplaceDup:
		return key, false, nil
	case callbackDup:
		nk, ok, cbErr := p.o.dupFn(key, p.dupState)
		if cbErr != nil {
			e := p.errorAt(line, col, fmt.Sprintf("duplicate key: %s", key))
			e.err = cbErr
			return "", false, e
		}
		if !ok {
			return key, true, nil
		}
		if d.Has(nk) {
			return "", false, p.errorAt(line, col, fmt.Sprintf("duplicate key: %s", nk))
		}
		return nk, false, nil
	default:
		return "", false, p.errorAt(line, col, fmt.Sprintf("duplicate key: %s", key))
	}
}

// indentError reports a depth mismatch. All indentation errors point at the
// expected depth.
func (p *parser) indentError(line *scanner.Line, expected int) *Error {
	prev := line.Prev
	var msg string
	switch {
	case prev == nil:
		msg = "top-level content must start in column 1"
	case prev.Value != "" && prev.Depth < line.Depth:
		msg = "invalid indentation: an indent may only follow an item that does not already have a value"
		if strings.TrimSpace(prev.Value) == "" {
			msg += " (the value above consists only of whitespace)"
		}
	case prev.Depth > line.Depth:
		msg = "invalid indentation, partial dedent"
	default:
		msg = "invalid indentation"
	}
	return p.errorAt(line, expected, msg)
}

// lineErr surfaces a classification failure (bad indentation character)
// recorded on the line itself.
func (p *parser) lineErr(line *scanner.Line) error {
	if line.Err == nil {
		return nil
	}
	bad, ok := line.Err.(*scanner.BadIndentError)
	if !ok {
		return p.errorAt(line, line.Depth, line.Err.Error())
	}
	e := p.errorAt(line, bad.Col, bad.Error())
	e.err = line.Err
	return e
}

func (p *parser) errorAt(line *scanner.Line, col int, msg string) *Error {
	e := newParseError(msg, line.LineNo, col, line.Text)
	if line.Prev != nil {
		e.Prev = line.Prev.LineNo
		e.PrevSrc = line.Prev.Text
	}
	return e
}

func (p *parser) record(path Path, loc Location) {
	if p.km == nil {
		return
	}
	p.km.add(path, loc)
}

// lineLocation builds a Location for a value carried on its own item line.
// List indices have no distinct key token, so the key position defaults to
// the value position.
func lineLocation(line *scanner.Line, valueCol int) Location {
	return Location{
		KeyLine: line.LineNo, KeyCol: valueCol,
		ValueLine: line.LineNo, ValueCol: valueCol,
		KeyText: line.Text, ValueText: line.Text,
		keyFirst: line.LineNo, keyLast: line.LineNo,
		valueFirst: line.LineNo, valueLast: line.LineNo,
	}
}

func spanLocation(vs span) Location {
	return Location{
		KeyLine: vs.line, KeyCol: vs.col,
		ValueLine: vs.line, ValueCol: vs.col,
		KeyText: vs.text, ValueText: vs.text,
		keyFirst: vs.first, keyLast: vs.last,
		valueFirst: vs.first, valueLast: vs.last,
	}
}

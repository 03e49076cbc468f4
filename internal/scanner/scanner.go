// Package scanner classifies raw NestedText lines and provides a
// single-line-lookahead cursor over them.
package scanner

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies one physical input line.
type Kind int

const (
	None Kind = iota // no line (end of input)
	Blank
	Comment
	ListItem
	StringItem
	KeyItem
	DictItem
	InlineDict
	InlineList
	Unrecognized
)

var kindNames = [...]string{
	None:         "none",
	Blank:        "blank",
	Comment:      "comment",
	ListItem:     "list item",
	StringItem:   "string item",
	KeyItem:      "key item",
	DictItem:     "dictionary item",
	InlineDict:   "inline dictionary",
	InlineList:   "inline list",
	Unrecognized: "unrecognized line",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Snapshot is a shallow copy of an item line, without a predecessor of its
// own. Lines reference the nearest preceding item line through a Snapshot so
// the chain never grows with document size.
type Snapshot struct {
	Text   string
	LineNo int
	Kind   Kind
	Depth  int
	Value  string
}

// Line is one classified physical line of input.
type Line struct {
	Text     string // raw text, newline stripped
	LineNo   int    // 0-based
	Kind     Kind
	Depth    int    // count of leading space characters
	Key      string // dict-item key, if any
	Value    string // extracted value fragment, if any
	KeyOff   int    // byte offset of Key within Text, -1 if none
	ValueOff int    // byte offset of Value within Text, -1 if none
	Prev     *Snapshot
	Err      error // set when the indentation itself is invalid
}

func (ln *Line) snapshot() *Snapshot {
	return &Snapshot{
		Text:   ln.Text,
		LineNo: ln.LineNo,
		Kind:   ln.Kind,
		Depth:  ln.Depth,
		Value:  ln.Value,
	}
}

// BadIndentError reports a non-space character found in leading whitespace.
type BadIndentError struct {
	Ch  rune
	Col int
}

func (e *BadIndentError) Error() string {
	return fmt.Sprintf("invalid character in indentation: %q", e.Ch)
}

// Classify converts one raw line of text into a Line record. prev is the
// nearest preceding item line; inlineOK controls whether bracket syntax is
// recognized.
func Classify(text string, lineNo int, prev *Snapshot, inlineOK bool) *Line {
	ln := &Line{Text: text, LineNo: lineNo, Prev: prev, KeyOff: -1, ValueOff: -1}

	switch stripped := strings.TrimSpace(text); {
	case stripped == "":
		ln.Kind = Blank
		return ln
	case stripped[0] == '#':
		ln.Kind = Comment
		ln.Value = strings.TrimSpace(stripped[1:])
		return ln
	}

	i := 0
	for i < len(text) {
		r, w := utf8.DecodeRuneInString(text[i:])
		if r == ' ' {
			ln.Depth++
			i += w
			continue
		}
		if unicode.IsSpace(r) || r == '\ufeff' {
			ln.Kind = Unrecognized
			ln.Err = &BadIndentError{Ch: r, Col: ln.Depth}
			return ln
		}
		break
	}
	content := text[i:]

	switch {
	case content == "-":
		ln.Kind = ListItem
		ln.ValueOff = ln.Depth + 1
	case strings.HasPrefix(content, "- "):
		ln.Kind = ListItem
		ln.Value = content[2:]
		ln.ValueOff = ln.Depth + 2
	case content == ">":
		ln.Kind = StringItem
		ln.ValueOff = ln.Depth + 1
	case strings.HasPrefix(content, "> "):
		ln.Kind = StringItem
		ln.Value = content[2:]
		ln.ValueOff = ln.Depth + 2
	case content == ":":
		ln.Kind = KeyItem
		ln.ValueOff = ln.Depth + 1
	case strings.HasPrefix(content, ": "):
		ln.Kind = KeyItem
		ln.Value = content[2:]
		ln.ValueOff = ln.Depth + 2
	case inlineOK && content[0] == '[':
		ln.Kind = InlineList
		ln.Value = content
		ln.ValueOff = ln.Depth
	case inlineOK && content[0] == '{':
		ln.Kind = InlineDict
		ln.Value = content
		ln.ValueOff = ln.Depth
	default:
		if k := keyColon(content); k > 0 {
			ln.Kind = DictItem
			ln.Key = strings.TrimRight(content[:k], " \t")
			ln.KeyOff = ln.Depth
			if k+1 < len(content) {
				ln.Value = content[k+2:]
				ln.ValueOff = ln.Depth + k + 2
			} else {
				ln.ValueOff = ln.Depth + k + 1
			}
		} else {
			ln.Kind = Unrecognized
		}
	}
	return ln
}

// keyColon returns the index of the first colon that terminates a dict-item
// key: a colon followed by a space or the end of the line, with at least one
// key character before it. Returns 0 if the content is not a dict item.
func keyColon(content string) int {
	for i := 1; i < len(content); i++ {
		if content[i] == ':' && (i == len(content)-1 || content[i+1] == ' ') {
			return i
		}
	}
	return 0
}

// Cursor wraps a line source as a single-line-lookahead pull sequence.
// Blank and comment lines are classified but never exposed as "next".
type Cursor struct {
	r        *bufio.Reader
	record   func(raw string)
	inlineOK bool
	next     *Line
	lineNo   int
	prev     *Snapshot
	eof      bool
	err      error
}

// New creates a cursor over r. record, when non-nil, is invoked with every
// raw line read, including blank and comment lines.
func New(r io.Reader, inlineOK bool, record func(string)) *Cursor {
	c := &Cursor{r: bufio.NewReader(r), record: record, inlineOK: inlineOK}
	c.advance()
	return c
}

func (c *Cursor) advance() {
	c.next = nil
	for !c.eof && c.err == nil {
		raw, err := c.r.ReadString('\n')
		if err == io.EOF {
			c.eof = true
			if raw == "" {
				return
			}
		} else if err != nil {
			c.err = err
			return
		}
		text := strings.TrimSuffix(raw, "\n")
		text = strings.TrimSuffix(text, "\r")
		if c.record != nil {
			c.record(text)
		}
		ln := Classify(text, c.lineNo, c.prev, c.inlineOK)
		c.lineNo++
		if ln.Kind == Blank || ln.Kind == Comment {
			continue
		}
		if ln.Kind != Unrecognized {
			c.prev = ln.snapshot()
		}
		c.next = ln
		return
	}
}

// HasNext reports whether another item line is available.
func (c *Cursor) HasNext() bool { return c.next != nil }

// Err returns any pending I/O error from the underlying source.
func (c *Cursor) Err() error { return c.err }

// TypeOfNext returns the kind of the buffered line, or None at end of input.
func (c *Cursor) TypeOfNext() Kind {
	if c.next == nil {
		return None
	}
	return c.next.Kind
}

// DepthOfNext returns the depth of the buffered line, or -1 at end of input.
func (c *Cursor) DepthOfNext() int {
	if c.next == nil {
		return -1
	}
	return c.next.Depth
}

// StillWithinLevel reports whether the next line is at or deeper than depth.
func (c *Cursor) StillWithinLevel(depth int) bool {
	return c.next != nil && c.next.Depth >= depth
}

// StillWithinString reports whether the next line continues a multi-line
// string at depth.
func (c *Cursor) StillWithinString(depth int) bool {
	return c.next != nil && c.next.Kind == StringItem && c.next.Depth >= depth
}

// StillWithinKey reports whether the next line continues a multi-line key at
// exactly depth.
func (c *Cursor) StillWithinKey(depth int) bool {
	return c.next != nil && c.next.Kind == KeyItem && c.next.Depth == depth
}

// GetNext consumes and returns the buffered line and advances the buffer.
func (c *Cursor) GetNext() (*Line, error) {
	if c.err != nil {
		return nil, c.err
	}
	ln := c.next
	c.advance()
	return ln, nil
}

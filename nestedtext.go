package nestedtext

import (
	"bytes"
	"io"
	"strings"

	"github.com/KenKundert/go-nestedtext/internal/scanner"
)

// Parse reads a document from data.
//
// The result is nil (empty document), a String, a List or a *Dict, depending
// on the document's top-level shape. Use Top to require a particular shape.
func Parse(data []byte, opts ...ParseOption) (Value, error) {
	return Load(bytes.NewReader(data), opts...)
}

// ParseString reads a document from s.
func ParseString(s string, opts ...ParseOption) (Value, error) {
	return Load(strings.NewReader(s), opts...)
}

// Load reads a document from r. Reading stops at the first syntax error;
// nothing after it is recovered.
func Load(r io.Reader, opts ...ParseOption) (Value, error) {
	o := defaultParseOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	var record func(string)
	if o.keymap != nil {
		o.keymap.reset()
		record = func(text string) {
			o.keymap.lines = append(o.keymap.lines, text)
		}
	}
	p := &parser{
		cur:      scanner.New(r, o.inline, record),
		o:        &o,
		km:       o.keymap,
		dupState: make(map[string]any),
	}
	return p.parse()
}

// Dump renders v as a document and returns it without a trailing newline.
//
// Mappings, sequences and strings render natively. Other values pass through
// registered converters, the Marshaler interface, and (unless StrictTypes is
// set) implicit coercion of bools and numbers into their usual string forms.
func Dump(v any, opts ...DumpOption) (string, error) {
	o := defaultDumpOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return "", err
		}
	}
	d := &dumper{o: &o}
	return d.dump(v)
}

// DumpTo renders v to w, followed by a single newline.
func DumpTo(w io.Writer, v any, opts ...DumpOption) error {
	s, err := Dump(v, opts...)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, s+"\n"); err != nil {
		return newIOError(err)
	}
	return nil
}

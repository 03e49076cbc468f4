/*
Package nestedtext reads and writes NestedText, a human-editable format for
structured data built from three constructs: dictionaries, lists and
multi-line strings. Structure is expressed purely through indentation and
one-character tags, and every leaf value is a string; interpreting those
strings (as numbers, dates, booleans) is left entirely to the application.

The package offers two directions:

1. Reading

Parse, ParseString and Load read a document into a Value: a String, a List
or a *Dict (which preserves insertion order). Functional options control the
accepted top-level shape, duplicate-key handling, key normalization and the
capture of source locations.

	doc, err := nestedtext.ParseString(src, nestedtext.Top(nestedtext.TopDict))
	if err != nil {
		// handle error
	}
	cfg := doc.(*nestedtext.Dict)

Parse errors are *Error values carrying the 0-based line and column of the
offending token along with the literal source line, so applications can show
annotated diagnostics:

	var perr *nestedtext.Error
	if errors.As(err, &perr) {
		fmt.Println(perr.Annotate())
	}

With CaptureKeymap, the locations of all keys survive the parse, letting a
validation layer report errors in terms of the user's own file:

	var km nestedtext.Keymap
	doc, err := nestedtext.ParseString(src, nestedtext.CaptureKeymap(&km))
	if loc, ok := km.Lookup("server", "port"); ok {
		fmt.Println(loc.AnnotateValue())
	}

2. Writing

Dump and DumpTo render native containers (Value trees, maps, slices) and,
through converters and the Marshaler interface, arbitrary Go values. Output
is block-form by default; Width enables the compact single-line syntax for
small containers.

	out, err := nestedtext.Dump(doc, nestedtext.Width(72), nestedtext.SortKeys())

A document produced by Dump always reads back to equal data, including keys
and values with embedded newlines, leading whitespace or tag-like prefixes,
which are written in escaped multi-line forms as needed.
*/
package nestedtext

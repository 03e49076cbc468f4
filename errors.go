package nestedtext

import (
	"fmt"
	"strings"
)

// Error is the error type returned by Parse, Load, Dump and DumpTo.
//
// Parse errors carry the 0-based Line and Col of the offending token along
// with the literal text of the line; dump errors carry the key path of the
// offending value in Culprit instead. One error aborts the whole call; the
// library never recovers past a syntax error.
type Error struct {
	Msg     string
	Line    int    // 0-based line number, -1 when not applicable
	Col     int    // 0-based byte offset within the line, -1 when not applicable
	Source  string // literal text of the offending line
	Prev    int    // 0-based line number of the nearest preceding item line, -1 if none
	PrevSrc string // literal text of that line
	Culprit Path   // offending key path, dump errors only
	err     error
}

func (e *Error) Error() string {
	switch {
	case len(e.Culprit) > 0:
		return fmt.Sprintf("nestedtext: %s: %s", e.Culprit, e.Msg)
	case e.Line >= 0:
		return fmt.Sprintf("nestedtext: line %d, column %d: %s", e.Line+1, e.Col+1, e.Msg)
	default:
		return "nestedtext: " + e.Msg
	}
}

// Unwrap returns an underlying error, if any (an I/O failure or an error
// returned by a caller-supplied callback).
func (e *Error) Unwrap() error { return e.err }

// Annotate renders the offending source line followed by a caret marking the
// error column. It returns an empty string when the error has no source line.
func (e *Error) Annotate() string {
	if e.Line < 0 {
		return ""
	}
	return caretLine(e.Source, e.Col)
}

func caretLine(text string, col int) string {
	if col < 0 {
		col = 0
	}
	return text + "\n" + strings.Repeat(" ", col) + "^"
}

func newParseError(msg string, line, col int, source string) *Error {
	return &Error{Msg: msg, Line: line, Col: col, Source: source, Prev: -1}
}

func newDumpError(msg string, culprit Path) *Error {
	return &Error{Msg: msg, Line: -1, Col: -1, Prev: -1, Culprit: culprit}
}

func newIOError(err error) *Error {
	return &Error{Msg: "I/O error: " + err.Error(), Line: -1, Col: -1, Prev: -1, err: err}
}

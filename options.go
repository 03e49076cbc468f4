package nestedtext

import (
	"fmt"
	"reflect"
)

// TopShape selects the accepted top-level shape of a document and the result
// for an empty document.
type TopShape int

const (
	// TopAny accepts any top-level shape; an empty document parses to nil.
	TopAny TopShape = iota
	// TopDict requires a dictionary; an empty document parses to an empty Dict.
	TopDict
	// TopList requires a list; an empty document parses to an empty List.
	TopList
	// TopString requires a string; an empty document parses to "".
	TopString
)

// DupPolicy selects how a repeated key within one mapping is resolved.
type DupPolicy int

const (
	// ErrorOnDup reports a duplicate-key error. This is the default.
	ErrorOnDup DupPolicy = iota
	// IgnoreDup keeps the first entry and drops later ones.
	IgnoreDup
	// ReplaceDup keeps the last entry, in the first entry's position.
	ReplaceDup

	callbackDup
)

// DuplicateKeyFunc resolves one key collision. It receives the colliding
// (normalized) key and a mutable state map shared across the whole parse
// call, and returns the replacement key. Returning ok=false drops the new
// entry; returning an error reports a duplicate-key parse error.
type DuplicateKeyFunc func(key string, state map[string]any) (newKey string, ok bool, err error)

// NormalizeKeyFunc rewrites a key before it is inserted into its mapping.
// parent is the key path of the mapping under construction.
type NormalizeKeyFunc func(key string, parent Path) string

// ParseOption configures Parse, ParseString and Load.
type ParseOption func(*parseOptions) error

type parseOptions struct {
	top       TopShape
	onDup     DupPolicy
	dupFn     DuplicateKeyFunc
	normalize NormalizeKeyFunc
	keymap    *Keymap
	inline    bool
}

func defaultParseOptions() parseOptions {
	return parseOptions{inline: true}
}

func (o *parseOptions) normalizeKey(key string, parent Path) string {
	if o.normalize == nil {
		return key
	}
	return o.normalize(key, parent)
}

// Top constrains the accepted top-level shape of the document.
func Top(shape TopShape) ParseOption {
	return func(o *parseOptions) error {
		if shape < TopAny || shape > TopString {
			return fmt.Errorf("nestedtext: invalid top shape %d", shape)
		}
		o.top = shape
		return nil
	}
}

// OnDuplicate sets the duplicate-key policy.
func OnDuplicate(p DupPolicy) ParseOption {
	return func(o *parseOptions) error {
		if p < ErrorOnDup || p > ReplaceDup {
			return fmt.Errorf("nestedtext: invalid duplicate-key policy %d", p)
		}
		o.onDup = p
		return nil
	}
}

// DuplicateKeys resolves key collisions through fn. The state map passed to
// fn is scoped to one parse call.
func DuplicateKeys(fn DuplicateKeyFunc) ParseOption {
	return func(o *parseOptions) error {
		if fn == nil {
			return fmt.Errorf("nestedtext: duplicate key function must not be nil")
		}
		o.onDup = callbackDup
		o.dupFn = fn
		return nil
	}
}

// NormalizeKeys passes every key through fn before insertion.
func NormalizeKeys(fn NormalizeKeyFunc) ParseOption {
	return func(o *parseOptions) error {
		if fn == nil {
			return fmt.Errorf("nestedtext: normalize function must not be nil")
		}
		o.normalize = fn
		return nil
	}
}

// CaptureKeymap populates km with the source location of every key path
// while parsing. Any previous content of km is discarded.
func CaptureKeymap(km *Keymap) ParseOption {
	return func(o *parseOptions) error {
		if km == nil {
			return fmt.Errorf("nestedtext: keymap must not be nil")
		}
		o.keymap = km
		return nil
	}
}

// WithoutInline disables recognition of the inline `{...}`/`[...]` syntax.
func WithoutInline() ParseOption {
	return func(o *parseOptions) error {
		o.inline = false
		return nil
	}
}

// ConvertFunc rewrites a value into something the writer can render.
type ConvertFunc func(v any) (any, error)

// MapKeysFunc substitutes an output spelling for a key. The substitution is
// purely cosmetic; the value stays associated with the original key.
type MapKeysFunc func(key string, parent Path) string

// KeyEntry describes one mapping entry during output sorting.
type KeyEntry struct {
	Key         string // key after output mapping
	OriginalKey string // key as present in the data
	Rendered    string // rendered entry text
}

// KeySortFunc compares two mapping entries; negative means a sorts first.
type KeySortFunc func(a, b KeyEntry, parent Path) int

// Marshaler is the interface implemented by types that can convert
// themselves into a value the writer understands. An explicit Converter
// registration for the concrete type takes priority.
type Marshaler interface {
	MarshalNestedText() (any, error)
}

// DumpOption configures Dump and DumpTo.
type DumpOption func(*dumpOptions) error

type dumpOptions struct {
	width       int
	inlineLevel int
	indent      int
	sortKeys    bool
	sortFn      KeySortFunc
	converters  map[reflect.Type]ConvertFunc
	defaultFn   ConvertFunc
	strict      bool
	mapKeys     MapKeysFunc
	restore     *Keymap
	inline      bool
}

func defaultDumpOptions() dumpOptions {
	return dumpOptions{indent: 4, inline: true}
}

// Width sets the maximum rendered width of an inline container. Zero, the
// default, disables inline rendering of non-empty containers.
func Width(n int) DumpOption {
	return func(o *dumpOptions) error {
		if n < 0 {
			return fmt.Errorf("nestedtext: width cannot be negative")
		}
		o.width = n
		return nil
	}
}

// InlineLevel sets the minimum nesting depth at which inline rendering is
// attempted. The default of zero allows inlining at any depth.
func InlineLevel(n int) DumpOption {
	return func(o *dumpOptions) error {
		if n < 0 {
			return fmt.Errorf("nestedtext: inline level cannot be negative")
		}
		o.inlineLevel = n
		return nil
	}
}

// Indent sets the number of spaces per nesting level. The default is 4.
func Indent(n int) DumpOption {
	return func(o *dumpOptions) error {
		if n < 1 {
			return fmt.Errorf("nestedtext: indent must be at least 1")
		}
		o.indent = n
		return nil
	}
}

// SortKeys orders mapping entries lexicographically. Sequences are never
// reordered.
func SortKeys() DumpOption {
	return func(o *dumpOptions) error {
		o.sortKeys = true
		return nil
	}
}

// SortKeysFunc orders mapping entries with a caller comparator.
func SortKeysFunc(fn KeySortFunc) DumpOption {
	return func(o *dumpOptions) error {
		if fn == nil {
			return fmt.Errorf("nestedtext: sort function must not be nil")
		}
		o.sortFn = fn
		return nil
	}
}

// Converter registers fn for the concrete type of proto. A nil fn marks the
// type as unsupported, forcing an error when a value of that type is dumped.
func Converter(proto any, fn ConvertFunc) DumpOption {
	return func(o *dumpOptions) error {
		if proto == nil {
			return fmt.Errorf("nestedtext: converter prototype must not be nil")
		}
		if o.converters == nil {
			o.converters = make(map[reflect.Type]ConvertFunc)
		}
		o.converters[reflect.TypeOf(proto)] = fn
		return nil
	}
}

// Default registers a catch-all converter tried for values of otherwise
// unsupported types.
func Default(fn ConvertFunc) DumpOption {
	return func(o *dumpOptions) error {
		if fn == nil {
			return fmt.Errorf("nestedtext: default converter must not be nil")
		}
		o.defaultFn = fn
		return nil
	}
}

// StrictTypes disables all implicit coercions: only mappings, sequences and
// strings are rendered, and everything else is an error.
func StrictTypes() DumpOption {
	return func(o *dumpOptions) error {
		o.strict = true
		return nil
	}
}

// MapKeys substitutes output key spellings through fn.
func MapKeys(fn MapKeysFunc) DumpOption {
	return func(o *dumpOptions) error {
		if fn == nil {
			return fmt.Errorf("nestedtext: map keys function must not be nil")
		}
		o.mapKeys = fn
		return nil
	}
}

// RestoreKeys substitutes each key's original source spelling as recorded in
// a keymap captured by a previous parse.
func RestoreKeys(km *Keymap) DumpOption {
	return func(o *dumpOptions) error {
		if km == nil {
			return fmt.Errorf("nestedtext: keymap must not be nil")
		}
		o.restore = km
		return nil
	}
}

// NoInline disables inline rendering of non-empty containers. Empty
// containers still render as {} and [].
func NoInline() DumpOption {
	return func(o *dumpOptions) error {
		o.inline = false
		return nil
	}
}

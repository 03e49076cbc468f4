package nestedtext

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// maxConversions bounds how many times converters may rewrite a single value
// before the writer gives up.
const maxConversions = 100

// dumper holds the state of one dump call: the options and the identity
// stack used for cycle detection. Nothing here outlives the call.
type dumper struct {
	o         *dumpOptions
	ancestors []uintptr
}

// rendered is the output of one render step. scalar marks a single-line
// string that may be embedded on its item's own line; everything else is a
// block placed on the following, deeper lines.
type rendered struct {
	text   string
	scalar bool
}

func (d *dumper) dump(v any) (string, error) {
	r, err := d.render(v, Path{}, 0, true)
	if err != nil {
		return "", err
	}
	return r.text, nil
}

// render produces the text for one value. top forces the leader form for a
// top-level string even when it has a single line.
func (d *dumper) render(v any, path Path, level int, top bool) (rendered, error) {
	rv, err := d.resolve(v, path)
	if err != nil {
		return rendered{}, err
	}

	switch x := rv.(type) {
	case String:
		return d.renderStr(string(x), top), nil
	case string:
		return d.renderStr(x, top), nil
	case List:
		return d.renderSeq(listItems(x), containerID(x), path, level)
	case *Dict:
		if x == nil {
			return d.renderFallback(rv, path, level, top)
		}
		return d.renderMap(dictEntries(x), containerID(x), path, level)
	}

	val := reflect.ValueOf(rv)
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return d.renderFallback(rv, path, level, top)
		}
		val = val.Elem()
	}
	switch val.Kind() {
	case reflect.String:
		return d.renderStr(val.String(), top), nil
	case reflect.Slice, reflect.Array:
		items := make([]any, val.Len())
		for i := range items {
			items[i] = val.Index(i).Interface()
		}
		var id uintptr
		if val.Kind() == reflect.Slice && val.Len() > 0 {
			id = val.Pointer()
		}
		return d.renderSeq(items, id, path, level)
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return rendered{}, newDumpError(
				fmt.Sprintf("non-string key of type %s", val.Type().Key()), slices.Clone(path))
		}
		entries := mapEntries(val)
		var id uintptr
		if val.Len() > 0 {
			id = val.Pointer()
		}
		return d.renderMap(entries, id, path, level)
	case reflect.Bool:
		if d.o.strict {
			return d.renderFallback(rv, path, level, top)
		}
		return d.renderStr(strconv.FormatBool(val.Bool()), top), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if d.o.strict {
			return d.renderFallback(rv, path, level, top)
		}
		return d.renderStr(strconv.FormatInt(val.Int(), 10), top), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if d.o.strict {
			return d.renderFallback(rv, path, level, top)
		}
		return d.renderStr(strconv.FormatUint(val.Uint(), 10), top), nil
	case reflect.Float32, reflect.Float64:
		if d.o.strict {
			return d.renderFallback(rv, path, level, top)
		}
		return d.renderStr(formatFloat(val), top), nil
	default:
		return d.renderFallback(rv, path, level, top)
	}
}

func formatFloat(val reflect.Value) string {
	bits := 64
	if val.Kind() == reflect.Float32 {
		bits = 32
	}
	return strconv.FormatFloat(val.Float(), 'g', -1, bits)
}

// renderFallback is the last resort for values no builtin renderer accepts:
// the catch-all default converter, unless strict mode disables it.
func (d *dumper) renderFallback(v any, path Path, level int, top bool) (rendered, error) {
	if !d.o.strict && d.o.defaultFn != nil {
		nv, err := d.o.defaultFn(v)
		if err != nil {
			e := newDumpError("default converter failed: "+err.Error(), slices.Clone(path))
			e.err = err
			return rendered{}, e
		}
		if reflect.TypeOf(nv) != reflect.TypeOf(v) {
			return d.render(nv, path, level, top)
		}
	}
	rv := reflect.ValueOf(v)
	switch {
	case v == nil, !rv.IsValid():
		return rendered{}, newDumpError("unsupported value: nil", slices.Clone(path))
	case rv.Kind() == reflect.Pointer && rv.IsNil():
		return rendered{}, newDumpError(
			fmt.Sprintf("unsupported value: nil %T", v), slices.Clone(path))
	}
	return rendered{}, newDumpError(
		fmt.Sprintf("unsupported type: %T", v), slices.Clone(path))
}

// resolve applies converters until the value settles: an explicit converter
// for the concrete type wins, then the value's own Marshaler.
func (d *dumper) resolve(v any, path Path) (any, error) {
	for n := 0; n < maxConversions; n++ {
		if v != nil {
			if fn, registered := d.o.converters[reflect.TypeOf(v)]; registered {
				if fn == nil {
					return nil, newDumpError(
						fmt.Sprintf("unsupported type: %T", v), slices.Clone(path))
				}
				nv, err := fn(v)
				if err != nil {
					e := newDumpError("converter failed: "+err.Error(), slices.Clone(path))
					e.err = err
					return nil, e
				}
				v = nv
				continue
			}
		}
		if m, ok := v.(Marshaler); ok {
			nv, err := m.MarshalNestedText()
			if err != nil {
				e := newDumpError("MarshalNestedText failed: "+err.Error(), slices.Clone(path))
				e.err = err
				return nil, e
			}
			v = nv
			continue
		}
		return v, nil
	}
	return nil, newDumpError("conversion did not terminate", slices.Clone(path))
}

func (d *dumper) renderStr(s string, top bool) rendered {
	s = normalizeNewlines(s)
	if !top && !strings.Contains(s, "\n") {
		return rendered{text: s, scalar: true}
	}
	return rendered{text: leaderForm(s)}
}

// leaderForm renders a string with a `> ` leader on every line; blank lines
// get a bare `>` so no trailing whitespace is emitted.
func leaderForm(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		if ln == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + ln
		}
	}
	return strings.Join(lines, "\n")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func (d *dumper) renderSeq(items []any, id uintptr, path Path, level int) (rendered, error) {
	if len(items) == 0 {
		return rendered{text: "[]"}, nil
	}
	if err := d.enter(id, path); err != nil {
		return rendered{}, err
	}
	defer d.leave(id)

	if d.admitInline(level, len(items), 3) {
		if s, ok := d.inlineSeq(items, path); ok && len(s) <= d.o.width {
			return rendered{text: s}, nil
		}
	}

	var b strings.Builder
	for i, it := range items {
		r, err := d.render(it, append(slices.Clone(path), i), level+1, false)
		if err != nil {
			return rendered{}, err
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case r.scalar && r.text == "":
			b.WriteByte('-')
		case r.scalar:
			b.WriteString("- ")
			b.WriteString(r.text)
		default:
			b.WriteString("-\n")
			b.WriteString(indentBlock(r.text, d.o.indent))
		}
	}
	return rendered{text: b.String()}, nil
}

// mapEntry is one key/value pair queued for rendering.
type mapEntry struct {
	key string
	val any
}

func (d *dumper) renderMap(entries []mapEntry, id uintptr, path Path, level int) (rendered, error) {
	if len(entries) == 0 {
		return rendered{text: "{}"}, nil
	}
	if err := d.enter(id, path); err != nil {
		return rendered{}, err
	}
	defer d.leave(id)

	type outEntry struct {
		mapEntry
		mapped string
	}
	out := make([]outEntry, len(entries))
	for i, e := range entries {
		out[i] = outEntry{mapEntry: e, mapped: d.outputKey(e.key, path)}
	}
	if d.o.sortFn == nil && d.o.sortKeys {
		sort.SliceStable(out, func(i, j int) bool { return out[i].mapped < out[j].mapped })
	}

	if d.admitInline(level, len(out), 5) {
		parts := make([]KeyEntry, 0, len(out))
		ok := true
		for _, e := range out {
			if !inlineSafe(e.mapped, true) {
				ok = false
				break
			}
			vs, vok := d.inlineValue(e.val, append(slices.Clone(path), e.key), true)
			if !vok {
				ok = false
				break
			}
			parts = append(parts, KeyEntry{Key: e.mapped, OriginalKey: e.key, Rendered: e.mapped + ": " + vs})
		}
		if ok {
			if d.o.sortFn != nil {
				sort.SliceStable(parts, func(i, j int) bool {
					return d.o.sortFn(parts[i], parts[j], path) < 0
				})
			}
			frags := make([]string, len(parts))
			for i, p := range parts {
				frags[i] = p.Rendered
			}
			s := "{" + strings.Join(frags, ", ") + "}"
			if len(s) <= d.o.width {
				return rendered{text: s}, nil
			}
		}
	}

	texts := make([]KeyEntry, len(out))
	for i, e := range out {
		text, err := d.renderEntry(e.mapped, e.key, e.val, path, level)
		if err != nil {
			return rendered{}, err
		}
		texts[i] = KeyEntry{Key: e.mapped, OriginalKey: e.key, Rendered: text}
	}
	if d.o.sortFn != nil {
		sort.SliceStable(texts, func(i, j int) bool {
			return d.o.sortFn(texts[i], texts[j], path) < 0
		})
	}
	lines := make([]string, len(texts))
	for i, t := range texts {
		lines[i] = t.Rendered
	}
	return rendered{text: strings.Join(lines, "\n")}, nil
}

// renderEntry renders one mapping entry in block form, choosing between the
// single-line `key: value` shape and the multi-line key form.
func (d *dumper) renderEntry(mapped, orig string, val any, path Path, level int) (string, error) {
	childPath := append(slices.Clone(path), orig)
	// A carriage return cannot survive the multi-line key form; writing the
	// key would silently change it.
	if strings.Contains(mapped, "\r") {
		return "", newDumpError(fmt.Sprintf("key cannot be represented: %q", mapped), childPath)
	}
	r, err := d.render(val, childPath, level+1, false)
	if err != nil {
		return "", err
	}

	if needsKeyEscape(mapped, d.o.inline) {
		var b strings.Builder
		for _, frag := range strings.Split(normalizeNewlines(mapped), "\n") {
			if frag == "" {
				b.WriteString(":\n")
			} else {
				b.WriteString(": ")
				b.WriteString(frag)
				b.WriteByte('\n')
			}
		}
		// An unconverted string value is forced into leader form so the
		// reparse cannot mistake it for a continuation of the key.
		text := r.text
		if r.scalar {
			text = leaderForm(r.text)
		}
		b.WriteString(indentBlock(text, d.o.indent))
		return b.String(), nil
	}

	switch {
	case r.scalar && r.text == "":
		return mapped + ":", nil
	case r.scalar:
		return mapped + ": " + r.text, nil
	default:
		return mapped + ":\n" + indentBlock(r.text, d.o.indent), nil
	}
}

// outputKey applies the cosmetic key substitution: a captured keymap's
// original spelling, or the caller's mapping function.
func (d *dumper) outputKey(key string, parent Path) string {
	if d.o.restore != nil {
		if loc, ok := d.o.restore.Lookup(append(slices.Clone(parent), key)...); ok {
			return loc.OriginalKey
		}
		return key
	}
	if d.o.mapKeys != nil {
		return d.o.mapKeys(key, parent)
	}
	return key
}

// admitInline is the cheap admission check run before attempting an inline
// rendering; divisor is 5 for mappings and 3 for sequences.
func (d *dumper) admitInline(level, count, divisor int) bool {
	if !d.o.inline || level < d.o.inlineLevel || d.o.width <= 0 {
		return false
	}
	return count <= d.o.width/divisor
}

// inlineSeq attempts the single-line form of a sequence. A final element
// that renders empty yields the `, ]`-suffixed form so the round trip is
// exact.
func (d *dumper) inlineSeq(items []any, path Path) (string, bool) {
	parts := make([]string, 0, len(items))
	for i, it := range items {
		s, ok := d.inlineValue(it, append(slices.Clone(path), i), false)
		if !ok {
			return "", false
		}
		parts = append(parts, s)
	}
	if len(parts) == 1 && parts[0] == "" {
		return "[ ]", true
	}
	return "[" + strings.Join(parts, ", ") + "]", true
}

func (d *dumper) inlineMap(entries []mapEntry, path Path) (string, bool) {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		mapped := d.outputKey(e.key, path)
		if !inlineSafe(mapped, true) {
			return "", false
		}
		vs, ok := d.inlineValue(e.val, append(slices.Clone(path), e.key), true)
		if !ok {
			return "", false
		}
		parts = append(parts, mapped+": "+vs)
	}
	return "{" + strings.Join(parts, ", ") + "}", true
}

// inlineValue renders one value in inline form, or reports that the value is
// not suitable for inlining. Hard conversion failures surface later, on the
// block path.
func (d *dumper) inlineValue(v any, path Path, inDict bool) (string, bool) {
	rv, err := d.resolve(v, path)
	if err != nil {
		return "", false
	}

	switch x := rv.(type) {
	case String:
		return inlineStr(string(x), inDict)
	case string:
		return inlineStr(x, inDict)
	case List:
		return d.inlineNested(listItems(x), nil, containerID(x), path, false)
	case *Dict:
		if x == nil {
			return "", false
		}
		return d.inlineNested(nil, dictEntries(x), containerID(x), path, true)
	}

	val := reflect.ValueOf(rv)
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return "", false
		}
		val = val.Elem()
	}
	switch val.Kind() {
	case reflect.String:
		return inlineStr(val.String(), inDict)
	case reflect.Slice, reflect.Array:
		items := make([]any, val.Len())
		for i := range items {
			items[i] = val.Index(i).Interface()
		}
		var id uintptr
		if val.Kind() == reflect.Slice && val.Len() > 0 {
			id = val.Pointer()
		}
		return d.inlineNested(items, nil, id, path, false)
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			return "", false
		}
		var id uintptr
		if val.Len() > 0 {
			id = val.Pointer()
		}
		return d.inlineNested(nil, mapEntries(val), id, path, true)
	case reflect.Bool:
		if d.o.strict {
			return "", false
		}
		return strconv.FormatBool(val.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if d.o.strict {
			return "", false
		}
		return strconv.FormatInt(val.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if d.o.strict {
			return "", false
		}
		return strconv.FormatUint(val.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		if d.o.strict {
			return "", false
		}
		return formatFloat(val), true
	default:
		return "", false
	}
}

// inlineNested renders a nested container inside an inline attempt, keeping
// the cycle-detection stack honest so a cyclic graph falls back to the block
// path where it is reported properly.
func (d *dumper) inlineNested(items []any, entries []mapEntry, id uintptr, path Path, isMap bool) (string, bool) {
	if id != 0 && slices.Contains(d.ancestors, id) {
		return "", false
	}
	if id != 0 {
		d.ancestors = append(d.ancestors, id)
		defer func() { d.ancestors = d.ancestors[:len(d.ancestors)-1] }()
	}
	if isMap {
		if len(entries) == 0 {
			return "{}", true
		}
		return d.inlineMap(entries, path)
	}
	if len(items) == 0 {
		return "[]", true
	}
	return d.inlineSeq(items, path)
}

// inlineStr reports whether s can appear verbatim inside an inline container
// in the given context.
func inlineStr(s string, inDict bool) (string, bool) {
	if !inlineSafe(s, inDict) {
		return "", false
	}
	return s, true
}

func inlineSafe(s string, inDict bool) bool {
	stops := inlineListStops
	if inDict {
		stops = inlineDictStops
	}
	if strings.ContainsAny(s, stops+"\n\r") {
		return false
	}
	return s == strings.Trim(s, " \t")
}

// needsKeyEscape reports whether a key cannot be written on a dict-item line
// and must use the `: `-prefixed multi-line form instead.
func needsKeyEscape(key string, inlineOK bool) bool {
	switch {
	case key == "":
		return true
	case strings.ContainsAny(key, "\n\r"):
		return true
	case leadingOrTrailingSpace(key):
		return true
	case strings.HasPrefix(key, "#"):
		return true
	case inlineOK && (key[0] == '[' || key[0] == '{'):
		return true
	case strings.HasPrefix(key, "- "), strings.HasPrefix(key, "> "), strings.HasPrefix(key, ": "):
		return true
	case strings.Contains(key, ": "):
		return true
	}
	return false
}

func leadingOrTrailingSpace(s string) bool {
	first, last := firstLastRune(s)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}

func firstLastRune(s string) (rune, rune) {
	var first, last rune
	for i, r := range s {
		if i == 0 {
			first = r
		}
		last = r
	}
	return first, last
}

// enter pushes a container identity, failing when it is already on the
// ancestor stack.
func (d *dumper) enter(id uintptr, path Path) error {
	if id == 0 {
		return nil
	}
	if slices.Contains(d.ancestors, id) {
		return newDumpError("circular reference", slices.Clone(path))
	}
	d.ancestors = append(d.ancestors, id)
	return nil
}

func (d *dumper) leave(id uintptr) {
	if id != 0 {
		d.ancestors = d.ancestors[:len(d.ancestors)-1]
	}
}

// indentBlock prefixes every non-blank line of s with n spaces. Blank lines
// are left unpadded so no trailing whitespace is encoded.
func indentBlock(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		if ln != "" {
			lines[i] = pad + ln
		}
	}
	return strings.Join(lines, "\n")
}

func containerID(v any) uintptr {
	switch x := v.(type) {
	case *Dict:
		if x == nil || x.Len() == 0 {
			return 0
		}
		return reflect.ValueOf(x).Pointer()
	case List:
		if len(x) == 0 {
			return 0
		}
		return reflect.ValueOf(x).Pointer()
	}
	return 0
}

func listItems(l List) []any {
	items := make([]any, len(l))
	for i, v := range l {
		items[i] = v
	}
	return items
}

func dictEntries(d *Dict) []mapEntry {
	entries := make([]mapEntry, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		k, v := d.At(i)
		entries = append(entries, mapEntry{key: k, val: v})
	}
	return entries
}

// mapEntries collects a plain Go map's entries in lexicographic key order,
// since the map itself has none.
func mapEntries(val reflect.Value) []mapEntry {
	keys := val.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	entries := make([]mapEntry, len(keys))
	for i, k := range keys {
		entries[i] = mapEntry{key: k.String(), val: val.MapIndex(k).Interface()}
	}
	return entries
}

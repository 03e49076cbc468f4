package nestedtext

// Value is the result of parsing a NestedText document. It is a closed union
// of exactly three shapes: String, List, and *Dict. Callers impose their own
// typing on scalar strings; the format itself has no numbers or booleans.
type Value interface {
	// valueNode restricts implementations to this package.
	valueNode()
}

// String is a scalar string value.
type String string

func (String) valueNode() {}

// List is an ordered sequence of values.
type List []Value

func (List) valueNode() {}

// Dict is a mapping from string keys to values that preserves insertion
// order. The zero value is not usable; construct with NewDict.
type Dict struct {
	keys  []string
	items map[string]Value
}

func (*Dict) valueNode() {}

// NewDict returns an empty ordered mapping.
func NewDict() *Dict {
	return &Dict{items: make(map[string]Value)}
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.items[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool {
	_, ok := d.items[key]
	return ok
}

// Set stores value under key. A new key is appended; an existing key keeps
// its position and has its value replaced.
func (d *Dict) Set(key string, value Value) {
	if _, ok := d.items[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.items[key] = value
}

// Delete removes key, preserving the order of the remaining entries.
func (d *Dict) Delete(key string) {
	if _, ok := d.items[key]; !ok {
		return
	}
	delete(d.items, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// At returns the i'th entry in insertion order.
func (d *Dict) At(i int) (string, Value) {
	k := d.keys[i]
	return k, d.items[k]
}

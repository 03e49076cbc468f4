package nestedtext_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	nestedtext "github.com/KenKundert/go-nestedtext"
	"github.com/stretchr/testify/require"
)

func TestDump_Strings(t *testing.T) {
	// A top-level string always uses the leader form.
	require.Equal(t, "> hello", mustDump(t, nestedtext.String("hello")))
	require.Equal(t, "> hello", mustDump(t, "hello"))
	require.Equal(t, ">", mustDump(t, nestedtext.String("")))
	require.Equal(t, "> a\n> b", mustDump(t, nestedtext.String("a\nb")))
	require.Equal(t, "> a\n>\n> b", mustDump(t, nestedtext.String("a\n\nb")))

	// Carriage returns are normalized away.
	require.Equal(t, "> a\n> b\n> c", mustDump(t, nestedtext.String("a\r\nb\rc")))
}

func TestDump_Containers(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"flat dict", dict("a", nestedtext.String("1"), "b", nestedtext.String("2")), "a: 1\nb: 2"},
		{"flat list", list("a", "", "b"), "- a\n-\n- b"},
		{"empty dict", nestedtext.NewDict(), "{}"},
		{"empty list", nestedtext.List{}, "[]"},
		{"empty string value", dict("k", nestedtext.String("")), "k:"},
		{"nested dict", dict("o", dict("i", nestedtext.String("v"))), "o:\n    i: v"},
		{"list value", dict("k", list("a", "b")), "k:\n    - a\n    - b"},
		{"dict in list", nestedtext.List{dict("a", nestedtext.String("1"))}, "-\n    a: 1"},
		{"list in list", nestedtext.List{list("x")}, "-\n    - x"},
		{"multiline string value", dict("s", nestedtext.String("l1\nl2")), "s:\n    > l1\n    > l2"},
		{"multiline string in list", nestedtext.List{nestedtext.String("l1\nl2")}, "-\n    > l1\n    > l2"},
		{"empty containers as values", dict("d", dict(), "l", nestedtext.List{}), "d:\n    {}\nl:\n    []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, mustDump(t, tt.v))
		})
	}
}

func TestDump_Indent(t *testing.T) {
	v := dict("o", dict("i", nestedtext.String("v")))
	require.Equal(t, "o:\n  i: v", mustDump(t, v, nestedtext.Indent(2)))

	_, err := nestedtext.Dump(v, nestedtext.Indent(0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "indent must be at least 1")
}

func TestDump_KeyEscaping(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"comment-like", "#key", ": #key\n    > v"},
		{"empty", "", ":\n    > v"},
		{"leading space", " pad", ":  pad\n    > v"},
		{"trailing space", "pad ", ": pad \n    > v"},
		{"list tag", "- x", ": - x\n    > v"},
		{"string tag", "> x", ": > x\n    > v"},
		{"key tag", ": x", ": : x\n    > v"},
		{"embedded colon space", "a: b", ": a: b\n    > v"},
		{"bracket", "[x]", ": [x]\n    > v"},
		{"brace", "{x}", ": {x}\n    > v"},
		{"multiline", "multi\nline", ": multi\n: line\n    > v"},
		{"leading newline", "\nx", ":\n: x\n    > v"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustDump(t, dict(tt.key, nestedtext.String("v")))
			require.Equal(t, tt.want, out)

			got, err := nestedtext.ParseString(out)
			require.NoError(t, err)
			require.Equal(t, nestedtext.Value(dict(tt.key, nestedtext.String("v"))), got)
		})
	}
}

func TestDump_KeysNotNeedingEscape(t *testing.T) {
	for _, key := range []string{"plain", "a:b", "-", ">", "a#b", "x [y]"} {
		out := mustDump(t, dict(key, nestedtext.String("v")))
		require.Equal(t, key+": v", out)
		got, err := nestedtext.ParseString(out)
		require.NoError(t, err)
		require.Equal(t, nestedtext.Value(dict(key, nestedtext.String("v"))), got, "key %q", key)
	}
}

func TestDump_UnrepresentableKey(t *testing.T) {
	_, err := nestedtext.Dump(dict("a\rb", nestedtext.String("v")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "key cannot be represented")
}

func TestDump_EscapedKeyWithContainerValue(t *testing.T) {
	out := mustDump(t, dict("#k", list("a")))
	require.Equal(t, ": #k\n    - a", out)
}

func TestDump_Inline(t *testing.T) {
	t.Run("dict within width", func(t *testing.T) {
		v := dict("a", nestedtext.String("1"), "b", nestedtext.String("2"))
		require.Equal(t, "{a: 1, b: 2}", mustDump(t, v, nestedtext.Width(40)))
	})

	t.Run("list within width", func(t *testing.T) {
		require.Equal(t, "[a, b, c]", mustDump(t, list("a", "b", "c"), nestedtext.Width(40)))
	})

	t.Run("width zero disables inline", func(t *testing.T) {
		require.Equal(t, "- a\n- b", mustDump(t, list("a", "b")))
	})

	t.Run("too wide falls back to block", func(t *testing.T) {
		v := dict("a", nestedtext.String("1"), "b", nestedtext.String("2"))
		require.Equal(t, "a: 1\nb: 2", mustDump(t, v, nestedtext.Width(10)))
	})

	t.Run("too many items skips the attempt", func(t *testing.T) {
		long := make(nestedtext.List, 10)
		for i := range long {
			long[i] = nestedtext.String("x")
		}
		out := mustDump(t, long, nestedtext.Width(12))
		require.True(t, strings.HasPrefix(out, "- x\n"), "got %q", out)
	})

	t.Run("nested inline", func(t *testing.T) {
		v := dict("a", list("1", "2"), "b", dict())
		require.Equal(t, "{a: [1, 2], b: {}}", mustDump(t, v, nestedtext.Width(40)))
	})

	t.Run("single empty string", func(t *testing.T) {
		require.Equal(t, "[ ]", mustDump(t, list(""), nestedtext.Width(10)))
	})

	t.Run("trailing empty string", func(t *testing.T) {
		require.Equal(t, "[a, b, ]", mustDump(t, list("a", "b", ""), nestedtext.Width(20)))
	})

	t.Run("value with comma forces block", func(t *testing.T) {
		out := mustDump(t, list("a, b"), nestedtext.Width(40))
		require.Equal(t, "- a, b", out)
	})

	t.Run("value with newline forces block", func(t *testing.T) {
		out := mustDump(t, list("a\nb"), nestedtext.Width(40))
		require.Equal(t, "-\n    > a\n    > b", out)
	})

	t.Run("colon allowed in list but not dict", func(t *testing.T) {
		require.Equal(t, "[12:30]", mustDump(t, list("12:30"), nestedtext.Width(40)))
		v := dict("t", nestedtext.String("12:30"))
		require.Equal(t, "t: 12:30", mustDump(t, v, nestedtext.Width(40)))
	})

	t.Run("inline level", func(t *testing.T) {
		v := dict("o", list("1", "2"))
		out := mustDump(t, v, nestedtext.Width(40), nestedtext.InlineLevel(1))
		require.Equal(t, "o:\n    [1, 2]", out)
	})

	t.Run("no inline", func(t *testing.T) {
		out := mustDump(t, list("a", "b"), nestedtext.Width(40), nestedtext.NoInline())
		require.Equal(t, "- a\n- b", out)
	})
}

func TestDump_Sorting(t *testing.T) {
	v := dict("b", nestedtext.String("2"), "a", nestedtext.String("1"))

	require.Equal(t, "b: 2\na: 1", mustDump(t, v))
	require.Equal(t, "a: 1\nb: 2", mustDump(t, v, nestedtext.SortKeys()))

	reverse := func(a, b nestedtext.KeyEntry, parent nestedtext.Path) int {
		return strings.Compare(b.Key, a.Key)
	}
	require.Equal(t, "b: 2\na: 1", mustDump(t, v, nestedtext.SortKeysFunc(reverse)))

	// Sorting applies to inline renderings as well.
	require.Equal(t, "{a: 1, b: 2}", mustDump(t, v, nestedtext.Width(40), nestedtext.SortKeys()))
}

func TestDump_MapKeys(t *testing.T) {
	v := dict("name", nestedtext.String("x"))
	out := mustDump(t, v, nestedtext.MapKeys(func(key string, parent nestedtext.Path) string {
		return strings.ToUpper(key)
	}))
	require.Equal(t, "NAME: x", out)
}

func TestDump_RestoreKeys(t *testing.T) {
	lower := func(key string, parent nestedtext.Path) string {
		return strings.ToLower(key)
	}
	var km nestedtext.Keymap
	v := mustParse(t, "NAME:\n    First Age: 5\n",
		nestedtext.NormalizeKeys(func(k string, p nestedtext.Path) string {
			return strings.ReplaceAll(lower(k, p), " ", "_")
		}),
		nestedtext.CaptureKeymap(&km))

	out := mustDump(t, v, nestedtext.RestoreKeys(&km))
	require.Equal(t, "NAME:\n    First Age: 5", out)
}

func TestDump_NativeGoValues(t *testing.T) {
	v := map[string]any{
		"b": 1,
		"a": []any{"x", true},
		"f": 2.5,
	}
	// Plain Go maps have no order of their own; keys come out sorted.
	require.Equal(t, "a:\n    - x\n    - true\nb: 1\nf: 2.5", mustDump(t, v))

	require.Equal(t, "- 1\n- 2", mustDump(t, []int{1, 2}))
	require.Equal(t, "x: y", mustDump(t, map[string]string{"x": "y"}))
}

func TestDump_NonStringMapKey(t *testing.T) {
	_, err := nestedtext.Dump(map[int]string{1: "a"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-string key")
}

func TestDump_Nil(t *testing.T) {
	_, err := nestedtext.Dump(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported value: nil")
}

func TestDump_NilDict(t *testing.T) {
	_, err := nestedtext.Dump((*nestedtext.Dict)(nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported value: nil")

	_, err = nestedtext.Dump(dict("k", (*nestedtext.Dict)(nil)))
	require.Error(t, err)
	var derr *nestedtext.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, "k", derr.Culprit.String())

	// The inline attempt takes its own path to the same value.
	_, err = nestedtext.Dump(dict("k", (*nestedtext.Dict)(nil)), nestedtext.Width(40))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported value: nil")
}

type semver struct{ major, minor int }

func (v semver) MarshalNestedText() (any, error) {
	return fmt.Sprintf("%d.%d", v.major, v.minor), nil
}

type opaque struct{ id int }

func TestDump_Converters(t *testing.T) {
	t.Run("registered converter", func(t *testing.T) {
		out := mustDump(t, map[string]any{"o": opaque{7}},
			nestedtext.Converter(opaque{}, func(v any) (any, error) {
				return fmt.Sprintf("opaque-%d", v.(opaque).id), nil
			}))
		require.Equal(t, "o: opaque-7", out)
	})

	t.Run("marshaler interface", func(t *testing.T) {
		out := mustDump(t, map[string]any{"v": semver{1, 2}})
		require.Equal(t, "v: 1.2", out)
	})

	t.Run("converter outranks marshaler", func(t *testing.T) {
		out := mustDump(t, map[string]any{"v": semver{1, 2}},
			nestedtext.Converter(semver{}, func(v any) (any, error) {
				return "overridden", nil
			}))
		require.Equal(t, "v: overridden", out)
	})

	t.Run("nil converter marks type unsupported", func(t *testing.T) {
		_, err := nestedtext.Dump(map[string]any{"v": semver{1, 2}},
			nestedtext.Converter(semver{}, nil))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported type")
	})

	t.Run("converter failure carries the key path", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := nestedtext.Dump(map[string]any{"v": opaque{1}},
			nestedtext.Converter(opaque{}, func(v any) (any, error) {
				return nil, boom
			}))
		require.Error(t, err)
		require.ErrorIs(t, err, boom)
		var derr *nestedtext.Error
		require.ErrorAs(t, err, &derr)
		require.Equal(t, "v", derr.Culprit.String())
	})

	t.Run("default converter", func(t *testing.T) {
		out := mustDump(t, map[string]any{"c": complex(1, 2)},
			nestedtext.Default(func(v any) (any, error) {
				return fmt.Sprint(v), nil
			}))
		require.Equal(t, "c: (1+2i)", out)
	})

	t.Run("converter can expand into a container", func(t *testing.T) {
		out := mustDump(t, map[string]any{"o": opaque{3}},
			nestedtext.Converter(opaque{}, func(v any) (any, error) {
				return map[string]any{"id": v.(opaque).id}, nil
			}))
		require.Equal(t, "o:\n    id: 3", out)
	})
}

func TestDump_StrictTypes(t *testing.T) {
	_, err := nestedtext.Dump(map[string]any{"n": 42}, nestedtext.StrictTypes())
	require.Error(t, err)
	var derr *nestedtext.Error
	require.ErrorAs(t, err, &derr)
	require.Contains(t, derr.Msg, "unsupported type: int")
	require.Equal(t, "n", derr.Culprit.String())
	require.Contains(t, derr.Error(), "nestedtext: n:")

	// Strings and containers still work in strict mode.
	out, err := nestedtext.Dump(map[string]any{"s": "x"}, nestedtext.StrictTypes())
	require.NoError(t, err)
	require.Equal(t, "s: x", out)

	// Registered converters still apply.
	out, err = nestedtext.Dump(map[string]any{"o": opaque{1}},
		nestedtext.StrictTypes(),
		nestedtext.Converter(opaque{}, func(v any) (any, error) { return "ok", nil }))
	require.NoError(t, err)
	require.Equal(t, "o: ok", out)
}

func TestDump_Cycles(t *testing.T) {
	t.Run("self-referential map", func(t *testing.T) {
		m := map[string]any{}
		m["self"] = m
		_, err := nestedtext.Dump(m)
		require.Error(t, err)
		require.Contains(t, err.Error(), "circular reference")
		var derr *nestedtext.Error
		require.ErrorAs(t, err, &derr)
		require.Equal(t, "self", derr.Culprit.String())
	})

	t.Run("self-referential list", func(t *testing.T) {
		l := make(nestedtext.List, 1)
		l[0] = l
		_, err := nestedtext.Dump(l)
		require.Error(t, err)
		require.Contains(t, err.Error(), "circular reference")
	})

	t.Run("shared subtree is not a cycle", func(t *testing.T) {
		shared := list("x")
		v := dict("a", shared, "b", shared)
		require.Equal(t, "a:\n    - x\nb:\n    - x", mustDump(t, v))
	})

	t.Run("cycle inside an inline attempt", func(t *testing.T) {
		m := map[string]any{}
		m["self"] = m
		_, err := nestedtext.Dump(m, nestedtext.Width(40))
		require.Error(t, err)
		require.Contains(t, err.Error(), "circular reference")
	})
}

func TestDump_OptionValidation(t *testing.T) {
	for _, opt := range []nestedtext.DumpOption{
		nestedtext.Width(-1),
		nestedtext.InlineLevel(-1),
		nestedtext.Indent(0),
		nestedtext.SortKeysFunc(nil),
		nestedtext.Converter(nil, nil),
		nestedtext.Default(nil),
		nestedtext.MapKeys(nil),
		nestedtext.RestoreKeys(nil),
	} {
		_, err := nestedtext.Dump(dict(), opt)
		require.Error(t, err)
	}
}

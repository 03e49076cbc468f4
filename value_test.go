package nestedtext_test

import (
	"testing"

	nestedtext "github.com/KenKundert/go-nestedtext"
	"github.com/stretchr/testify/require"
)

func TestDict_Ordering(t *testing.T) {
	d := nestedtext.NewDict()
	d.Set("b", nestedtext.String("2"))
	d.Set("a", nestedtext.String("1"))
	d.Set("c", nestedtext.String("3"))

	require.Equal(t, 3, d.Len())
	require.Equal(t, []string{"b", "a", "c"}, d.Keys())

	// Replacing a value keeps the key's position.
	d.Set("a", nestedtext.String("one"))
	require.Equal(t, []string{"b", "a", "c"}, d.Keys())
	v, ok := d.Get("a")
	require.True(t, ok)
	require.Equal(t, nestedtext.Value(nestedtext.String("one")), v)

	k, v := d.At(1)
	require.Equal(t, "a", k)
	require.Equal(t, nestedtext.Value(nestedtext.String("one")), v)
}

func TestDict_Delete(t *testing.T) {
	d := dict("a", nestedtext.String("1"), "b", nestedtext.String("2"), "c", nestedtext.String("3"))
	d.Delete("b")
	require.Equal(t, []string{"a", "c"}, d.Keys())
	require.False(t, d.Has("b"))

	d.Delete("missing")
	require.Equal(t, 2, d.Len())
}

func TestDict_KeysIsACopy(t *testing.T) {
	d := dict("a", nestedtext.String("1"))
	keys := d.Keys()
	keys[0] = "mutated"
	require.Equal(t, []string{"a"}, d.Keys())
}

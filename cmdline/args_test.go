package cmdline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		line   string
		tokens []string
	}{
		{"", nil},
		{"   ", nil},
		{"# footprint 64 8", nil},
		{"   # indented comment", nil},
		{"write", []string{"write"}},
		{"  chaum   [1 2 5]  0.5 ", []string{"chaum", "[1 2 5]", "0.5"}},
		{`footprint 64 8 [10 100] "Linear" [0.001 0.002] 0.5 true`, []string{"footprint", "64", "8", "[10 100]", `"Linear"`, "[0.001 0.002]", "0.5", "true"}},
		{`echo "hello   world"`, []string{"echo", `"hello   world"`}},
		{"a[b c]d e", []string{"a[b c]d", "e"}},
		{"tab\tseparated", []string{"tab", "separated"}},
		{"[]", []string{"[]"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			tokens, err := Split(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.tokens, tokens)
		})
	}
}

func TestSplit_Unterminated(t *testing.T) {
	for _, line := range []string{`echo "open`, "chaum [1 2"} {
		_, err := Split(line)
		require.ErrorIs(t, err, ErrUnterminated, line)
	}
}

func TestArgs(t *testing.T) {
	args, err := Parse(`footprint 64 8 [10 100] "Linear" [0.001 0.002] 0.5 true`)
	require.NoError(t, err)
	require.Equal(t, 8, args.Len())

	require.Equal(t, "footprint", args.Peek())
	require.Equal(t, "footprint", args.Pop())
	require.True(t, args.HasInt())

	slots, err := args.Int()
	require.NoError(t, err)
	require.Equal(t, 64, slots)
	bits, err := args.Int()
	require.NoError(t, err)
	require.Equal(t, 8, bits)

	require.True(t, args.HasList())
	clients, err := args.Ints()
	require.NoError(t, err)
	require.Equal(t, []int{10, 100}, clients)

	require.True(t, args.HasString())
	behaviour, err := args.String()
	require.NoError(t, err)
	require.Equal(t, "Linear", behaviour)

	percentages, err := args.Floats()
	require.NoError(t, err)
	require.Equal(t, []float64{0.001, 0.002}, percentages)

	require.True(t, args.HasFloat())
	require.False(t, args.HasInt())
	activity, err := args.Float()
	require.NoError(t, err)
	require.Equal(t, 0.5, activity)

	stop, err := args.Bool()
	require.NoError(t, err)
	require.True(t, stop)

	require.True(t, args.Empty())
	require.Equal(t, "", args.Pop())
	_, err = args.Int()
	require.ErrorIs(t, err, ErrMissingArgument)
	_, err = args.List()
	require.ErrorIs(t, err, ErrMissingArgument)
}

func TestArgs_TypeErrors(t *testing.T) {
	args := NewArgs([]string{"x", "y", "z", "w", "[1 two]"})

	_, err := args.Int()
	require.ErrorContains(t, err, `"x" is not an integer`)
	_, err = args.Float()
	require.ErrorContains(t, err, `"y" is not a number`)
	_, err = args.Bool()
	require.ErrorContains(t, err, `"z" is not a boolean`)
	_, err = args.List()
	require.ErrorIs(t, err, ErrNotAList)

	// A failed List leaves the token in place.
	require.Equal(t, "w", args.Pop())
	_, err = args.Ints()
	require.ErrorContains(t, err, `"two" is not an integer`)
}

func TestArgs_BareString(t *testing.T) {
	args := NewArgs([]string{"Reactive", "[]"})
	require.False(t, args.HasString())
	s, err := args.String()
	require.NoError(t, err)
	require.Equal(t, "Reactive", s)

	empty, err := args.Ints()
	require.NoError(t, err)
	require.Empty(t, empty)
	require.Equal(t, []string{}, args.Rest())
}

func TestUnquote(t *testing.T) {
	require.Equal(t, "hello world", Unquote(`"hello world"`))
	require.Equal(t, "[1 2]", Unquote("[1 2]"))
	require.Equal(t, `"`, Unquote(`"`))
	require.Equal(t, "", Unquote(`""`))
}

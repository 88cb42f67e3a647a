package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeArgumentRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		wire string
	}{
		{"empty", []byte{}, `\@`},
		{"plain", []byte("hello"), "hello"},
		{"space", []byte("a b"), `a\_b`},
		{"backslash", []byte(`a\b`), `a\\b`},
		{"nul", []byte{'a', 0, 'b'}, `a\0b`},
		{"newline", []byte("a\nb"), `a\nb`},
		{"cr", []byte("a\rb"), `a\rb`},
		{"esc", []byte{'a', 0x1b, 'b'}, "a\\eb"},
		{"tab", []byte("a\tb"), `a\tb`},
		{"high bytes pass through", []byte{'c', 'a', 'f', 0xc3, 0xa9}, "caf\xc3\xa9"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := escapeArgument(c.raw)
			require.Equal(t, c.wire, string(got))

			back, err := unescapeArgument(got)
			require.NoError(t, err)
			require.Equal(t, c.raw, back)
		})
	}
}

func TestUnescapeArgumentRejectsBareControlBytes(t *testing.T) {
	for _, b := range []byte{0, '\t', '\r', 0x1b} {
		_, err := unescapeArgument([]byte{'a', b, 'b'})
		require.Error(t, err)
	}
}

func TestUnescapeArgumentRejectsInvalidEscape(t *testing.T) {
	_, err := unescapeArgument([]byte(`a\xb`))
	require.Error(t, err)
}

func TestUnescapeArgumentRejectsDanglingEscape(t *testing.T) {
	_, err := unescapeArgument([]byte(`ab\`))
	require.Error(t, err)
}

func TestUnescapeArgumentAtSignOnlyValidAlone(t *testing.T) {
	out, err := unescapeArgument([]byte(`\@`))
	require.NoError(t, err)
	require.Equal(t, []byte{}, out)

	_, err = unescapeArgument([]byte(`\@x`))
	require.Error(t, err)
}

func TestSplitArgumentsHonorsEscapedSpaces(t *testing.T) {
	args, err := splitArguments([]byte(`one two\_three four`))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("one"), []byte("two three"), []byte("four")}, args)
}

func TestSplitArgumentsFailsOnMalformedEscapeInsideToken(t *testing.T) {
	// A trailing backslash always swallows the next byte into its token,
	// even if that makes the escape invalid, so this is one bad token and
	// not two well-formed ones.
	_, err := splitArguments([]byte(`q\ other`))
	require.Error(t, err)
}

func TestSplitArgumentsEmpty(t *testing.T) {
	args, err := splitArguments([]byte(""))
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = splitArguments([]byte("   "))
	require.NoError(t, err)
	require.Empty(t, args)
}

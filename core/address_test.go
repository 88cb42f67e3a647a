package core

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddressV4(t *testing.T) {
	a, err := ParseAddress("127.0.0.1")
	require.NoError(t, err)
	require.False(t, a.HasPort)
	require.True(t, a.IP.Equal(net.ParseIP("127.0.0.1")))
	require.Equal(t, "127.0.0.1", a.String())
}

func TestParseAddressV4WithPort(t *testing.T) {
	a, err := ParseAddress("127.0.0.1:5000")
	require.NoError(t, err)
	require.True(t, a.HasPort)
	require.EqualValues(t, 5000, a.Port)
	require.Equal(t, "127.0.0.1:5000", a.String())
}

func TestParseAddressV6BareIsRejected(t *testing.T) {
	_, err := ParseAddress("::1")
	require.Error(t, err)
}

func TestParseAddressV6Bracketed(t *testing.T) {
	a, err := ParseAddress("[::1]")
	require.NoError(t, err)
	require.False(t, a.HasPort)
	require.Equal(t, "[::1]", a.String())
}

func TestParseAddressV6BracketedWithPort(t *testing.T) {
	a, err := ParseAddress("[::1]:5000")
	require.NoError(t, err)
	require.True(t, a.HasPort)
	require.EqualValues(t, 5000, a.Port)
	require.Equal(t, "[::1]:5000", a.String())
}

func TestParseAddressBracketedV4Rejected(t *testing.T) {
	_, err := ParseAddress("[127.0.0.1]")
	require.Error(t, err)
}

func TestParseAddressEqualNormalizesV6Expansion(t *testing.T) {
	a, err := ParseAddress("[00:00::1]:10")
	require.NoError(t, err)
	b, err := ParseAddress("[::1]:10")
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestParseAddressRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-an-address", "1.2.3.4:notaport", "1.2.3.4:99999"} {
		_, err := ParseAddress(s)
		require.Error(t, err, s)
	}
}

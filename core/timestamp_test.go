package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTripsThroughRegistry(t *testing.T) {
	ts := Timestamp(1234567890.5)
	wire, err := Encode(ts)
	require.NoError(t, err)
	require.Equal(t, "1234567890.5", string(wire))

	back, err := DecodeAs[Timestamp]([]byte("1234567890.5"))
	require.NoError(t, err)
	require.Equal(t, ts, back)
}

func TestTimestampNowIsRecent(t *testing.T) {
	require.False(t, Now().Time().IsZero())
}

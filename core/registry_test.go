package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBuiltins(t *testing.T) {
	i, err := Encode(42)
	require.NoError(t, err)
	require.Equal(t, "42", string(i))
	back, err := DecodeAs[int]([]byte("42"))
	require.NoError(t, err)
	require.Equal(t, 42, back)

	f, err := Encode(3.25)
	require.NoError(t, err)
	require.Equal(t, "3.25", string(f))
	fback, err := DecodeAs[float64]([]byte("3.25"))
	require.NoError(t, err)
	require.InDelta(t, 3.25, fback, 1e-9)

	bt, err := Encode(true)
	require.NoError(t, err)
	require.Equal(t, "1", string(bt))
	bf, err := Encode(false)
	require.NoError(t, err)
	require.Equal(t, "0", string(bf))

	s, err := Encode("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", string(s))
}

func TestDecodeBooleanRejectsGarbage(t *testing.T) {
	_, err := DecodeAs[bool]([]byte("yes"))
	require.Error(t, err)
}

func TestDecodeIntegerRejectsFraction(t *testing.T) {
	_, err := DecodeAs[int]([]byte("3.5"))
	require.Error(t, err)
}

func TestDecodeStringRejectsInvalidUTF8(t *testing.T) {
	_, err := DecodeAs[string]([]byte{0xff, 0xfe})
	require.Error(t, err)
}

func TestEncodeUnregisteredTypeFails(t *testing.T) {
	type unregistered struct{}
	_, err := Encode(unregistered{})
	require.Error(t, err)
	var tre *TypeRegistryError
	require.ErrorAs(t, err, &tre)
}

func TestRegisterTypeRejectsDuplicate(t *testing.T) {
	type onceOnly int
	require.NoError(t, RegisterType(onceOnly(0), "once-only",
		func(v interface{}) ([]byte, error) { return nil, nil },
		func(raw []byte) (interface{}, error) { return onceOnly(0), nil },
		onceOnly(0),
	))
	err := RegisterType(onceOnly(0), "once-only-again",
		func(v interface{}) ([]byte, error) { return nil, nil },
		func(raw []byte) (interface{}, error) { return onceOnly(0), nil },
		onceOnly(0),
	)
	require.Error(t, err)
}

func TestBufferCopiesOnDecode(t *testing.T) {
	raw := []byte("payload")
	decoded, err := Decode([]byte(nil), raw)
	require.NoError(t, err)
	buf := decoded.([]byte)
	raw[0] = 'X'
	require.Equal(t, "payload", string(buf))
}

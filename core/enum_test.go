package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testColor int

const (
	testColorRed testColor = iota
	testColorGreen
	testColorBlue
)

func TestRegisterEnumEncodeDecode(t *testing.T) {
	err := RegisterEnum([]EnumVariant[testColor]{
		{Value: testColorRed, Name: "RED"},
		{Value: testColorGreen, Name: "GREEN"},
		{Value: testColorBlue, Name: "BLUE"},
	})
	require.NoError(t, err)

	wire, err := Encode(testColorGreen)
	require.NoError(t, err)
	require.Equal(t, "green", string(wire))

	back, err := DecodeAs[testColor]([]byte("blue"))
	require.NoError(t, err)
	require.Equal(t, testColorBlue, back)

	info, err := GetType(testColorRed)
	require.NoError(t, err)
	require.Equal(t, "discrete", info.WireName)
	require.Equal(t, []string{"red", "green", "blue"}, info.EnumTokens)
}

type testMode int

const (
	testModeOn testMode = iota
	testModeOff
)

func TestRegisterEnumHonorsWireOverride(t *testing.T) {
	err := RegisterEnum([]EnumVariant[testMode]{
		{Value: testModeOn, Name: "ON", Wire: []byte("1")},
		{Value: testModeOff, Name: "OFF", Wire: []byte("0")},
	})
	require.NoError(t, err)

	wire, err := Encode(testModeOn)
	require.NoError(t, err)
	require.Equal(t, "1", string(wire))
}

func TestRegisterEnumRejectsEmpty(t *testing.T) {
	err := RegisterEnum([]EnumVariant[int]{})
	require.Error(t, err)
}

func TestRegisterEnumRejectsUnknownWireToken(t *testing.T) {
	type testShape int
	const testShapeSquare testShape = iota
	require.NoError(t, RegisterEnum([]EnumVariant[testShape]{
		{Value: testShapeSquare, Name: "SQUARE"},
	}))
	_, err := DecodeAs[testShape]([]byte("circle"))
	require.Error(t, err)
}

package rle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	mask := []bool{false, false, true, true, true, false, true}
	runs := Encode(mask)
	got, err := Decode(runs, len(mask))
	require.NoError(t, err)
	require.Equal(t, mask, got)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	mask := []bool{true, true, false, false, false, false, true}
	runs := Encode(mask)
	b := Marshal(runs)
	back := Unmarshal(b)
	got, err := Decode(back, len(mask))
	require.NoError(t, err)
	require.Equal(t, mask, got)
}

func TestEncodeEmpty(t *testing.T) {
	require.Nil(t, Encode(nil))
}

func TestDecodeLengthMismatch(t *testing.T) {
	_, err := Decode([]Run{{Value: true, Length: 3}}, 5)
	require.Error(t, err)
}

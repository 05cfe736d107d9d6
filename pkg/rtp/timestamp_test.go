package rtp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizer_FirstPacketIsZero(t *testing.T) {
	n := NewNormalizer()
	require.Equal(t, uint64(0), n.Normalize(96, 123456))
}

func TestNormalizer_AccumulatesForwardDeltas(t *testing.T) {
	n := NewNormalizer()
	require.Equal(t, uint64(0), n.Normalize(96, 1000))
	require.Equal(t, uint64(3000), n.Normalize(96, 4000))
	require.Equal(t, uint64(6000), n.Normalize(96, 7000))
}

// spec.md §8: raw RTP timestamp wrap from 0xFFFFFF00 to 0x00000050
// must yield delta 0x150, not a huge negative number.
func TestNormalizer_HandlesWraparound(t *testing.T) {
	n := NewNormalizer()

	require.Equal(t, uint64(0), n.Normalize(96, 0xFFFFFF00))
	got := n.Normalize(96, 0x00000050)
	require.Equal(t, uint64(0x150), got)
}

func TestNormalizer_IndependentPerPayloadType(t *testing.T) {
	n := NewNormalizer()

	require.Equal(t, uint64(0), n.Normalize(96, 1000))
	require.Equal(t, uint64(0), n.Normalize(97, 5000)) // different payload type, starts fresh
	require.Equal(t, uint64(500), n.Normalize(96, 1500))
}

func TestNormalizer_Reset(t *testing.T) {
	n := NewNormalizer()
	n.Normalize(96, 1000)
	n.Normalize(96, 2000)

	n.Reset()
	require.Equal(t, uint64(0), n.Normalize(96, 99999))
}

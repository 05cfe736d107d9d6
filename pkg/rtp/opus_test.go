package rtp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpusDepacketizer_ConcatenatesFramesPerPacket(t *testing.T) {
	d := &OpusDepacketizer{}

	out, err := d.Depacketize([][]byte{{0x01, 0x02}})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, out)
}

func TestOpusDepacketizer_EmptyGroupYieldsNoBitstream(t *testing.T) {
	d := &OpusDepacketizer{}

	out, err := d.Depacketize(nil)
	require.NoError(t, err)
	require.Nil(t, out)
}

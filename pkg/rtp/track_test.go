package rtp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AddAndLookup(t *testing.T) {
	r := NewRegistry()
	track := &Track{ID: 96, Kind: KindVideo, Codec: CodecH264, Timebase: Timebase{Num: 1, Den: 90000}}
	depack := &H264Depacketizer{}

	require.True(t, r.Add(track, depack))

	got, ok := r.Track(96)
	require.True(t, ok)
	require.Same(t, track, got)

	gotDepack, ok := r.Depacketizer(96)
	require.True(t, ok)
	require.Same(t, depack, gotDepack)
}

func TestRegistry_AddDuplicatePayloadTypeFails(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Add(&Track{ID: 96}, &H264Depacketizer{}))
	require.False(t, r.Add(&Track{ID: 96}, &H264Depacketizer{}))
}

func TestRegistry_TracksReturnsAll(t *testing.T) {
	r := NewRegistry()
	r.Add(&Track{ID: 96}, &H264Depacketizer{})
	r.Add(&Track{ID: 97}, &VP8Depacketizer{})

	require.Len(t, r.Tracks(), 2)
}

func TestNewDepacketizer_SupportedCodecs(t *testing.T) {
	for _, codec := range []string{"H264", "h264", "VP8", "opus", "OPUS"} {
		depack, format, packetType, err := NewDepacketizer(codec)
		require.NoError(t, err, codec)
		require.NotNil(t, depack, codec)
		require.NotEmpty(t, format, codec)
		require.NotEmpty(t, packetType, codec)
	}
}

func TestNewDepacketizer_UnsupportedCodec(t *testing.T) {
	_, _, _, err := NewDepacketizer("MP4A-LATM")
	require.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestOutputFor(t *testing.T) {
	format, packetType := OutputFor(CodecH264)
	require.Equal(t, "ANNEXB", string(format))
	require.Equal(t, "NALU", string(packetType))

	format, packetType = OutputFor(CodecOpus)
	require.Equal(t, "OPUS", string(format))
	require.Equal(t, "RAW", string(packetType))
}

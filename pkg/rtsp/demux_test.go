package rtsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemuxer_ParsesResponseWithBody(t *testing.T) {
	d := NewDemuxer()

	raw := "RTSP/1.0 200 OK\r\nCSeq: 2\r\nContent-Base: rtsp://h/s/\r\n" +
		"Content-Length: 4\r\n\r\nSDP!"

	require.NoError(t, d.Append([]byte(raw)))

	msgs := d.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, KindResponse, msgs[0].Kind)
	require.Equal(t, 200, msgs[0].StatusCode)
	require.Equal(t, 2, msgs[0].CSeq)
	require.Equal(t, []byte("SDP!"), msgs[0].Body)

	cb, ok := msgs[0].Header.Get("Content-Base")
	require.True(t, ok)
	require.Equal(t, "rtsp://h/s/", cb)
}

func TestDemuxer_IncompleteMessageWaitsForMoreBytes(t *testing.T) {
	d := NewDemuxer()

	require.NoError(t, d.Append([]byte("RTSP/1.0 200 OK\r\nCSeq: 1\r\n")))
	require.Empty(t, d.Messages())

	require.NoError(t, d.Append([]byte("\r\n")))
	msgs := d.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, 1, msgs[0].CSeq)
}

func TestDemuxer_ParsesInterleavedFrame(t *testing.T) {
	d := NewDemuxer()

	// $ + channel 0 + length 4 (big-endian uint16) + 4 bytes payload.
	frame := []byte{0x24, 0x00, 0x00, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}
	require.NoError(t, d.Append(frame))

	frames := d.Interleaved()
	require.Len(t, frames, 1)
	require.Equal(t, byte(0), frames[0].Channel)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, frames[0].Payload)
}

func TestDemuxer_IncompleteInterleavedFrameWaits(t *testing.T) {
	d := NewDemuxer()

	require.NoError(t, d.Append([]byte{0x24, 0x00, 0x00, 0x04, 0xAA, 0xBB}))
	require.Empty(t, d.Interleaved())

	require.NoError(t, d.Append([]byte{0xCC, 0xDD}))
	frames := d.Interleaved()
	require.Len(t, frames, 1)
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, frames[0].Payload)
}

// Mirrors spec.md §8's literal scenario: a single recv returning the
// PLAY 200 OK followed immediately by one interleaved frame delivers
// both, in order.
func TestDemuxer_FusedResponseAndInterleavedFrame(t *testing.T) {
	d := NewDemuxer()

	response := "RTSP/1.0 200 OK\r\nCSeq: 3\r\n\r\n"
	frame := []byte{0x24, 0x00, 0x00, 0x04, 0x01, 0x02, 0x03, 0x04}

	payload := append([]byte(response), frame...)
	require.NoError(t, d.Append(payload))

	msgs := d.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, 3, msgs[0].CSeq)

	frames := d.Interleaved()
	require.Len(t, frames, 1)
	require.Equal(t, byte(0), frames[0].Channel)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, frames[0].Payload)
}

func TestDemuxer_GarbageHeadIsMalformed(t *testing.T) {
	d := NewDemuxer()
	err := d.Append([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDemuxer_RequestFromServer(t *testing.T) {
	d := NewDemuxer()
	require.NoError(t, d.Append([]byte("OPTIONS rtsp://h/s RTSP/1.0\r\nCSeq: 9\r\n\r\n")))

	msgs := d.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, KindRequest, msgs[0].Kind)
	require.Equal(t, "OPTIONS", msgs[0].Method)
}

// Package rtp implements the track/depacketizer registry, the RTP
// dispatcher, and the per-payload-type timestamp normaliser described
// in spec §4.5–§4.6. Depacketization itself is a separately-specified
// collaborator per spec §1; the implementations here are the concrete
// bindings this client ships with.
package rtp

import (
	"fmt"

	"github.com/brinkline/rtspull/pkg/media"
)

// Depacketizer reassembles one coded frame from the ordered RTP
// payloads of a single reassembled packet group (spec §4.5). A nil
// bitstream with a nil error means the depacketizer has partial state
// and is waiting for more packets — no media packet should be
// emitted for that group.
type Depacketizer interface {
	Depacketize(payloads [][]byte) ([]byte, error)
}

// Codec identifies one of the codecs this client can depacketize.
type Codec string

const (
	CodecH264 Codec = "H264"
	CodecVP8  Codec = "VP8"
	CodecOpus Codec = "opus"
)

// NewDepacketizer returns the depacketizer for a codec name as it
// appears in an SDP rtpmap attribute (case-insensitive), and the
// bitstream/packet-type pair its output should be tagged with. It
// returns an error for any codec outside the supported table in
// spec §4.5.
func NewDepacketizer(codec string) (Depacketizer, media.BitstreamFormat, media.PacketType, error) {
	switch NormalizeCodec(codec) {
	case CodecH264:
		return &H264Depacketizer{}, media.FormatAnnexB, media.PacketNALU, nil
	case CodecVP8:
		return &VP8Depacketizer{}, media.FormatVP8, media.PacketRaw, nil
	case CodecOpus:
		return &OpusDepacketizer{}, media.FormatOpus, media.PacketRaw, nil
	default:
		return nil, "", "", fmt.Errorf("%w: %s", errUnsupportedCodec, codec)
	}
}

// NormalizeCodec maps an SDP rtpmap encoding name to its canonical
// Codec constant (case-insensitive), or returns it unchanged if it
// names no codec this client supports. Callers that register a track
// ahead of NewDepacketizer (spec §4.5) must store this normalized form
// so later lookups like OutputFor key on the same constants.
func NormalizeCodec(codec string) Codec {
	for _, c := range []Codec{CodecH264, CodecVP8, CodecOpus} {
		if equalFold(string(c), codec) {
			return c
		}
	}
	return Codec(codec)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

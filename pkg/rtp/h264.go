package rtp

import (
	"github.com/pion/rtp/codecs"
)

// H264Depacketizer reassembles Annex-B NAL units from FU-A fragments
// and STAP-A aggregates. Grounded on the teacher's hand-rolled
// pkg/rtp/h264.go, generalized here to delegate the actual fragment
// bookkeeping to github.com/pion/rtp/codecs.H264Packet, which already
// produces start-code-delimited (Annex-B) output per RFC 6184 — the
// library the rest of the pion ecosystem uses for this, instead of
// reimplementing FU-A/STAP-A bit twiddling by hand.
type H264Depacketizer struct {
	unmarshaler codecs.H264Packet
}

// Depacketize feeds each RTP payload of the packet group through the
// underlying H.264 depacketizer in order and concatenates whatever
// Annex-B bytes it emits. A fragmented NALU only yields bytes on its
// final (end-bit) fragment; packets before that contribute nothing,
// which is the "no bitstream yet" case spec §4.5 says must not emit a
// media packet.
func (d *H264Depacketizer) Depacketize(payloads [][]byte) ([]byte, error) {
	var out []byte
	for _, payload := range payloads {
		chunk, err := d.unmarshaler.Unmarshal(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

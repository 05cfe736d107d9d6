package rtp

// OpusDepacketizer handles Opus-over-RTP per RFC 7587: each RTP
// packet already carries exactly one complete Opus frame, so there is
// no fragment reassembly to do — the payload is the bitstream. The
// accumulate-then-emit shape mirrors the teacher's AAC processor
// (pkg/rtp/aac.go), which looped over access units per packet; Opus
// needs no AU-header parsing, so the loop only concatenates.
type OpusDepacketizer struct{}

func (d *OpusDepacketizer) Depacketize(payloads [][]byte) ([]byte, error) {
	var out []byte
	for _, payload := range payloads {
		out = append(out, payload...)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

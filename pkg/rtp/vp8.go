package rtp

import "github.com/pion/rtp/codecs"

// VP8Depacketizer strips the VP8 payload descriptor (RFC 7741) from
// each RTP payload and concatenates the remaining VP8 frame bytes,
// again delegating to github.com/pion/rtp/codecs rather than hand-
// parsing the descriptor, in the same spirit as H264Depacketizer.
type VP8Depacketizer struct {
	unmarshaler codecs.VP8Packet
}

func (d *VP8Depacketizer) Depacketize(payloads [][]byte) ([]byte, error) {
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

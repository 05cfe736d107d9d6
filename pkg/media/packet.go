// Package media defines the downstream boundary of the RTSP pull
// client: the packet shape handed to a sink, and the Sink interface
// itself. The sink's implementation is out of scope for this module
// (spec §1, §6); only the contract lives here.
package media

// BitstreamFormat names the encoded-frame container produced by a
// depacketizer.
type BitstreamFormat string

const (
	FormatAnnexB BitstreamFormat = "ANNEXB"
	FormatVP8    BitstreamFormat = "VP8"
	FormatOpus   BitstreamFormat = "OPUS"
)

// PacketType distinguishes how downstream consumers should interpret
// Bitstream.
type PacketType string

const (
	PacketNALU PacketType = "NALU"
	PacketRaw  PacketType = "RAW"
)

// Packet is one fully reassembled elementary-stream frame, timestamp-
// normalised and ready for a sink.
type Packet struct {
	TrackID         uint8
	Bitstream       []byte
	PTS             uint64
	DTS             uint64
	BitstreamFormat BitstreamFormat
	PacketType      PacketType
}

// Sink is the downstream media-packet consumer collaborator.
type Sink interface {
	SendFrame(pkt Packet) error
}

// SinkFunc adapts a plain function to the Sink interface, for tests
// and small wiring points that don't warrant a named type.
type SinkFunc func(pkt Packet) error

func (f SinkFunc) SendFrame(pkt Packet) error { return f(pkt) }

package rtp

import (
	"github.com/pion/rtcp"
	pionrtp "github.com/pion/rtp"

	"github.com/brinkline/rtspull/pkg/logger"
	"github.com/brinkline/rtspull/pkg/media"
)

// Receiver is the RTP dispatcher (spec §4.5): it turns interleaved
// binary payloads handed up by the demuxer into RTP-packet groups —
// one coded frame's worth of packets, delimited by the marker bit —
// and then looks up the track and depacketizer by payload type,
// builds the assembled bitstream, normalises its timestamp and hands
// the result to the sink. Grouping packets by marker bit is, per
// spec §4.5, normally the job of a separate RTP/RTCP collaborator;
// this type absorbs that job too since nothing else in this module
// performs it and an end-to-end client needs it to function.
//
// Interleaved channels follow this client's own SETUP policy
// (spec §4.3: interleaved=N-(N+1), N even, incrementing by 2 per
// track), so the even/odd channel parity alone distinguishes RTP from
// RTCP without needing the server's echoed Transport channel numbers.
type Receiver struct {
	registry   *Registry
	normalizer *Normalizer
	sink       media.Sink
	logger     *logger.Logger

	pending map[uint8][]pionrtp.Packet
}

// NewReceiver wires a Receiver to the track registry it dispatches
// against and the sink it ultimately feeds.
func NewReceiver(registry *Registry, sink media.Sink, log *logger.Logger) *Receiver {
	if log == nil {
		log = logger.Default()
	}
	return &Receiver{
		registry:   registry,
		normalizer: NewNormalizer(),
		sink:       sink,
		logger:     log,
		pending:    make(map[uint8][]pionrtp.Packet),
	}
}

// OnData handles one interleaved payload already demultiplexed to a
// channel byte (spec §6 "on_data_received").
func (r *Receiver) OnData(channel byte, payload []byte) {
	if channel%2 == 1 {
		r.onRTCP(payload)
		return
	}
	r.onRTP(payload)
}

func (r *Receiver) onRTCP(payload []byte) {
	packets, err := rtcp.Unmarshal(payload)
	if err != nil {
		r.logger.DebugDemux("dropping malformed RTCP packet", "error", err)
		return
	}
	// Spec §4.5/§7: RTCP packets with no action — recoverable, but
	// worth a debug trace for operators.
	for _, pkt := range packets {
		r.logger.DebugDemux("rtcp packet received", "type", rtcpTypeName(pkt))
	}
}

func rtcpTypeName(pkt rtcp.Packet) string {
	switch pkt.(type) {
	case *rtcp.SenderReport:
		return "sender_report"
	case *rtcp.ReceiverReport:
		return "receiver_report"
	case *rtcp.SourceDescription:
		return "source_description"
	case *rtcp.Goodbye:
		return "goodbye"
	default:
		return "other"
	}
}

func (r *Receiver) onRTP(payload []byte) {
	var pkt pionrtp.Packet
	if err := pkt.Unmarshal(payload); err != nil {
		r.logger.Warn("dropping malformed RTP packet", "error", err)
		return
	}

	pt := uint8(pkt.PayloadType)
	r.logger.DebugRTPPacket(pkt.SequenceNumber, pkt.Timestamp, pt, len(pkt.Payload))
	r.pending[pt] = append(r.pending[pt], pkt)

	if !pkt.Marker {
		return // packet group not yet complete
	}

	group := r.pending[pt]
	delete(r.pending, pt)
	r.dispatch(pt, group)
}

// dispatch implements spec §4.5 steps 1-5 for one completed packet
// group.
func (r *Receiver) dispatch(payloadType uint8, group []pionrtp.Packet) {
	track, ok := r.registry.Track(payloadType)
	if !ok {
		r.logger.DebugDepacketize("dropping packet group for unregistered track", "payload_type", payloadType)
		return
	}

	depack, ok := r.registry.Depacketizer(payloadType)
	if !ok {
		r.logger.DebugDepacketize("dropping packet group with no depacketizer", "payload_type", payloadType)
		return
	}

	payloads := make([][]byte, len(group))
	for i, pkt := range group {
		payloads[i] = pkt.Payload
	}

	bitstream, err := depack.Depacketize(payloads)
	if err != nil {
		r.logger.Warn("depacketization failed", "payload_type", payloadType, "error", err)
		return
	}
	if bitstream == nil {
		return // depacketizer has partial state, nothing to emit yet
	}

	rawTimestamp := group[len(group)-1].Timestamp
	ts := r.normalizer.Normalize(payloadType, rawTimestamp)
	r.logger.DebugTimestamp("normalized timestamp", "payload_type", payloadType, "raw", rawTimestamp, "normalized", ts)

	format, packetType := OutputFor(track.Codec)
	pkt := media.Packet{
		TrackID:         track.ID,
		Bitstream:       bitstream,
		PTS:             ts,
		DTS:             ts,
		BitstreamFormat: format,
		PacketType:      packetType,
	}

	r.logger.DebugBitstream(track.ID, len(bitstream), bitstream)

	if err := r.sink.SendFrame(pkt); err != nil {
		r.logger.Warn("sink rejected media packet", "track_id", track.ID, "error", err)
	}
}

// OutputFor reports the bitstream format and packet type a codec's
// depacketizer produces (spec §4.5's table), for callers that need to
// declare an outbound track before any frame has arrived.
func OutputFor(codec Codec) (media.BitstreamFormat, media.PacketType) {
	switch codec {
	case CodecH264:
		return media.FormatAnnexB, media.PacketNALU
	case CodecVP8:
		return media.FormatVP8, media.PacketRaw
	case CodecOpus:
		return media.FormatOpus, media.PacketRaw
	default:
		return "", ""
	}
}

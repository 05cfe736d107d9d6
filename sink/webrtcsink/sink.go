// Package webrtcsink is the optional media.Sink implementation named in
// SPEC_FULL.md §6: it re-packetizes the depacketized bitstreams this
// module produces into outbound WebRTC tracks, grounded on the
// teacher's pkg/bridge.Bridge (PeerConnection setup, codec
// registration, per-track sequence-number state) but stripped of the
// Cloudflare Calls signalling — the caller supplies its own SDP
// offer/answer exchange.
package webrtcsink

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"

	"github.com/brinkline/rtspull/pkg/media"
)

const rtpMTU = 1200

// Sink is a media.Sink that forwards frames onto local WebRTC tracks.
type Sink struct {
	logger *slog.Logger
	pc     *webrtc.PeerConnection

	mu     sync.Mutex
	tracks map[uint8]*outboundTrack
}

type outboundTrack struct {
	local      *webrtc.TrackLocalStaticRTP
	payloader  rtp.Payloader
	payloadType uint8
	seqNum     uint16
}

// New builds a Sink around a fresh PeerConnection with H.264, VP8 and
// Opus registered (spec §4.5's supported-codec set), mirroring the
// teacher's NewBridge/CreateSession split.
func New(logger *slog.Logger) (*Sink, error) {
	m := &webrtc.MediaEngine{}

	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
		},
		PayloadType: 96,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("webrtcsink: register H264: %w", err)
	}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: 90000,
		},
		PayloadType: 97,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("webrtcsink: register VP8: %w", err)
	}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  2,
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("webrtcsink: register Opus: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(m))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		return nil, fmt.Errorf("webrtcsink: create peer connection: %w", err)
	}

	s := &Sink{
		logger: logger,
		pc:     pc,
		tracks: make(map[uint8]*outboundTrack),
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.logger.Info("webrtc peer connection state changed", "state", state.String())
	})

	return s, nil
}

// PeerConnection exposes the underlying connection for callers driving
// their own offer/answer/ICE signalling exchange.
func (s *Sink) PeerConnection() *webrtc.PeerConnection { return s.pc }

// AddTrack declares one outbound track ahead of the first frame for
// that track ID, so the SDP offer advertises it before negotiation.
func (s *Sink) AddTrack(trackID uint8, kind media.PacketType, format media.BitstreamFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tracks[trackID]; exists {
		return nil
	}

	capability, payloadType, payloader, rtpKind, err := capabilityFor(format)
	if err != nil {
		return err
	}

	local, err := webrtc.NewTrackLocalStaticRTP(capability, fmt.Sprintf("track-%d", trackID), fmt.Sprintf("rtspull-%d", trackID))
	if err != nil {
		return fmt.Errorf("webrtcsink: create track %d: %w", trackID, err)
	}
	if _, err := s.pc.AddTrack(local); err != nil {
		return fmt.Errorf("webrtcsink: add track %d: %w", trackID, err)
	}

	s.tracks[trackID] = &outboundTrack{
		local:       local,
		payloader:   payloader,
		payloadType: payloadType,
	}
	_ = rtpKind
	return nil
}

func capabilityFor(format media.BitstreamFormat) (webrtc.RTPCodecCapability, uint8, rtp.Payloader, webrtc.RTPCodecType, error) {
	switch format {
	case media.FormatAnnexB:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000},
			96, &codecs.H264Payloader{}, webrtc.RTPCodecTypeVideo, nil
	case media.FormatVP8:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			97, &codecs.VP8Payloader{}, webrtc.RTPCodecTypeVideo, nil
	case media.FormatOpus:
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			111, &passthroughPayloader{}, webrtc.RTPCodecTypeAudio, nil
	default:
		return webrtc.RTPCodecCapability{}, 0, nil, 0, fmt.Errorf("webrtcsink: unsupported bitstream format %q", format)
	}
}

// passthroughPayloader packetizes Opus, which (per RFC 7587) carries
// one frame per RTP packet already — no MTU-driven fragmentation
// needed, unlike the teacher's H264Payloader path.
type passthroughPayloader struct{}

func (passthroughPayloader) Payload(mtu uint16, payload []byte) [][]byte {
	return [][]byte{payload}
}

// SendFrame implements media.Sink: it packetizes one depacketized
// bitstream back into RTP and writes it to the matching outbound
// track, passing the source timestamp straight through as the
// teacher's writeVideoSampleDirect does (no synthetic re-timing).
func (s *Sink) SendFrame(pkt media.Packet) error {
	s.mu.Lock()
	track, ok := s.tracks[pkt.TrackID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("webrtcsink: frame for unregistered track %d", pkt.TrackID)
	}

	payloads := track.payloader.Payload(rtpMTU, pkt.Bitstream)
	for i, payload := range payloads {
		s.mu.Lock()
		seqNum := track.seqNum
		track.seqNum++
		s.mu.Unlock()

		packet := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    track.payloadType,
				SequenceNumber: seqNum,
				Timestamp:      uint32(pkt.PTS),
				Marker:         i == len(payloads)-1,
			},
			Payload: payload,
		}
		if err := track.local.WriteRTP(packet); err != nil {
			if err == io.ErrClosedPipe {
				return nil
			}
			return fmt.Errorf("webrtcsink: write rtp: %w", err)
		}
	}
	return nil
}

// Close tears down the peer connection.
func (s *Sink) Close() error {
	return s.pc.Close()
}

package rtsp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brinkline/rtspull/pkg/logger"
	"github.com/brinkline/rtspull/pkg/media"
	"github.com/brinkline/rtspull/pkg/rtp"
	"github.com/brinkline/rtspull/pkg/sdp"
	"github.com/brinkline/rtspull/pkg/socket"
)

const defaultRTSPPort = "554"

// Outcome is the result of one ProcessMediaPacket step (spec §4.7).
type Outcome int

const (
	Success Outcome = iota
	TryAgain
	Failure
)

// Config is the recognised option set from spec §6.
type Config struct {
	URLList          []string
	ConnectTimeout   time.Duration
	RequestTimeout   time.Duration
	RecvBufferSize   int
	UserAgent        string
}

// DefaultConfig returns the defaults named in spec §6.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 3 * time.Second,
		RequestTimeout: 3 * time.Second,
		RecvBufferSize: 65535,
		UserAgent:      "rtspull/1.0",
	}
}

// Session is the top-level entity of spec §3: a single RTSP pull
// session against one of a list of candidate source URLs.
type Session struct {
	cfg       Config
	sdpParser sdp.Parser
	sink      media.Sink
	logger    *logger.Logger

	urlListIdx int
	activeURL  string

	sock socket.Socket
	demux *Demuxer
	corr  *Correlator

	registry *rtp.Registry
	receiver *rtp.Receiver

	cseq        int
	sessionID   string
	contentBase string

	mu      sync.Mutex
	state   State
	metrics Metrics

	connectStart time.Time
	setupStart   time.Time
	readBuf      []byte
}

// New constructs an IDLE session. sdpParser and sink are the SDP-
// parser and media-sink collaborators (spec §6); both are required.
func New(cfg Config, sdpParser sdp.Parser, sink media.Sink, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Default()
	}
	registry := rtp.NewRegistry()
	return &Session{
		cfg:       cfg,
		sdpParser: sdpParser,
		sink:      sink,
		logger:    log,
		demux:     NewDemuxer(),
		corr:      NewCorrelator(),
		registry:  registry,
		receiver:  rtp.NewReceiver(registry, sink, log),
		readBuf:   make([]byte, maxInt(cfg.RecvBufferSize, 4096)),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// transition drives the state machine through the total function in
// state.go, rejecting any edge the table in spec §4.3 does not name
// (triggerError is valid from any state).
func (s *Session) transition(t trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	newState, ok := next(s.state, t)
	if !ok {
		s.logger.DebugSession("rejected state transition", "from", s.state, "trigger", t)
		return ErrWrongState
	}
	s.logger.DebugSession("state transition", "from", s.state, "to", newState, "trigger", t)
	s.state = newState
	return nil
}

// Metrics returns the two latency observations captured during setup.
func (s *Session) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Tracks returns every track registered during DESCRIBE.
func (s *Session) Tracks() []*rtp.Track { return s.registry.Tracks() }

// Start drives the session from IDLE through CONNECTED and DESCRIBED:
// it connects to the first candidate URL, issues DESCRIBE, and issues
// SETUP for every track the SDP advertises. On any failure it
// transitions to ERROR and returns that failure (spec §4.3, §7).
func (s *Session) Start(ctx context.Context) error {
	if s.State() != StateIdle {
		return ErrWrongState
	}
	if len(s.cfg.URLList) == 0 {
		s.setState(StateError)
		return ErrNoCandidateURLs
	}

	rawURL := s.cfg.URLList[s.urlListIdx]
	addr, err := s.connect(rawURL)
	if err != nil {
		s.setState(StateError)
		return err
	}
	s.activeURL = rawURL
	s.logger.Info("connected to rtsp source", "url", rawURL, "addr", addr)
	if err := s.transition(triggerStart); err != nil {
		s.setState(StateError)
		return err
	}

	if err := s.describe(); err != nil {
		s.setState(StateError)
		return err
	}
	if err := s.transition(triggerDescribe); err != nil {
		s.setState(StateError)
		return err
	}

	if err := s.setupAllTracks(); err != nil {
		s.setState(StateError)
		return err
	}
	if err := s.transition(triggerSetup); err != nil {
		s.setState(StateError)
		return err
	}

	s.mu.Lock()
	s.metrics.OriginResponseTimeMS = elapsedMS(s.setupStart)
	s.mu.Unlock()

	return nil
}

func (s *Session) connect(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "rtsp" && u.Scheme != "rtsps") {
		return "", ErrInvalidURL
	}

	port := u.Port()
	if port == "" {
		port = defaultRTSPPort
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	if u.Scheme == "rtsps" {
		s.sock = socket.NewTLSSocket(nil)
	} else {
		s.sock = socket.NewTCPSocket()
	}

	start := time.Now()
	if err := s.sock.Connect(addr, s.cfg.ConnectTimeout); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	s.mu.Lock()
	s.connectStart = start
	s.setupStart = time.Now()
	s.metrics.OriginRequestTimeMS = elapsedMS(start)
	s.mu.Unlock()

	return addr, nil
}

// describe implements the DESCRIBE leg of spec §4.3/§4.5.
func (s *Session) describe() error {
	u, _ := url.Parse(s.activeURL)

	req := s.newRequest("DESCRIBE", s.activeURL)
	req.Header.Set("Accept", "application/sdp")

	resp, err := s.roundTripSync(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: DESCRIBE got %d", ErrNonOKStatus, resp.StatusCode)
	}

	session, ok := resp.Header.Get("Session")
	if !ok || session == "" {
		return ErrMissingSession
	}
	s.sessionID = sessionIDOnly(session)

	if contentBase, ok := resp.Header.Get("Content-Base"); ok {
		s.contentBase = strings.TrimSpace(contentBase)
	}

	if len(resp.Body) == 0 {
		return ErrMissingSDPBody
	}

	desc, err := s.sdpParser.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("rtsp: parse SDP: %w", err)
	}

	return s.registerTracks(desc, u.String())
}

func sessionIDOnly(header string) string {
	if idx := strings.IndexByte(header, ';'); idx > 0 {
		return header[:idx]
	}
	return header
}

// registerTracks builds the track/depacketizer registry from the
// parsed SDP, per spec §4.5 and the duplicate-payload-type guard from
// the open-question resolution in SPEC_FULL.md §9.
func (s *Session) registerTracks(desc *sdp.Description, requestURL string) error {
	seen := make(map[uint8]bool)

	for _, m := range desc.Media {
		if seen[m.PayloadType] {
			return ErrDuplicatePayload
		}
		seen[m.PayloadType] = true

		if m.Control == "" {
			return ErrMissingControlAttr
		}

		depack, _, _, err := rtp.NewDepacketizer(m.Codec)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedCodec, m.Codec)
		}

		track := &rtp.Track{
			ID:         m.PayloadType,
			Kind:       rtp.MediaKind(m.Kind),
			Codec:      rtp.NormalizeCodec(m.Codec),
			Timebase:   rtp.Timebase{Num: 1, Den: m.ClockRate},
			ControlURL: ResolveControlURL(m.Control, s.contentBase, requestURL),
		}

		if !s.registry.Add(track, depack) {
			return ErrDuplicatePayload
		}
	}

	return nil
}

// setupAllTracks issues one SETUP per registered track, per the
// policy in spec §4.3: interleaved=N-(N+1), N starting at 0 and
// incrementing by 2.
func (s *Session) setupAllTracks() error {
	channel := 0
	for _, track := range s.registry.Tracks() {
		req := s.newRequest("SETUP", track.ControlURL)
		req.Header.Set("Transport", fmt.Sprintf("RTP/AVP/TCP;unicast;interleaved=%d-%d", channel, channel+1))

		resp, err := s.roundTripSync(req)
		if err != nil {
			return err
		}
		if resp.StatusCode != 200 {
			return fmt.Errorf("%w: SETUP track %d got %d", ErrNonOKStatus, track.ID, resp.StatusCode)
		}
		channel += 2
	}
	return nil
}

// Play implements the play trigger (spec §4.3): DESCRIBED -> PLAYING.
// After this returns successfully the caller must drive the session
// exclusively through ProcessMediaPacket; ownership of the socket and
// demuxer buffer hands off from the setup-phase caller to whichever
// goroutine calls ProcessMediaPacket (spec §5).
func (s *Session) Play() error {
	if s.State() != StateDescribed {
		return ErrWrongState
	}

	req := s.newRequest("PLAY", s.playURL())
	req.Header.Set("Range", "npt=0.000-")

	resp, err := s.roundTripSync(req)
	if err != nil {
		s.setState(StateError)
		return err
	}
	if resp.StatusCode != 200 {
		s.setState(StateError)
		return fmt.Errorf("%w: PLAY got %d", ErrNonOKStatus, resp.StatusCode)
	}

	if err := s.transition(triggerPlay); err != nil {
		s.setState(StateError)
		return err
	}
	return nil
}

func (s *Session) playURL() string {
	if s.contentBase != "" {
		return s.contentBase
	}
	return s.activeURL
}

// Stop implements the stop trigger (spec §4.3, §5): TEARDOWN with the
// request timeout; on any failure the state jumps to ERROR and the
// socket is closed regardless. This is expected to run on the caller
// goroutine while a separate goroutine may be concurrently calling
// ProcessMediaPacket; the two rendezvous through the correlator.
func (s *Session) Stop() error {
	if err := s.transition(triggerStop); err != nil {
		return err
	}

	req := s.newRequest("TEARDOWN", s.playURL())
	if err := s.corr.Register(req); err != nil {
		s.setState(StateError)
		_ = s.sock.Close()
		return err
	}

	if err := s.send(req); err != nil {
		s.corr.TakeForDirectReceive(req.CSeq)
		s.setState(StateError)
		_ = s.sock.Close()
		return err
	}

	resp, ok := s.corr.Wait(req.CSeq, s.cfg.RequestTimeout)
	if !ok || resp == nil || resp.StatusCode != 200 {
		s.setState(StateError)
		_ = s.sock.Close()
		if !ok {
			return ErrRequestTimeout
		}
		return ErrNonOKStatus
	}

	if err := s.transition(triggerTeardownComplete); err != nil {
		s.setState(StateError)
		_ = s.sock.Close()
		return err
	}
	s.corr.Abort()
	return s.sock.Close()
}

// ProcessMediaPacket implements spec §4.7: one non-blocking receive,
// then drain the demuxer, dispatching responses to the correlator and
// interleaved frames to the RTP receiver.
func (s *Session) ProcessMediaPacket() Outcome {
	if st := s.State(); st == StateError || st == StateStopped {
		return Failure
	}

	n, err := s.sock.RecvNonBlocking(s.readBuf)
	if err != nil {
		s.logger.Error("read failed, moving to ERROR", "error", err)
		s.setState(StateError)
		s.corr.Abort()
		return Failure
	}
	if n == 0 {
		return s.drain(TryAgain)
	}

	if err := s.demux.Append(s.readBuf[:n]); err != nil {
		s.logger.Error("framing error, moving to ERROR", "error", err)
		s.setState(StateError)
		s.corr.Abort()
		return Failure
	}

	return s.drain(Success)
}

// drain empties both demuxer FIFOs and returns the outcome the caller
// should see if nothing goes wrong (idle is passed through, since
// draining an already-empty demuxer is still "nothing to do now").
func (s *Session) drain(idle Outcome) Outcome {
	for _, msg := range s.demux.Messages() {
		if msg.Kind == KindResponse {
			s.logger.DebugCorrelator("correlating response", "cseq", msg.CSeq, "status", msg.StatusCode)
			s.corr.Complete(msg)
			continue
		}
		s.logger.DebugDemux("discarding unexpected inbound RTSP request", "method", msg.Method)
	}

	for _, frame := range s.demux.Interleaved() {
		s.logger.DebugDemux("dispatching interleaved frame", "channel", frame.Channel, "size", len(frame.Payload))
		s.receiver.OnData(frame.Channel, frame.Payload)
	}

	return idle
}

// NativeHandle exposes the signalling socket's file descriptor for
// external poll-group registration (spec §4.7).
func (s *Session) NativeHandle() (uintptr, error) {
	return s.sock.NativeHandle()
}

func (s *Session) newRequest(method, uri string) *Message {
	s.cseq++
	req := &Message{
		Kind:   KindRequest,
		Method: method,
		URI:    uri,
		Header: NewHeader(),
		CSeq:   s.cseq,
	}
	req.Header.Set("CSeq", strconv.Itoa(s.cseq))
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	if s.sessionID != "" {
		req.Header.Set("Session", s.sessionID)
	}
	return req
}

func (s *Session) send(req *Message) error {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte(' ')
	b.WriteString(req.URI)
	b.WriteString(" RTSP/1.0\r\n")
	for _, key := range req.Header.Keys() {
		v, _ := req.Header.Get(key)
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	return s.sock.Send([]byte(b.String()))
}

// roundTripSync implements the setup-phase dialogue: the caller
// thread writes the request and then drains the socket directly
// (spec §4.2 take_for_direct_receive) rather than going through the
// async Wait() path used post-PLAY, since nothing else is reading the
// socket yet.
func (s *Session) roundTripSync(req *Message) (*Message, error) {
	if err := s.corr.Register(req); err != nil {
		return nil, err
	}
	s.logger.DebugCorrelator("registered request", "method", req.Method, "cseq", req.CSeq)
	if err := s.send(req); err != nil {
		s.corr.TakeForDirectReceive(req.CSeq)
		return nil, err
	}

	deadline := time.Now().Add(s.cfg.RequestTimeout)
	for {
		if time.Now().After(deadline) {
			s.corr.TakeForDirectReceive(req.CSeq)
			return nil, ErrRequestTimeout
		}

		n, err := s.sock.Recv(s.readBuf, time.Until(deadline))
		if err != nil {
			if isTimeout(err) {
				continue
			}
			s.corr.TakeForDirectReceive(req.CSeq)
			return nil, fmt.Errorf("rtsp: recv: %w", err)
		}

		if err := s.demux.Append(s.readBuf[:n]); err != nil {
			s.corr.TakeForDirectReceive(req.CSeq)
			return nil, err
		}

		for _, msg := range s.demux.Messages() {
			if msg.Kind != KindResponse {
				continue
			}
			if msg.CSeq != req.CSeq {
				// A late/stale response or an out-of-order server
				// message; correlator handles the bookkeeping.
				s.corr.Complete(msg)
				continue
			}
			s.corr.TakeForDirectReceive(req.CSeq)
			return msg, nil
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

package rtsp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brinkline/rtspull/pkg/media"
	"github.com/brinkline/rtspull/pkg/sdp"
)

// fakeServer is a minimal RTSP responder over a real TCP listener, so
// Session exercises its actual socket dialer rather than a mocked
// collaborator. It answers DESCRIBE/SETUP/PLAY/TEARDOWN with scripted
// responses keyed by method.
type fakeServer struct {
	listener net.Listener
	sdpBody  string

	mu            sync.Mutex
	omitSession   bool
	badCodec      bool
	afterPlaySend []byte // extra bytes written on the same conn right after the PLAY response
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return &fakeServer{listener: ln}
}

func (f *fakeServer) addr() string { return f.listener.Addr().String() }

func (f *fakeServer) url() string { return fmt.Sprintf("rtsp://%s/stream", f.addr()) }

func (f *fakeServer) serveOne(t *testing.T) {
	t.Helper()
	conn, err := f.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		req, err := readRequest(reader)
		if err != nil {
			return
		}

		switch req.method {
		case "DESCRIBE":
			f.mu.Lock()
			omit := f.omitSession
			bad := f.badCodec
			f.mu.Unlock()

			sdpBody := f.sdpBody
			if bad {
				sdpBody = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=s\r\nt=0 0\r\n" +
					"m=video 0 RTP/AVP 97\r\na=rtpmap:97 MP4A-LATM/48000\r\na=control:trackID=1\r\n"
			}

			var b strings.Builder
			b.WriteString("RTSP/1.0 200 OK\r\n")
			fmt.Fprintf(&b, "CSeq: %d\r\n", req.cseq)
			if !omit {
				b.WriteString("Session: 12345678\r\n")
			}
			fmt.Fprintf(&b, "Content-Base: rtsp://%s/stream/\r\n", f.addr())
			b.WriteString("Content-Type: application/sdp\r\n")
			fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(sdpBody))
			b.WriteString(sdpBody)
			conn.Write([]byte(b.String()))

		case "SETUP":
			var b strings.Builder
			b.WriteString("RTSP/1.0 200 OK\r\n")
			fmt.Fprintf(&b, "CSeq: %d\r\n", req.cseq)
			b.WriteString("Session: 12345678\r\n")
			b.WriteString("Transport: RTP/AVP/TCP;unicast;interleaved=0-1\r\n\r\n")
			conn.Write([]byte(b.String()))

		case "PLAY":
			var b strings.Builder
			b.WriteString("RTSP/1.0 200 OK\r\n")
			fmt.Fprintf(&b, "CSeq: %d\r\n", req.cseq)
			b.WriteString("Session: 12345678\r\n\r\n")
			conn.Write([]byte(b.String()))

			f.mu.Lock()
			extra := f.afterPlaySend
			f.mu.Unlock()
			if extra != nil {
				conn.Write(extra)
			}

		case "TEARDOWN":
			var b strings.Builder
			b.WriteString("RTSP/1.0 200 OK\r\n")
			fmt.Fprintf(&b, "CSeq: %d\r\n", req.cseq)
			b.WriteString("Session: 12345678\r\n\r\n")
			conn.Write([]byte(b.String()))
			return

		default:
			return
		}
	}
}

type parsedRequest struct {
	method string
	cseq   int
}

func readRequest(r *bufio.Reader) (parsedRequest, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return parsedRequest{}, err
	}
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return parsedRequest{}, fmt.Errorf("bad request line: %q", line)
	}
	req := parsedRequest{method: fields[0]}

	for {
		hline, err := r.ReadString('\n')
		if err != nil {
			return parsedRequest{}, err
		}
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}
		if idx := strings.IndexByte(hline, ':'); idx > 0 {
			key := strings.TrimSpace(hline[:idx])
			value := strings.TrimSpace(hline[idx+1:])
			if strings.EqualFold(key, "CSeq") {
				fmt.Sscanf(value, "%d", &req.cseq)
			}
		}
	}
	return req, nil
}

const h264SDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 127.0.0.1\r\n" +
	"s=stream\r\n" +
	"t=0 0\r\n" +
	"m=video 0 RTP/AVP 96\r\n" +
	"a=rtpmap:96 H264/90000\r\n" +
	"a=control:trackID=1\r\n"

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URLList = []string{url}
	cfg.ConnectTimeout = time.Second
	cfg.RequestTimeout = time.Second
	return cfg
}

// Scenario 1 (spec.md §8): happy path, single video track, H.264.
func TestSession_HappyPathSingleVideoTrack(t *testing.T) {
	f := newFakeServer(t)
	f.sdpBody = h264SDP
	go f.serveOne(t)

	var sink collectingSink
	sess := New(testConfig(f.url()), &sdp.PionParser{}, &sink, nil)

	require.NoError(t, sess.Start(context.Background()))
	require.Equal(t, StateDescribed, sess.State())

	tracks := sess.Tracks()
	require.Len(t, tracks, 1)
	require.Equal(t, uint8(96), tracks[0].ID)
	require.EqualValues(t, "H264", tracks[0].Codec)
	require.Equal(t, uint32(1), tracks[0].Timebase.Num)
	require.Equal(t, uint32(90000), tracks[0].Timebase.Den)
	require.Equal(t, fmt.Sprintf("rtsp://%s/stream/trackID=1", f.addr()), tracks[0].ControlURL)

	require.NoError(t, sess.Play())
	require.Equal(t, StatePlaying, sess.State())

	// Stop waits for the TEARDOWN response through the correlator, so
	// the event-loop step has to keep draining the socket meanwhile.
	stopErr := make(chan error, 1)
	go func() { stopErr <- sess.Stop() }()
	var err error
	for stopped := false; !stopped; {
		select {
		case err = <-stopErr:
			stopped = true
		default:
			if sess.corr.Pending() > 0 {
				sess.ProcessMediaPacket()
			}
			time.Sleep(time.Millisecond)
		}
	}
	require.NoError(t, err)
	require.Equal(t, StateStopped, sess.State())
}

// Scenario 3 (spec.md §8): unsupported codec.
func TestSession_UnsupportedCodecFailsDescribe(t *testing.T) {
	f := newFakeServer(t)
	f.badCodec = true
	go f.serveOne(t)

	var sink collectingSink
	sess := New(testConfig(f.url()), &sdp.PionParser{}, &sink, nil)

	err := sess.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, StateError, sess.State())
}

// Scenario 4 (spec.md §8): missing Session header on DESCRIBE.
func TestSession_MissingSessionHeaderFailsDescribe(t *testing.T) {
	f := newFakeServer(t)
	f.sdpBody = h264SDP
	f.omitSession = true
	go f.serveOne(t)

	var sink collectingSink
	sess := New(testConfig(f.url()), &sdp.PionParser{}, &sink, nil)

	err := sess.Start(context.Background())
	require.ErrorIs(t, err, ErrMissingSession)
	require.Equal(t, StateError, sess.State())
}

func TestSession_ConnectToUnreachableHostFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLList = []string{"rtsp://127.0.0.1:1/stream"}
	cfg.ConnectTimeout = 200 * time.Millisecond

	var sink collectingSink
	sess := New(cfg, &sdp.PionParser{}, &sink, nil)

	start := time.Now()
	err := sess.Start(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	require.Equal(t, StateError, sess.State())
	require.Less(t, elapsed, 2*time.Second)
}

// Scenario 5 (spec.md §8): the PLAY 200 OK is followed on the same
// connection by an interleaved frame. Play must still complete, and
// draining the frame through ProcessMediaPacket must leave the session
// PLAYING. The frame's 4-byte payload is too short to be an RTP packet,
// so nothing reaches the sink.
func TestSession_FusedPlayResponseAndInterleavedFrame(t *testing.T) {
	f := newFakeServer(t)
	f.sdpBody = h264SDP
	f.afterPlaySend = []byte{0x24, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01}
	go f.serveOne(t)

	var sink collectingSink
	sess := New(testConfig(f.url()), &sdp.PionParser{}, &sink, nil)

	require.NoError(t, sess.Start(context.Background()))
	require.NoError(t, sess.Play())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sess.ProcessMediaPacket()
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, StatePlaying, sess.State())
}

type collectingSink struct {
	mu      sync.Mutex
	packets []media.Packet
}

func (s *collectingSink) SendFrame(pkt media.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = append(s.packets, pkt)
	return nil
}

package rtsp

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
)

// interleavedMagic is the leading byte of a binary interleaved frame,
// RFC 2326 §10.12.
const interleavedMagic = 0x24

// Interleaved is one reassembled `$<channel><len>` frame.
type Interleaved struct {
	Channel byte
	Payload []byte
}

// Demuxer splits a mixed inbound byte stream into complete RTSP
// messages and interleaved binary frames. It is a pure consumer of an
// append-only buffer with explicit incremental state — not a
// callback-driven loop over a socket — so it can be driven either
// synchronously during setup or from a non-blocking event-loop step.
type Demuxer struct {
	buf []byte

	messages     []*Message
	interleaved  []Interleaved
}

// NewDemuxer returns an empty demuxer.
func NewDemuxer() *Demuxer {
	return &Demuxer{}
}

// Append adds newly-received bytes and parses as many complete
// messages/frames as are available, greedily, from the head of the
// buffer. It returns ErrMalformedFrame if the buffer starts with a
// byte sequence that is neither a valid interleaved-frame header nor
// the start of an RTSP message.
func (d *Demuxer) Append(data []byte) error {
	d.buf = append(d.buf, data...)

	for {
		if len(d.buf) == 0 {
			return nil
		}

		if d.buf[0] == interleavedMagic {
			consumed, ok := d.parseInterleaved()
			if !ok {
				return nil // incomplete, wait for more bytes
			}
			d.buf = d.buf[consumed:]
			continue
		}

		consumed, msg, ok, err := d.parseMessage()
		if err != nil {
			return err
		}
		if !ok {
			return nil // incomplete, wait for more bytes
		}
		d.buf = d.buf[consumed:]
		d.messages = append(d.messages, msg)
	}
}

// parseInterleaved attempts to consume one `$<ch><len><payload>` frame
// from the head of the buffer. ok is false if more bytes are needed.
func (d *Demuxer) parseInterleaved() (consumed int, ok bool) {
	if len(d.buf) < 4 {
		return 0, false
	}
	channel := d.buf[1]
	length := int(binary.BigEndian.Uint16(d.buf[2:4]))
	total := 4 + length
	if len(d.buf) < total {
		return 0, false
	}
	payload := make([]byte, length)
	copy(payload, d.buf[4:total])
	d.interleaved = append(d.interleaved, Interleaved{Channel: channel, Payload: payload})
	return total, true
}

// parseMessage attempts to consume one RTSP text message (status/
// request line, headers, CRLF, optional Content-Length body) from the
// head of the buffer.
func (d *Demuxer) parseMessage() (consumed int, msg *Message, ok bool, err error) {
	headerEnd := bytes.Index(d.buf, []byte("\r\n\r\n"))
	if headerEnd < 0 {
		// Guard against a buffer that can never be a valid RTSP
		// message (neither '$' nor a plausible start line prefix).
		if len(d.buf) > 0 && !looksLikeStartLine(d.buf) {
			return 0, nil, false, ErrMalformedFrame
		}
		return 0, nil, false, nil
	}

	headerBlock := string(d.buf[:headerEnd])
	lines := strings.Split(headerBlock, "\r\n")
	if len(lines) == 0 {
		return 0, nil, false, ErrMalformedFrame
	}

	msg, err = parseStartLine(lines[0])
	if err != nil {
		return 0, nil, false, err
	}

	contentLength := 0
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		msg.Header.Set(key, value)
		if strings.EqualFold(key, "Content-Length") {
			if n, convErr := strconv.Atoi(value); convErr == nil {
				contentLength = n
			}
		}
	}

	bodyStart := headerEnd + 4
	total := bodyStart + contentLength
	if len(d.buf) < total {
		return 0, nil, false, nil
	}
	if contentLength > 0 {
		msg.Body = append([]byte(nil), d.buf[bodyStart:total]...)
	}

	if cseq, okCSeq := msg.cseq(); okCSeq {
		msg.CSeq = cseq
	}

	return total, msg, true, nil
}

// looksLikeStartLine reports whether the buffer could still become a
// valid RTSP start line once more bytes arrive; false only for byte
// sequences that are already unambiguously invalid.
func looksLikeStartLine(buf []byte) bool {
	// RTSP responses start with "RTSP/"; requests start with a method
	// token. Either way the first byte must be an ASCII letter —
	// reject obvious garbage (including a misplaced
	// continuation of a previous interleaved frame) early.
	c := buf[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func parseStartLine(line string) (*Message, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, ErrMalformedFrame
	}

	msg := &Message{Header: NewHeader()}

	if strings.HasPrefix(fields[0], "RTSP/") {
		if len(fields) < 3 {
			return nil, ErrMalformedFrame
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, ErrMalformedFrame
		}
		msg.Kind = KindResponse
		msg.StatusCode = code
		msg.ReasonPhrase = strings.Join(fields[2:], " ")
		return msg, nil
	}

	msg.Kind = KindRequest
	msg.Method = fields[0]
	msg.URI = fields[1]
	return msg, nil
}

// Messages drains and returns all fully-parsed RTSP messages in FIFO
// order.
func (d *Demuxer) Messages() []*Message {
	out := d.messages
	d.messages = nil
	return out
}

// Interleaved drains and returns all fully-parsed binary interleaved
// frames in FIFO order.
func (d *Demuxer) Interleaved() []Interleaved {
	out := d.interleaved
	d.interleaved = nil
	return out
}

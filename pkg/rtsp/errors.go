package rtsp

import "errors"

// Sentinel errors a caller can match with errors.Is, per the error
// taxonomy in the design notes: configuration, transport, protocol
// and media failures are distinguishable, not just wrapped strings.
var (
	ErrInvalidURL          = errors.New("rtsp: invalid or non-rtsp source URL")
	ErrNoCandidateURLs     = errors.New("rtsp: url_list is empty")
	ErrConnectTimeout      = errors.New("rtsp: connect timed out")
	ErrRequestTimeout      = errors.New("rtsp: request timed out waiting for response")
	ErrNonOKStatus         = errors.New("rtsp: non-200 response status")
	ErrMissingSession      = errors.New("rtsp: DESCRIBE response missing Session header")
	ErrMissingSDPBody      = errors.New("rtsp: DESCRIBE response missing SDP body")
	ErrUnsupportedCodec    = errors.New("rtsp: unsupported video codec")
	ErrMissingControlAttr  = errors.New("rtsp: media description missing a=control attribute")
	ErrDuplicatePayload    = errors.New("rtsp: two media descriptions share one RTP payload type")
	ErrMalformedFrame      = errors.New("rtsp: malformed byte stream")
	ErrWrongState          = errors.New("rtsp: operation not valid in current session state")
	ErrSessionClosed       = errors.New("rtsp: session is in ERROR or STOPPED and cannot be reused")
	errInvalidInteger      = errors.New("rtsp: invalid integer")
	errCSeqAlreadyPending  = errors.New("rtsp: CSeq already has a pending response slot")
)

package rtp

import "errors"

var errUnsupportedCodec = errors.New("rtp: unsupported codec")

// ErrUnsupportedCodec is exported so callers (notably the session's
// DESCRIBE handling) can errors.Is against it.
var ErrUnsupportedCodec = errUnsupportedCodec

// Package sdp resolves the subset of SDP this client needs — video/
// audio media descriptions, their rtpmap codec and clock rate, and
// their a=control attribute — on top of github.com/pion/sdp/v3, the
// same library the wider RTSP-client ecosystem (bluenviron/gortsplib,
// bluenviron/mediamtx) uses for this job. Full SDP parsing is a
// separately-specified collaborator (spec §1, §6); this package only
// projects out the fields the session needs.
package sdp

import (
	"errors"
	"strconv"
	"strings"

	pionsdp "github.com/pion/sdp/v3"
)

// ErrNoRTPMap is returned when a media description has no rtpmap
// attribute matching its own payload-type format.
var ErrNoRTPMap = errors.New("sdp: media description has no matching rtpmap attribute")

// MediaKind is "video" or "audio" per spec §6.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// Media is the projection of one m= section this client cares about.
type Media struct {
	Kind        MediaKind
	PayloadType uint8
	Codec       string // e.g. "H264", "VP8", "opus"
	ClockRate   uint32
	Control     string // raw a=control value, unresolved
}

// Description is the projection of a full SDP body.
type Description struct {
	Media []Media
}

// Parser is the SDP-parser collaborator interface (spec §6).
type Parser interface {
	Parse(text []byte) (*Description, error)
}

// PionParser implements Parser on top of pion/sdp/v3.
type PionParser struct{}

func (PionParser) Parse(text []byte) (*Description, error) {
	var raw pionsdp.SessionDescription
	if err := raw.Unmarshal(text); err != nil {
		return nil, err
	}

	desc := &Description{}
	for _, md := range raw.MediaDescriptions {
		kind := MediaKind(md.MediaName.Media)
		if kind != KindVideo && kind != KindAudio {
			continue
		}
		if len(md.MediaName.Formats) == 0 {
			continue
		}

		pt, err := strconv.Atoi(md.MediaName.Formats[0])
		if err != nil {
			continue
		}

		codec, clockRate, ok := rtpMapFor(md.Attributes, pt)
		if !ok {
			return nil, ErrNoRTPMap
		}

		control := ""
		for _, attr := range md.Attributes {
			if attr.Key == "control" {
				control = attr.Value
				break
			}
		}

		desc.Media = append(desc.Media, Media{
			Kind:        kind,
			PayloadType: uint8(pt),
			Codec:       codec,
			ClockRate:   clockRate,
			Control:     control,
		})
	}
	return desc, nil
}

// rtpMapFor finds "a=rtpmap:<pt> <codec>/<clockrate>" for a given
// payload type.
func rtpMapFor(attrs []pionsdp.Attribute, pt int) (codec string, clockRate uint32, ok bool) {
	prefix := strconv.Itoa(pt) + " "
	for _, attr := range attrs {
		if attr.Key != "rtpmap" {
			continue
		}
		if !strings.HasPrefix(attr.Value, prefix) {
			continue
		}
		rest := strings.TrimPrefix(attr.Value, prefix)
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			continue
		}
		rate, err := strconv.Atoi(strings.SplitN(parts[1], "/", 2)[0])
		if err != nil {
			continue
		}
		return parts[0], uint32(rate), true
	}
	return "", 0, false
}

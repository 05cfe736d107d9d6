package rtp

import "sync"

// Timebase is num=1, den=clock-rate, per spec §3.
type Timebase struct {
	Num uint32
	Den uint32
}

// MediaKind mirrors sdp.MediaKind without importing the sdp package,
// keeping this package's only external dependency on media/codec
// shapes rather than SDP parsing details.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// Track is the per-payload-type track descriptor (spec §3).
type Track struct {
	ID          uint8 // == RTP payload type
	Kind        MediaKind
	Codec       Codec
	Timebase    Timebase
	ControlURL  string
}

// Registry maps RTP payload-type to track metadata and its codec-
// specific depacketizer (spec §2 "Track/depacketizer registry",
// populated during DESCRIBE handling).
type Registry struct {
	mu            sync.RWMutex
	tracks        map[uint8]*Track
	depacketizers map[uint8]Depacketizer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tracks:        make(map[uint8]*Track),
		depacketizers: make(map[uint8]Depacketizer),
	}
}

// Add registers a track and its depacketizer under its payload type.
// It reports false if that payload type is already registered, so
// callers can enforce the "payload-type uniquely identifies a track"
// assumption (spec §9 "channel id ignored").
func (r *Registry) Add(track *Track, depack Depacketizer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tracks[track.ID]; exists {
		return false
	}
	r.tracks[track.ID] = track
	r.depacketizers[track.ID] = depack
	return true
}

// Track looks up a track by payload type.
func (r *Registry) Track(payloadType uint8) (*Track, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tracks[payloadType]
	return t, ok
}

// Depacketizer looks up a depacketizer by payload type.
func (r *Registry) Depacketizer(payloadType uint8) (Depacketizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.depacketizers[payloadType]
	return d, ok
}

// Tracks returns every registered track, for SETUP iteration.
func (r *Registry) Tracks() []*Track {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Track, 0, len(r.tracks))
	for _, t := range r.tracks {
		out = append(out, t)
	}
	return out
}

package rtp

import "sync"

// Normalizer implements the per-payload-type timestamp accumulation
// in spec §4.6: the first packet of a payload-type outputs 0, and
// every subsequent packet advances the accumulated total by the
// unsigned 32-bit delta from the last raw RTP timestamp, so a true
// wraparound (0xFFFFFFFF -> 0x00000050) produces a small positive
// delta instead of a huge negative one.
type Normalizer struct {
	mu    sync.Mutex
	state map[uint8]*tsState
}

type tsState struct {
	lastRaw    uint32
	accumulated uint64
	seen       bool
}

// NewNormalizer returns a normaliser with no payload-types observed
// yet.
func NewNormalizer() *Normalizer {
	return &Normalizer{state: make(map[uint8]*tsState)}
}

// Normalize advances the accumulated timestamp for payloadType given
// the next raw 32-bit RTP timestamp, and returns the new accumulated
// value.
func (n *Normalizer) Normalize(payloadType uint8, raw uint32) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	st, ok := n.state[payloadType]
	if !ok {
		st = &tsState{}
		n.state[payloadType] = st
	}

	if !st.seen {
		st.seen = true
		st.lastRaw = raw
		st.accumulated = 0
		return 0
	}

	delta := uint64(raw - st.lastRaw) // unsigned 32-bit subtraction wraps positively
	st.accumulated += delta
	st.lastRaw = raw
	return st.accumulated
}

// Reset discards all per-payload-type state, for session reuse across
// a fresh PLAY on the same registry (not used by the core session
// lifecycle, which always starts a new Normalizer, but kept for
// embedding callers that want to replay a capture).
func (n *Normalizer) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = make(map[uint8]*tsState)
}

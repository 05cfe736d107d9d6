package rtsp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCorrelator_RegisterCompleteWait(t *testing.T) {
	c := NewCorrelator()
	req := &Message{CSeq: 1}
	require.NoError(t, c.Register(req))
	require.Equal(t, 1, c.Pending())

	resp := &Message{Kind: KindResponse, CSeq: 1, StatusCode: 200}

	done := make(chan struct{})
	var got *Message
	var ok bool
	go func() {
		got, ok = c.Wait(1, time.Second)
		close(done)
	}()

	// Give Wait a moment to register itself against the slot before
	// completing it, mirroring the real caller/event-loop handoff.
	time.Sleep(10 * time.Millisecond)
	c.Complete(resp)
	<-done

	require.True(t, ok)
	require.Same(t, resp, got)
	require.Equal(t, 0, c.Pending())
}

func TestCorrelator_WaitTimesOut(t *testing.T) {
	c := NewCorrelator()
	req := &Message{CSeq: 5}
	require.NoError(t, c.Register(req))

	_, ok := c.Wait(5, 20*time.Millisecond)
	require.False(t, ok)
	require.Equal(t, 0, c.Pending())
}

func TestCorrelator_RegisterDuplicateCSeqFails(t *testing.T) {
	c := NewCorrelator()
	require.NoError(t, c.Register(&Message{CSeq: 1}))
	err := c.Register(&Message{CSeq: 1})
	require.Error(t, err)
}

func TestCorrelator_CompleteUnknownCSeqIsNoOp(t *testing.T) {
	c := NewCorrelator()
	require.NotPanics(t, func() {
		c.Complete(&Message{Kind: KindResponse, CSeq: 99})
	})
}

func TestCorrelator_TakeForDirectReceive(t *testing.T) {
	c := NewCorrelator()
	req := &Message{CSeq: 2}
	require.NoError(t, c.Register(req))

	got, ok := c.TakeForDirectReceive(2)
	require.True(t, ok)
	require.Same(t, req, got)
	require.Equal(t, 0, c.Pending())

	_, ok = c.TakeForDirectReceive(2)
	require.False(t, ok)
}

func TestCorrelator_AbortFailsAllPending(t *testing.T) {
	c := NewCorrelator()
	require.NoError(t, c.Register(&Message{CSeq: 1}))
	require.NoError(t, c.Register(&Message{CSeq: 2}))
	require.Equal(t, 2, c.Pending())

	c.Abort()
	require.Equal(t, 0, c.Pending())
}

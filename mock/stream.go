package mock

import (
	"io"

	"repochat"
)

// Interface compliance checks.
var (
	_ repochat.Stream = (*Stream)(nil)
	_ repochat.Stream = (*ScriptedStream)(nil)
)

// Stream is a test double for repochat.Stream.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe because
// test code commonly calls defer stream.Close().
type Stream struct {
	NextFn  func() (repochat.StreamEvent, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (repochat.StreamEvent, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// ScriptedStream yields a fixed event sequence, then io.EOF. Closed reports
// whether the consumer released the handle.
type ScriptedStream struct {
	events []repochat.StreamEvent
	pos    int
	Closed bool
}

// NewScriptedStream creates a stream that replays events in order.
func NewScriptedStream(events ...repochat.StreamEvent) *ScriptedStream {
	return &ScriptedStream{events: events}
}

// Next returns the next scripted event, or io.EOF once exhausted.
func (s *ScriptedStream) Next() (repochat.StreamEvent, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	evt := s.events[s.pos]
	s.pos++
	return evt, nil
}

// Close marks the stream released.
func (s *ScriptedStream) Close() error {
	s.Closed = true
	return nil
}

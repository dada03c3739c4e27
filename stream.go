package repochat

import "context"

// Stream is a pull-based iterator over classified stream events.
//
// Next returns io.EOF when the underlying byte stream ends; any other error
// is a transport failure. Terminal protocol conditions (complete, done,
// error records) arrive as events, not as Next errors. Cancellation flows
// through the context passed to Backend.Send; a cancelled context surfaces
// as a Next error.
type Stream interface {
	Next() (StreamEvent, error)
	Close() error
}

// Backend is a strategy pattern interface for the assistant service
// transport. Send issues the single outbound request for a turn and returns
// a live, cancellable stream handle.
type Backend interface {
	Send(ctx context.Context, req Request) (Stream, error)
}

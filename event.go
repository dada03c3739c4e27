package repochat

import "encoding/json"

// StreamEvent is a sealed interface representing one classified record from
// the assistant event stream. Events are purely semantic. Transport failures
// come from Stream.Next()'s error return, not from events.
// The unexported marker method prevents external implementations.
type StreamEvent interface {
	streamEvent()
}

// EventMetadata carries the session correlation identifiers. Expected at most
// meaningfully once per turn; later deliveries are idempotent.
type EventMetadata struct {
	ChatID         string
	ConversationID string
}

func (EventMetadata) streamEvent() {}

// EventToken is an increment of assistant-authored text. Content may be the
// empty string; an empty token is still a delivery and must not be dropped.
type EventToken struct {
	Content string
}

func (EventToken) streamEvent() {}

// EventFunctionCall announces that a tool invocation has started server-side.
type EventFunctionCall struct {
	Name      string
	Arguments json.RawMessage
}

func (EventFunctionCall) streamEvent() {}

// EventFunctionComplete completes a previously announced tool invocation.
// Correlation is by name plus still-pending status; the wire carries no call id.
type EventFunctionComplete struct {
	Name   string
	Result json.RawMessage
}

func (EventFunctionComplete) streamEvent() {}

// EventComplete is the normal terminal marker. Usage is nil when the server
// sent no accounting payload.
type EventComplete struct {
	Usage *DailyUsage
}

func (EventComplete) streamEvent() {}

// EventError signals a failure. Type ErrorTypeParse marks a malformed record
// that should be surfaced without aborting the turn; every other type is
// terminal for the turn.
type EventError struct {
	Message string
	Type    ErrorType
}

func (EventError) streamEvent() {}

// EventDone is the explicit stream-end marker. It carries no payload and may
// arrive with or without a preceding EventComplete.
type EventDone struct{}

func (EventDone) streamEvent() {}

// Interface compliance checks.
var (
	_ StreamEvent = EventMetadata{}
	_ StreamEvent = EventToken{}
	_ StreamEvent = EventFunctionCall{}
	_ StreamEvent = EventFunctionComplete{}
	_ StreamEvent = EventComplete{}
	_ StreamEvent = EventError{}
	_ StreamEvent = EventDone{}
)

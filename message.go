package repochat

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CallStatus is the lifecycle state of a tool invocation record.
type CallStatus string

const (
	CallCalling  CallStatus = "calling"
	CallComplete CallStatus = "complete"
	CallError    CallStatus = "error"
)

// FunctionCallRecord tracks one tool invocation inside a message. It is owned
// exclusively by the containing message and shares its lifetime.
type FunctionCallRecord struct {
	Name      string
	Status    CallStatus
	Arguments json.RawMessage
	Result    json.RawMessage
}

// Message is one transcript entry. A message with FunctionCalls set and empty
// Content is a tool bubble; a message with non-empty Content is a text
// bubble. The two are mutually exclusive for a single message, but one
// assistant turn may span several messages (tool bubbles, then a text bubble).
type Message struct {
	ID              string
	Role            Role
	Content         string
	Timestamp       time.Time
	ContextMetadata map[string]string
	FunctionCalls   []FunctionCallRecord
}

// IsToolBubble reports whether the message is an assistant tool-bubble
// placeholder: empty content with at least one function call record.
func (m Message) IsToolBubble() bool {
	return m.Role == RoleAssistant && m.Content == "" && len(m.FunctionCalls) > 0
}

// NewMessageID returns a fresh ULID. Message identity is what rollback keys
// on, so every transcript entry gets one.
func NewMessageID() string {
	return ulid.Make().String()
}

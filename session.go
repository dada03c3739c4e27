package repochat

import "time"

// ChatSession holds the correlation identifiers for the live session.
// ChatID identifies the durable session; ConversationID identifies a
// resettable thread within it. Both are writable only through a received
// metadata event or the explicit NewConversation/Reset operations.
type ChatSession struct {
	ChatID         string
	ConversationID string
}

// ApplyMetadata records the identifiers from a metadata event. First write
// wins: an identifier that is already set is never overwritten, which makes
// re-sent metadata idempotent. Returns true when either field changed.
func (s *ChatSession) ApplyMetadata(chatID, conversationID string) bool {
	changed := false
	if s.ChatID == "" && chatID != "" {
		s.ChatID = chatID
		changed = true
	}
	if s.ConversationID == "" && conversationID != "" {
		s.ConversationID = conversationID
		changed = true
	}
	return changed
}

// NewConversation clears the conversation identifier, starting a fresh thread
// inside the same durable session.
func (s *ChatSession) NewConversation() {
	s.ConversationID = ""
}

// Reset clears both identifiers, abandoning the session entirely.
func (s *ChatSession) Reset() {
	s.ChatID = ""
	s.ConversationID = ""
}

// ChatSummary is one entry of the server-side chat history listing. The
// history list is read-only with respect to the live transcript.
type ChatSummary struct {
	ID        string
	Title     string
	UpdatedAt time.Time
}

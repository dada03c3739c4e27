package repochat

// Transcript is the ordered list of messages for the live session. It is
// append-only while a turn is streaming; the only removal path is the
// identity-based rollback applied after a generic terminal error.
type Transcript struct {
	Messages []Message
}

// Append adds a message at the end.
func (t *Transcript) Append(msg Message) {
	t.Messages = append(t.Messages, msg)
}

// Len returns the number of messages.
func (t Transcript) Len() int {
	return len(t.Messages)
}

// Last returns a pointer to the final message, or nil when empty. The pointer
// stays valid until the next Append.
func (t *Transcript) Last() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}

// IndexOf returns the position of the message with the given id, or -1.
func (t *Transcript) IndexOf(id string) int {
	for i := range t.Messages {
		if t.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// RemoveByID deletes the messages with the given ids, wherever they sit.
// Rollback removes exactly the turn's own insertions by identity rather than
// popping from the tail, because a history refresh may have appended entries
// in between.
func (t *Transcript) RemoveByID(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := t.Messages[:0]
	for _, msg := range t.Messages {
		if !drop[msg.ID] {
			kept = append(kept, msg)
		}
	}
	t.Messages = kept
}

// Snapshot returns a deep copy safe to hand to observers while the live
// transcript keeps mutating.
func (t *Transcript) Snapshot() Transcript {
	msgs := make([]Message, len(t.Messages))
	copy(msgs, t.Messages)
	for i := range msgs {
		if len(msgs[i].FunctionCalls) > 0 {
			calls := make([]FunctionCallRecord, len(msgs[i].FunctionCalls))
			copy(calls, msgs[i].FunctionCalls)
			msgs[i].FunctionCalls = calls
		}
		if len(msgs[i].ContextMetadata) > 0 {
			meta := make(map[string]string, len(msgs[i].ContextMetadata))
			for k, v := range msgs[i].ContextMetadata {
				meta[k] = v
			}
			msgs[i].ContextMetadata = meta
		}
	}
	return Transcript{Messages: msgs}
}

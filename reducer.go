package repochat

import (
	"strings"
	"time"
)

// TurnReducer folds one turn's event sequence, strictly in arrival order,
// into transcript and session state. Out-of-order or batched application is
// incorrect: token accumulation and function-complete correlation both
// depend on ordering.
//
// The reducer owns the session identifiers for the duration of the turn and
// tracks the identity of every message it inserts so that rollback can
// remove exactly those entries.
type TurnReducer struct {
	transcript *Transcript
	session    *ChatSession

	// acc is the running assistant text for this turn. Text bubbles always
	// hold the accumulator's full current value, not a delta.
	acc strings.Builder

	// toolMsgID / textMsgID identify this turn's open tool bubble and text
	// bubble. They gate the "extend the last message" transitions so the
	// reducer never mutates entries from a previous turn.
	toolMsgID string
	textMsgID string

	inserted  []string
	delivered bool
	usage     *DailyUsage
	failure   *AssistError
	notices   []string
	done      bool
}

// NewTurnReducer creates a reducer for one turn over the given transcript
// and session. Both must not be mutated by anyone else until the turn ends.
func NewTurnReducer(transcript *Transcript, session *ChatSession) *TurnReducer {
	return &TurnReducer{transcript: transcript, session: session}
}

// Apply folds a single event. It returns true when the turn is finished and
// no further events should be consumed.
func (r *TurnReducer) Apply(evt StreamEvent) bool {
	if r.done {
		return true
	}

	switch e := evt.(type) {
	case EventMetadata:
		r.session.ApplyMetadata(e.ChatID, e.ConversationID)

	case EventFunctionCall:
		r.delivered = true
		r.applyFunctionCall(e)

	case EventFunctionComplete:
		r.applyFunctionComplete(e)

	case EventToken:
		r.delivered = true
		r.applyToken(e)

	case EventComplete:
		r.usage = e.Usage

	case EventError:
		if e.Type == ErrorTypeParse {
			// Malformed records are surfaced but never abort the stream.
			r.notices = append(r.notices, e.Message)
			return false
		}
		r.failure = &AssistError{Message: e.Message, Type: e.Type}
		r.done = true

	case EventDone:
		r.done = true
	}

	return r.done
}

func (r *TurnReducer) applyFunctionCall(e EventFunctionCall) {
	rec := FunctionCallRecord{Name: e.Name, Status: CallCalling, Arguments: e.Arguments}

	if last := r.transcript.Last(); last != nil && last.ID == r.toolMsgID && last.IsToolBubble() {
		last.FunctionCalls = append(last.FunctionCalls, rec)
		return
	}

	msg := Message{
		ID:            NewMessageID(),
		Role:          RoleAssistant,
		Timestamp:     time.Now(),
		FunctionCalls: []FunctionCallRecord{rec},
	}
	r.transcript.Append(msg)
	r.inserted = append(r.inserted, msg.ID)
	r.toolMsgID = msg.ID
}

// applyFunctionComplete correlates by name plus pending status; the wire
// carries no call id. Two in-flight calls to the same tool cannot be told
// apart, so a protocol revision only needs to change this function.
func (r *TurnReducer) applyFunctionComplete(e EventFunctionComplete) {
	last := r.transcript.Last()
	if last == nil {
		return
	}
	for i := range last.FunctionCalls {
		rec := &last.FunctionCalls[i]
		if rec.Name == e.Name && rec.Status == CallCalling {
			rec.Status = CallComplete
			rec.Result = e.Result
			return
		}
	}
	// No pending record with that name: drop the event rather than create a
	// dangling record.
}

func (r *TurnReducer) applyToken(e EventToken) {
	r.acc.WriteString(e.Content)

	last := r.transcript.Last()

	// Tool output and narrative text never share a bubble: text arriving
	// after a tool bubble opens a new message.
	if last != nil && last.ID == r.textMsgID && r.textMsgID != "" {
		last.Content = r.acc.String()
		return
	}

	msg := Message{
		ID:        NewMessageID(),
		Role:      RoleAssistant,
		Content:   r.acc.String(),
		Timestamp: time.Now(),
	}
	r.transcript.Append(msg)
	r.inserted = append(r.inserted, msg.ID)
	r.textMsgID = msg.ID
	r.toolMsgID = ""
}

// TakeNotices returns and clears the accumulated non-fatal notices
// (malformed-record messages).
func (r *TurnReducer) TakeNotices() []string {
	n := r.notices
	r.notices = nil
	return n
}

// Inserted returns the identities of every message this turn added.
func (r *TurnReducer) Inserted() []string {
	return r.inserted
}

// Finish resolves the turn after the event sequence ends. A stream that
// closed without delivering a single token or function call is a failure
// even when no error record was seen.
func (r *TurnReducer) Finish() (*DailyUsage, *AssistError) {
	if r.failure != nil {
		return nil, r.failure
	}
	if !r.delivered {
		return nil, &AssistError{Message: "no response received", Type: ErrorTypeNoResponse}
	}
	return r.usage, nil
}

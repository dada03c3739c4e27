package repochat_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repochat"
)

// fold runs a fresh reducer over the events and returns it with its state.
func fold(t *testing.T, tr *repochat.Transcript, s *repochat.ChatSession, events ...repochat.StreamEvent) *repochat.TurnReducer {
	t.Helper()
	r := repochat.NewTurnReducer(tr, s)
	for _, evt := range events {
		if r.Apply(evt) {
			break
		}
	}
	return r
}

func TestTurnReducer_Metadata(t *testing.T) {
	t.Parallel()

	t.Run("sets session identifiers", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s, repochat.EventMetadata{ChatID: "c1", ConversationID: "v1"})
		assert.Equal(t, repochat.ChatSession{ChatID: "c1", ConversationID: "v1"}, s)
		assert.Zero(t, tr.Len(), "metadata does not touch the transcript")
	})

	t.Run("replaying metadata leaves identifiers unchanged", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s,
			repochat.EventMetadata{ChatID: "c1", ConversationID: "v1"},
			repochat.EventMetadata{ChatID: "c2", ConversationID: "v2"},
		)
		assert.Equal(t, repochat.ChatSession{ChatID: "c1", ConversationID: "v1"}, s)
	})
}

func TestTurnReducer_ToolTextSeparation(t *testing.T) {
	t.Parallel()

	var tr repochat.Transcript
	var s repochat.ChatSession
	fold(t, &tr, &s,
		repochat.EventFunctionCall{Name: "search", Arguments: json.RawMessage(`{"q":"it"}`)},
		repochat.EventFunctionComplete{Name: "search", Result: json.RawMessage(`"hit"`)},
		repochat.EventToken{Content: "Found it"},
	)

	require.Equal(t, 2, tr.Len())

	bubble := tr.Messages[0]
	assert.Equal(t, repochat.RoleAssistant, bubble.Role)
	assert.Empty(t, bubble.Content)
	require.Len(t, bubble.FunctionCalls, 1)
	assert.Equal(t, "search", bubble.FunctionCalls[0].Name)
	assert.Equal(t, repochat.CallComplete, bubble.FunctionCalls[0].Status)
	assert.JSONEq(t, `"hit"`, string(bubble.FunctionCalls[0].Result))

	text := tr.Messages[1]
	assert.Equal(t, repochat.RoleAssistant, text.Role)
	assert.Equal(t, "Found it", text.Content)
	assert.Empty(t, text.FunctionCalls)
}

func TestTurnReducer_FunctionCalls(t *testing.T) {
	t.Parallel()

	t.Run("consecutive calls share one tool bubble", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s,
			repochat.EventFunctionCall{Name: "search"},
			repochat.EventFunctionCall{Name: "read"},
		)
		require.Equal(t, 1, tr.Len())
		require.Len(t, tr.Messages[0].FunctionCalls, 2)
		assert.Equal(t, "search", tr.Messages[0].FunctionCalls[0].Name)
		assert.Equal(t, "read", tr.Messages[0].FunctionCalls[1].Name)
	})

	t.Run("complete matches the pending record by name", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s,
			repochat.EventFunctionCall{Name: "search"},
			repochat.EventFunctionCall{Name: "search"},
			repochat.EventFunctionComplete{Name: "search", Result: json.RawMessage(`1`)},
		)
		calls := tr.Messages[0].FunctionCalls
		require.Len(t, calls, 2)
		assert.Equal(t, repochat.CallComplete, calls[0].Status, "first pending record wins")
		assert.Equal(t, repochat.CallCalling, calls[1].Status)
	})

	t.Run("complete without a pending match is a no-op", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s,
			repochat.EventFunctionCall{Name: "search"},
			repochat.EventFunctionComplete{Name: "write", Result: json.RawMessage(`1`)},
		)
		calls := tr.Messages[0].FunctionCalls
		require.Len(t, calls, 1, "no dangling record is created")
		assert.Equal(t, repochat.CallCalling, calls[0].Status)
	})

	t.Run("complete on an empty transcript is a no-op", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s, repochat.EventFunctionComplete{Name: "search"})
		assert.Zero(t, tr.Len())
	})

	t.Run("a previous turn's tool bubble is never extended", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		tr.Append(repochat.Message{
			ID:   "old",
			Role: repochat.RoleAssistant,
			FunctionCalls: []repochat.FunctionCallRecord{
				{Name: "search", Status: repochat.CallComplete},
			},
		})
		var s repochat.ChatSession
		fold(t, &tr, &s, repochat.EventFunctionCall{Name: "read"})
		require.Equal(t, 2, tr.Len())
		assert.Len(t, tr.Messages[0].FunctionCalls, 1)
		assert.Len(t, tr.Messages[1].FunctionCalls, 1)
	})
}

func TestTurnReducer_Tokens(t *testing.T) {
	t.Parallel()

	t.Run("accumulate into a single text bubble", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s,
			repochat.EventToken{Content: "Hel"},
			repochat.EventToken{Content: "lo"},
		)
		require.Equal(t, 1, tr.Len())
		assert.Equal(t, "Hello", tr.Messages[0].Content)
	})

	t.Run("empty token opens the bubble and counts as a delivery", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		r := fold(t, &tr, &s,
			repochat.EventToken{Content: ""},
			repochat.EventToken{Content: "1. a.py"},
			repochat.EventDone{},
		)
		require.Equal(t, 1, tr.Len())
		assert.Equal(t, "1. a.py", tr.Messages[0].Content)
		_, aerr := r.Finish()
		assert.Nil(t, aerr)
	})

	t.Run("text after a tool bubble starts a new message", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		fold(t, &tr, &s,
			repochat.EventFunctionCall{Name: "search"},
			repochat.EventToken{Content: "Done."},
		)
		require.Equal(t, 2, tr.Len())
		assert.True(t, tr.Messages[0].IsToolBubble())
		assert.Equal(t, "Done.", tr.Messages[1].Content)
	})

	t.Run("a previous turn's text message is never rewritten", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		tr.Append(repochat.Message{ID: "old", Role: repochat.RoleAssistant, Content: "earlier answer"})
		var s repochat.ChatSession
		fold(t, &tr, &s, repochat.EventToken{Content: "new"})
		require.Equal(t, 2, tr.Len())
		assert.Equal(t, "earlier answer", tr.Messages[0].Content)
		assert.Equal(t, "new", tr.Messages[1].Content)
	})
}

func TestTurnReducer_Terminal(t *testing.T) {
	t.Parallel()

	t.Run("complete records usage without touching the transcript", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		r := fold(t, &tr, &s,
			repochat.EventToken{Content: "hi"},
			repochat.EventComplete{Usage: &repochat.DailyUsage{Used: 3, Limit: 50}},
			repochat.EventDone{},
		)
		usage, aerr := r.Finish()
		require.Nil(t, aerr)
		require.NotNil(t, usage)
		assert.Equal(t, repochat.DailyUsage{Used: 3, Limit: 50}, *usage)
		assert.Equal(t, 1, tr.Len())
	})

	t.Run("done without complete succeeds with nil usage", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		r := fold(t, &tr, &s,
			repochat.EventToken{Content: "hi"},
			repochat.EventDone{},
		)
		usage, aerr := r.Finish()
		assert.Nil(t, aerr)
		assert.Nil(t, usage)
	})

	t.Run("events after done are ignored", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		r := repochat.NewTurnReducer(&tr, &s)
		r.Apply(repochat.EventToken{Content: "hi"})
		assert.True(t, r.Apply(repochat.EventDone{}))
		assert.True(t, r.Apply(repochat.EventToken{Content: " more"}))
		assert.Equal(t, "hi", tr.Messages[0].Content)
	})

	t.Run("error aborts the fold", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		r := repochat.NewTurnReducer(&tr, &s)
		r.Apply(repochat.EventToken{Content: "partial"})
		done := r.Apply(repochat.EventError{Message: "model exploded", Type: repochat.ErrorTypeServer})
		assert.True(t, done)
		_, aerr := r.Finish()
		require.NotNil(t, aerr)
		assert.Equal(t, repochat.ErrorTypeServer, aerr.Type)
		assert.Equal(t, "model exploded", aerr.Message)
	})

	t.Run("parse errors surface as notices and do not abort", func(t *testing.T) {
		t.Parallel()
		var tr repochat.Transcript
		var s repochat.ChatSession
		r := repochat.NewTurnReducer(&tr, &s)
		done := r.Apply(repochat.EventError{Message: "malformed stream record", Type: repochat.ErrorTypeParse})
		assert.False(t, done)
		r.Apply(repochat.EventToken{Content: "still here"})
		r.Apply(repochat.EventDone{})

		assert.Equal(t, []string{"malformed stream record"}, r.TakeNotices())
		assert.Empty(t, r.TakeNotices(), "notices are drained")
		_, aerr := r.Finish()
		assert.Nil(t, aerr)
		assert.Equal(t, "still here", tr.Messages[0].Content)
	})
}

func TestTurnReducer_SilentStreamIsFailure(t *testing.T) {
	t.Parallel()

	var tr repochat.Transcript
	var s repochat.ChatSession
	r := fold(t, &tr, &s,
		repochat.EventMetadata{ChatID: "c1", ConversationID: "v1"},
		repochat.EventDone{},
	)

	usage, aerr := r.Finish()
	assert.Nil(t, usage)
	require.NotNil(t, aerr)
	assert.Equal(t, repochat.ErrorTypeNoResponse, aerr.Type)
	assert.Zero(t, tr.Len())
}

func TestTurnReducer_InsertedTracksIdentities(t *testing.T) {
	t.Parallel()

	var tr repochat.Transcript
	var s repochat.ChatSession
	r := fold(t, &tr, &s,
		repochat.EventFunctionCall{Name: "search"},
		repochat.EventToken{Content: "answer"},
	)

	ids := r.Inserted()
	require.Len(t, ids, 2)
	assert.Equal(t, tr.Messages[0].ID, ids[0])
	assert.Equal(t, tr.Messages[1].ID, ids[1])
}

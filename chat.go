package repochat

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Chat orchestrates turns against a Backend: it owns the live transcript and
// session identifiers, admits one turn at a time, folds the event stream
// through a TurnReducer, and applies the recovery policy on failure.
//
// The transcript is exposed as observable state (snapshots through OnChange
// and Transcript()), not as a return value, because it updates incrementally
// while Send is still running.
type Chat struct {
	backend Backend

	token        string
	repositoryID string
	branch       string
	provider     string
	model        string
	temperature  *float64
	maxTokens    int
	contextMode  ContextMode

	onChange     func(Transcript)
	onResolution func(Resolution)
	logger       *slog.Logger

	mu         sync.Mutex
	session    ChatSession
	transcript Transcript
	cancel     context.CancelFunc

	loading atomic.Bool
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithProvider sets the server-side provider selection.
func WithProvider(p string) ChatOption { return func(c *Chat) { c.provider = p } }

// WithModel sets the model ID. Empty string means the server default.
func WithModel(m string) ChatOption { return func(c *Chat) { c.model = m } }

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ChatOption { return func(c *Chat) { c.temperature = &t } }

// WithMaxTokens caps the response length in tokens.
func WithMaxTokens(n int) ChatOption { return func(c *Chat) { c.maxTokens = n } }

// WithContextMode sets the repository context-inclusion mode.
func WithContextMode(m ContextMode) ChatOption { return func(c *Chat) { c.contextMode = m } }

// WithBranch sets the repository branch sent with each turn.
func WithBranch(b string) ChatOption { return func(c *Chat) { c.branch = b } }

// WithSession seeds the correlation identifiers, resuming an existing chat.
func WithSession(s ChatSession) ChatOption { return func(c *Chat) { c.session = s } }

// WithOnChange registers a snapshot observer invoked after every transcript
// mutation. The snapshot is a deep copy; the observer must not assume it is
// called from any particular goroutine.
func WithOnChange(fn func(Transcript)) ChatOption { return func(c *Chat) { c.onChange = fn } }

// WithOnResolution registers an observer for policy resolutions: transient
// notices, rollback notices, and auth redirects.
func WithOnResolution(fn func(Resolution)) ChatOption { return func(c *Chat) { c.onResolution = fn } }

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) ChatOption { return func(c *Chat) { c.logger = l } }

// NewChat creates a Chat for one repository using the given backend and
// bearer token.
func NewChat(backend Backend, token, repositoryID string, opts ...ChatOption) *Chat {
	c := &Chat{
		backend:      backend,
		token:        token,
		repositoryID: repositoryID,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Transcript returns a snapshot of the live transcript.
func (c *Chat) Transcript() Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Snapshot()
}

// Session returns the current correlation identifiers.
func (c *Chat) Session() ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Loading reports whether a turn is in flight.
func (c *Chat) Loading() bool {
	return c.loading.Load()
}

// NewConversation starts a fresh thread within the same durable session.
// Refused while a turn is streaming: the reducer owns the identifiers then.
func (c *Chat) NewConversation() error {
	if c.loading.Load() {
		return ErrTurnInProgress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.NewConversation()
	return nil
}

// NewSession abandons the session entirely, clearing both identifiers.
func (c *Chat) NewSession() error {
	if c.loading.Load() {
		return ErrTurnInProgress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Reset()
	return nil
}

// Stop cancels the in-flight turn, if any. The transcript retains whatever
// partial state was already folded; cancellation is not failure and triggers
// no rollback.
func (c *Chat) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Send runs one turn: it appends the optimistic user message, issues the
// request, folds the event stream in arrival order, and returns the usage
// payload from the terminal complete record (nil when absent).
//
// Exactly one Resolution is surfaced per terminal failure. A cancelled
// context returns the context error with no resolution and no rollback.
func (c *Chat) Send(ctx context.Context, text string) (*DailyUsage, error) {
	if !c.loading.CompareAndSwap(false, true) {
		return nil, ErrTurnInProgress
	}
	defer c.loading.Store(false)

	c.mu.Lock()
	req := Request{
		Token:            c.token,
		Message:          text,
		RepositoryID:     c.repositoryID,
		ChatID:           c.session.ChatID,
		ConversationID:   c.session.ConversationID,
		Provider:         c.provider,
		Model:            c.model,
		Temperature:      c.temperature,
		MaxTokens:        c.maxTokens,
		ContextMode:      c.contextMode,
		RepositoryBranch: c.branch,
	}
	c.mu.Unlock()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	userMsg := Message{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}
	c.mu.Lock()
	c.transcript.Append(userMsg)
	c.mu.Unlock()
	c.notifyChange()

	c.logger.Debug("turn started", "chat_id", req.ChatID, "conversation_id", req.ConversationID)

	stream, err := c.backend.Send(ctx, req)
	if err != nil {
		return nil, c.fail(asAssistError(err), []string{userMsg.ID})
	}
	defer stream.Close()

	c.mu.Lock()
	reducer := NewTurnReducer(&c.transcript, &c.session)
	c.mu.Unlock()

	for {
		evt, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Cancellation keeps the partial transcript.
				c.logger.Debug("turn cancelled")
				return nil, ctx.Err()
			}
			ids := append([]string{userMsg.ID}, reducer.Inserted()...)
			return nil, c.fail(serverError(err), ids)
		}

		c.mu.Lock()
		done := reducer.Apply(evt)
		c.mu.Unlock()
		c.notifyChange()

		for _, notice := range reducer.TakeNotices() {
			c.notifyResolution(Resolution{Disposition: DispositionContinue, Notice: notice})
		}

		if done {
			break
		}
	}

	usage, aerr := reducer.Finish()
	if aerr != nil {
		ids := append([]string{userMsg.ID}, reducer.Inserted()...)
		return nil, c.fail(aerr, ids)
	}

	c.logger.Debug("turn complete", "messages", reducer.Inserted())
	return usage, nil
}

// fail applies the recovery policy for a terminal failure, rolling back the
// turn's own insertions when the policy calls for it.
func (c *Chat) fail(aerr *AssistError, turnIDs []string) error {
	res := Classify(aerr)
	if res.Disposition == DispositionRollback {
		c.mu.Lock()
		c.transcript.RemoveByID(turnIDs...)
		c.mu.Unlock()
		c.notifyChange()
	}
	c.logger.Debug("turn failed", "type", aerr.Type, "disposition", res.Disposition)
	c.notifyResolution(res)
	return aerr
}

func (c *Chat) notifyChange() {
	if c.onChange == nil {
		return
	}
	c.mu.Lock()
	snap := c.transcript.Snapshot()
	c.mu.Unlock()
	c.onChange(snap)
}

func (c *Chat) notifyResolution(res Resolution) {
	if c.onResolution != nil {
		c.onResolution(res)
	}
}

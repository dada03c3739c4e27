package repochat

import "fmt"

// ContextMode selects how much repository context the server folds into the
// prompt.
type ContextMode string

const (
	ContextFull    ContextMode = "full"
	ContextSmart   ContextMode = "smart"
	ContextAgentic ContextMode = "agentic"
)

// Request carries everything needed for one outbound chat turn. ChatID and
// ConversationID may be empty to start a new session; the server assigns
// identifiers and returns them in a metadata record.
type Request struct {
	Token            string // bearer credential
	Message          string // user text
	RepositoryID     string
	ChatID           string
	ConversationID   string
	Provider         string // empty = server default
	Model            string // empty = server default
	Temperature      *float64
	MaxTokens        int // 0 = server default
	ContextMode      ContextMode
	RepositoryBranch string
}

// Validate checks universal constraints on Request.
func (r Request) Validate() error {
	if r.Token == "" {
		return fmt.Errorf("token is required: %w", ErrValidation)
	}
	if r.Message == "" {
		return fmt.Errorf("message is required: %w", ErrValidation)
	}
	if r.RepositoryID == "" {
		return fmt.Errorf("repository_id is required: %w", ErrValidation)
	}
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	switch r.ContextMode {
	case "", ContextFull, ContextSmart, ContextAgentic:
	default:
		return fmt.Errorf("unknown context mode %q: %w", r.ContextMode, ErrValidation)
	}
	return nil
}

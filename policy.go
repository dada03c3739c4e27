package repochat

import (
	"strings"
	"time"
)

// Disposition is the recovery decision for a classified failure.
type Disposition int

const (
	// DispositionContinue surfaces a notice and keeps folding the stream.
	// Used for malformed-record parse errors.
	DispositionContinue Disposition = iota

	// DispositionNotice surfaces a transient retry-later notice. The turn
	// ends but the transcript keeps the user message and any partial state.
	DispositionNotice

	// DispositionRollback surfaces the raw message and removes the turn's
	// own insertions (the optimistic user message and the in-progress
	// assistant entries) by identity.
	DispositionRollback

	// DispositionRedirect surfaces a notice and schedules navigation to key
	// management after RedirectDelay, so the notice stays visible.
	DispositionRedirect
)

// RedirectDelay is how long the auth-remediation notice is shown before
// navigating to key management.
const RedirectDelay = 2 * time.Second

// Resolution is the policy's answer for one failure: what to tell the user
// and what to do with the transcript.
type Resolution struct {
	Disposition Disposition
	Notice      string
}

// quotaVocabulary are the substrings that mark a failure as quota/rate
// limiting rather than a hard server fault.
var quotaVocabulary = []string{"quota", "limit", "rate"}

// Classify maps a turn failure to its recovery disposition. Classification
// never retries anything on its own; retry is always a user-initiated new
// turn.
func Classify(err *AssistError) Resolution {
	switch err.Type {
	case ErrorTypeParse:
		return Resolution{Disposition: DispositionContinue, Notice: err.Message}
	case ErrorTypeNoAPIKey, ErrorTypeInvalidAPIKey:
		return Resolution{Disposition: DispositionRedirect, Notice: err.Message}
	}

	lower := strings.ToLower(err.Message)
	for _, word := range quotaVocabulary {
		if strings.Contains(lower, word) {
			return Resolution{Disposition: DispositionNotice, Notice: err.Message}
		}
	}

	return Resolution{Disposition: DispositionRollback, Notice: err.Message}
}

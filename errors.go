package repochat

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrTurnInProgress indicates Send was called while another turn was
	// still streaming. One logical turn per session at a time.
	ErrTurnInProgress = errors.New("turn already in progress")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)

// ErrorType is the coarse server-side error classifier carried on wire error
// records. ErrorTypeParse and ErrorTypeNoResponse are synthesized client-side
// and never appear on the wire.
type ErrorType string

const (
	ErrorTypeNoAPIKey      ErrorType = "no_api_key"
	ErrorTypeInvalidAPIKey ErrorType = "invalid_api_key"
	ErrorTypeServer        ErrorType = "server_error"

	// ErrorTypeParse marks a malformed stream record. Non-fatal: surfaced,
	// then the stream continues.
	ErrorTypeParse ErrorType = "parse_error"

	// ErrorTypeNoResponse marks a stream that ended without delivering a
	// single token or function call. Silence is not success.
	ErrorTypeNoResponse ErrorType = "no_response"
)

// AssistError is a classified failure from the assistant service or the
// transport underneath it.
type AssistError struct {
	Message string
	Type    ErrorType
}

func (e *AssistError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return string(e.Type) + ": " + e.Message
}

// serverError wraps a transport-level failure as an AssistError. Transport
// failures are indistinguishable from a terminal server_error record.
func serverError(err error) *AssistError {
	return &AssistError{Message: err.Error(), Type: ErrorTypeServer}
}

// asAssistError preserves an existing classification (e.g. an auth failure
// reported on the opening response) and wraps everything else as a
// server_error.
func asAssistError(err error) *AssistError {
	var aerr *AssistError
	if errors.As(err, &aerr) {
		return aerr
	}
	return serverError(err)
}

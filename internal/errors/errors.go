package errors

import "fmt"

// ErrorCode represents a jam error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrInvalidConfig  ErrorCode = "INVALID_CONFIG"  // 422
	ErrInternal       ErrorCode = "INTERNAL"        // 500

	// Codec diagnostics. These are recovered locally by the parser and
	// reported on the diagnostics side channel; only ErrEmptyStream is
	// surfaced as a caller-visible failure.
	ErrMalformedGrammar  ErrorCode = "MALFORMED_GRAMMAR"  // 422
	ErrUnknownInstrument ErrorCode = "UNKNOWN_INSTRUMENT" // 422
	ErrInvalidDensity    ErrorCode = "INVALID_DENSITY"    // 422
	ErrIncompleteBar     ErrorCode = "INCOMPLETE_BAR"     // 422
	ErrIncompleteTrack   ErrorCode = "INCOMPLETE_TRACK"   // 422
	ErrDuplicateEvent    ErrorCode = "DUPLICATE_EVENT"    // 422
	ErrEmptyStream       ErrorCode = "EMPTY_STREAM"       // 422
)

// JamError represents a structured error with code, status, and details.
type JamError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *JamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *JamError {
	return &JamError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a piece cannot be found.
func NewNotFound(identifier string) *JamError {
	return &JamError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("piece not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *JamError {
	return &JamError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInvalidConfig creates a 422 error for invalid codec configuration.
// This is the fatal precondition check of the encoder/decoder constructors.
func NewInvalidConfig(msg string) *JamError {
	return &JamError{
		Code:    ErrInvalidConfig,
		Status:  422,
		Message: msg,
	}
}

// NewEmptyStream creates a 422 error for a token stream with no PIECE_START.
// This is the only parse failure that aborts the whole decode.
func NewEmptyStream() *JamError {
	return &JamError{
		Code:    ErrEmptyStream,
		Status:  422,
		Message: "no PIECE_START found in token stream",
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *JamError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &JamError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a JamError with the given code.
func Is(err error, code ErrorCode) bool {
	if jErr, ok := err.(*JamError); ok {
		return jErr.Code == code
	}
	return false
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the validation and attribution contracts. Callers
// match them with errors.Is.
var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrChunkNotFound      = errors.New("chunk not found")
	ErrRangeOutOfBounds   = errors.New("cited range out of bounds")
	ErrCitationMismatch   = errors.New("excerpt does not match source text")
	ErrRedactionViolation = errors.New("excerpt infers redacted content")
	ErrAlreadyClaimed     = errors.New("document already claimed")
	ErrProcessingTimeout  = errors.New("processing timed out")
)

// ValidationError reports a claim that violates the claim-type, confidence,
// or uncertainty-note contract. The reason is structured and safe to return
// to the submitting agent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("claim validation failed: %s", e.Reason)
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

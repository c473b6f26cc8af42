package quote

import (
	"errors"
	"fmt"
	"strings"
)

// Top-level and per-field error codes surfaced in API responses. Field
// codes are 1000-series; 100 marks an aggregated validation failure.
const (
	CodeValidationFailed  = 100
	CodeRequiredField     = 1000
	CodeMutualExclusivity = 1001
	CodeInvalidFieldValue = 1002
)

var (
	// ErrInsufficientLiquidity means no eligible source could cover the
	// requested amount. A domain condition, not a system fault.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInternalPricing marks an invariant violation during resolution
	// (malformed order amounts, non-finite ratio). Never carries a
	// partially computed quote.
	ErrInternalPricing = errors.New("internal pricing error")
)

// FieldError is one validation failure attributed to a request field.
// The synthetic field "instance" carries cross-field violations.
type FieldError struct {
	Field  string `json:"field"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every failed check for a single request, in
// evaluation order, so a client sees all problems in one round trip.
type ValidationError struct {
	Code   int          `json:"code"`
	Reason string       `json:"reason"`
	Fields []FieldError `json:"validationErrors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(parts, "; "))
}

package usecase

import (
	"fmt"
	"strings"
)

// ErrorKind labels an expected request failure. Every kind is caught at the
// HTTP boundary and answered in-band; none of them stops the service.
type ErrorKind string

const (
	KindInvalidFormat     ErrorKind = "invalid_format"
	KindMissingFeatures   ErrorKind = "missing_features"
	KindCoercionFailure   ErrorKind = "coercion_failure"
	KindPredictionFailure ErrorKind = "prediction_failure"
)

// Error is a request-scoped prediction error with a machine-readable kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalidFormat(msg string) *Error {
	return &Error{Kind: KindInvalidFormat, Message: msg}
}

func missingFeatures(fields []string) *Error {
	return &Error{Kind: KindMissingFeatures, Message: fmt.Sprintf("missing required features: %s", strings.Join(fields, ", "))}
}

func coercionFailure(field string, err error) *Error {
	return &Error{Kind: KindCoercionFailure, Message: fmt.Sprintf("feature %q is not numeric", field), Err: err}
}

func predictionFailure(err error) *Error {
	return &Error{Kind: KindPredictionFailure, Message: "prediction failed", Err: err}
}

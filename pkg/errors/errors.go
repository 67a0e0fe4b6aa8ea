// Package errors defines the sentinel errors shared across the platform and
// the typed scoring errors that wrap them.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidConfiguration = errors.New("invalid scoring configuration")
	ErrMissingStatistics    = errors.New("missing term statistics")
	ErrArithmeticDomain     = errors.New("arithmetic domain error")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrShardUnavailable     = errors.New("shard unavailable")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternal             = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// MissingStatisticsError reports a statistic the provider could not supply
// for a term/document pair.
type MissingStatisticsError struct {
	Stat  string
	Term  string
	DocID string
	Err   error
}

func (e *MissingStatisticsError) Error() string {
	msg := fmt.Sprintf("missing %s", e.Stat)
	if e.Term != "" {
		msg += fmt.Sprintf(" for term %q", e.Term)
	}
	if e.DocID != "" {
		msg += fmt.Sprintf(" in document %q", e.DocID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingStatisticsError) Is(target error) bool {
	return target == ErrMissingStatistics
}

func (e *MissingStatisticsError) Unwrap() error {
	return e.Err
}

func NewMissingStatistics(stat, term, docID string, cause error) *MissingStatisticsError {
	return &MissingStatisticsError{Stat: stat, Term: term, DocID: docID, Err: cause}
}

// DomainError reports an input that would push a scoring formula outside
// its domain (NaN, infinity, or a negative weight).
type DomainError struct {
	Field string
	Value float64
	Rule  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s=%v violates %s", e.Field, e.Value, e.Rule)
}

func (e *DomainError) Is(target error) bool {
	return target == ErrArithmeticDomain
}

func NewDomainError(field string, value float64, rule string) *DomainError {
	return &DomainError{Field: field, Value: value, Rule: rule}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// an unavailable backend surfaces wrapped in MissingStatisticsError, so
	// it must be matched first
	switch {
	case errors.Is(err, ErrShardUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidConfiguration), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingStatistics), errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Package apperr holds the error taxonomy shared by the loader, the
// orchestrator and the surfaces that report failures to users.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	ErrWriteRejected         = errors.New("write rejected")
	ErrValidationFailed      = errors.New("validation failed")
)

// Error ties a failure kind to the operation and the backend cause. The
// cause message is kept verbatim.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Unavailable(op string, err error) error {
	return &Error{Kind: ErrDataSourceUnavailable, Op: op, Err: err}
}

func Rejected(op string, err error) error {
	return &Error{Kind: ErrWriteRejected, Op: op, Err: err}
}

// ValidationError lists client-side precondition failures by field.
type ValidationError struct {
	Fields map[string]string
}

func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

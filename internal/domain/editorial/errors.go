package editorial

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateAssignment   = errors.New("duplicate assignment")
	ErrAlreadySubmitted      = errors.New("review already submitted")
	ErrConflictingTransition = errors.New("conflicting transition")
)

// TransitionError reports a move the state machine does not allow from the current state.
type TransitionError struct {
	Entity string
	ID     uint64
	From   string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %d: cannot %s while %s: %s", e.Entity, e.ID, e.Action, e.From, ErrInvalidTransition)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ConflictError reports a lost compare-and-set; the caller may re-read and retry.
type ConflictError struct {
	Entity   string
	ID       uint64
	Expected string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d changed concurrently (expected %s): %s", e.Entity, e.ID, e.Expected, ErrConflictingTransition)
}

func (e *ConflictError) Unwrap() error { return ErrConflictingTransition }

// ValidationError carries per-field messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a single-field ValidationError.
func Invalid(field string, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// NotFoundf wraps ErrNotFound with a formatted subject.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func fromValidation(err error) error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: map[string]string{"input": err.Error()}}
	}

	fields := make(map[string]string, len(verrs))
	flattenValidation("", verrs, fields)
	return &ValidationError{Fields: fields}
}

func flattenValidation(prefix string, verrs validation.Errors, out map[string]string) {
	for key, err := range verrs {
		if err == nil {
			continue
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flattenValidation(name, nested, out)
			continue
		}
		out[name] = err.Error()
	}
}

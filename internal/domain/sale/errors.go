package sale

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for order assembly and submission.
var (
	ErrEmptyOrder       = errors.New("order has no lines")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrSessionClosed    = errors.New("session closed")
	ErrSessionNotFound  = errors.New("session not found")

	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// UnresolvedReferenceError indicates a line points at an identifier that is
// absent (or inactive) in the catalog snapshot. An empty ID means nothing was
// selected yet.
type UnresolvedReferenceError struct {
	Kind LineKind
	ID   string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no %s selected", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// MalformedQuantityError indicates a quantity that is not acceptable for its
// line kind.
type MalformedQuantityError struct {
	Value  string
	Reason string
}

func (e *MalformedQuantityError) Error() string {
	return fmt.Sprintf("quantity %q %s", e.Value, e.Reason)
}

// Problem is a field-level reason a line cannot be submitted.
type Problem struct {
	Ref   LineRef
	Field Field
	Err   error
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s.%s: %v", p.Ref, p.Field, p.Err)
}

func (p Problem) Unwrap() error { return p.Err }

// ValidationError lists every problem that blocked assembly.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid order: " + strings.Join(msgs, "; ")
}

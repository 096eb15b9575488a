package domain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound reports that no resource with the given id exists within the
// caller's scope. A foreign-owned resource is indistinguishable from a
// missing one.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken reports a registration attempt with an existing username.
var ErrUsernameTaken = errors.New("username already taken")

// ValidationError carries per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, message)
	return e
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AuthorizationError reports an attempt to reassign ownership or otherwise
// act outside the requester's scope. It is distinct from ValidationError so
// callers can surface it differently.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "not authorized"
	}
	return "not authorized: " + e.Reason
}

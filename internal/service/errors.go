package service

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound means the resource does not exist or belongs to someone else.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness rule was violated.
	ErrConflict = errors.New("conflict")
	// ErrAuth means bad credentials or a bad token. Its message is safe to show.
	ErrAuth = errors.New("unauthorized")
)

// ValidationError lists every problem found with an input.
// Reference is set when the input points at a category or priority that does not exist.
type ValidationError struct {
	Problems  []string
	Reference bool
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "validation failed"
	}
	return strings.Join(e.Problems, " ")
}

func invalid(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func badReference(problem string) *ValidationError {
	return &ValidationError{Problems: []string{problem}, Reference: true}
}

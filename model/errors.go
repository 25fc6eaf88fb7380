package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Error kinds surfaced to clients. Use errors.Is to classify a wrapped error.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrOutOfRange = errors.New("out of range")
	ErrInvalid    = errors.New("invalid")
	ErrDispatch   = errors.New("dispatch failed")
)

// NotFound builds an ErrNotFound for a named entity.
func NotFound(kind, name string) error {
	return errors.Wrapf(ErrNotFound, "%s with name %q", kind, name)
}

// Conflict builds an ErrConflict for a named entity.
func Conflict(kind, name string) error {
	return errors.Wrapf(ErrConflict, "%s with name %q", kind, name)
}

// Invalid builds an ErrInvalid with a formatted reason.
func Invalid(format string, args ...any) error {
	return errors.Wrap(ErrInvalid, fmt.Sprintf(format, args...))
}

// Describe renders an error the way clients see it in a Notify detail.
// "Track with name "a": not found" reads better than the wrapped order.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return capitalize(strings.TrimSuffix(err.Error(), ": "+ErrNotFound.Error())) + " does not exist"
	case errors.Is(err, ErrConflict):
		return capitalize(strings.TrimSuffix(err.Error(), ": "+ErrConflict.Error())) + " already exists"
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// InvariantError reports entities rejected while loading a project. Each
// entry names the entity and why its stored shape is inconsistent.
type InvariantError struct {
	Problems []string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("project invariants violated (%d): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *InvariantError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *InvariantError) orNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

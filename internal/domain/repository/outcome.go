// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"github.com/pkg/errors"
)

// Outcome is the closed set of storage failures the use-case layer reasons about.
// Driver-specific errors never cross the repository boundary.
type Outcome int

const (
	// OutcomeOther is any failure that is neither a conflict nor a missing record.
	OutcomeOther Outcome = iota
	// OutcomeNotFound means the addressed record does not exist (or no longer exists).
	OutcomeNotFound
	// OutcomeConflict means a write collided with a uniqueness constraint.
	OutcomeConflict
)

var (
	// ErrNotFound is the root of every "record not found" error returned by repositories.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is the root of every "unique constraint violated" error returned by repositories.
	ErrConflict = errors.New("record conflicts with an existing one")
)

// OutcomeOf classifies a repository error.
func OutcomeOf(err error) Outcome {
	switch {
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeOther
	}
}

func notFound(entity string) error {
	return errors.Wrap(ErrNotFound, entity)
}

func conflict(entity string) error {
	return errors.Wrap(ErrConflict, entity)
}

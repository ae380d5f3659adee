package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrForbidden is part of the public error taxonomy; no venture operation
	// returns it today.
	ErrForbidden = errors.New("forbidden")
)

func ValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func NotFoundError(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

func ForbiddenError(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

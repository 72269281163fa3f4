package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAuth                = errors.New("authentication failed")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPersistence         = errors.New("persistence failure")
	ErrTransform           = errors.New("transform failure")
	ErrValidation          = errors.New("validation failed")
	ErrUnsupportedPlan     = errors.New("unsupported plan")
	ErrEmailTaken          = errors.New("email already registered")
)

// InsufficientCreditsError reports a debit that would have driven the balance
// below zero. It matches ErrInsufficientCredits with errors.Is.
type InsufficientCreditsError struct {
	Tool    ToolKind
	Balance int
	Cost    int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: %s costs %d, balance is %d", e.Tool, e.Cost, e.Balance)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// Persistence wraps a remote read/write failure. Errors already classified as
// persistence failures are returned unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Auth wraps a sign-in/sign-up failure, including transport failures.
func Auth(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
}

// Transform wraps a tool execution failure.
func Transform(tool ToolKind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", tool, ErrTransform, err)
}

// Validation builds an ErrValidation with a human readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"neovidya/internal/models"
	"neovidya/internal/validation"
)

var (
	// ErrValidation matches every *ValidationError
	ErrValidation = errors.New("validation failed")

	ErrConflict      = errors.New("conflict")
	ErrUsernameTaken = fmt.Errorf("username already exists: %w", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("email already exists: %w", ErrConflict)

	ErrNotFound        = errors.New("not found")
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrSubjectNotFound = fmt.Errorf("subject %w", ErrNotFound)
	ErrSchoolNotFound  = fmt.Errorf("school %w", ErrNotFound)

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError reports malformed input for a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// fromValidation lifts a validation package error into the service taxonomy
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return &ValidationError{Field: verr.Field, Message: verr.Message}
	}
	return err
}

// ParseIndex parses a chapter or item index taken from a URL
func ParseIndex(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, invalid(field, "Invalid chapter or item index")
	}
	return n, nil
}

func requireUser(actor models.AuthContext) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func requireRole(actor models.AuthContext, roles ...models.Role) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.HasRole(roles...) {
		return ErrForbidden
	}
	return nil
}

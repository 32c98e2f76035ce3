package repository

import (
	"errors"
	"fmt"

	"neovidya/internal/database"
)

// ErrDuplicate is returned when an insert hits a unique constraint
var ErrDuplicate = errors.New("duplicate key")

// wrapWrite tags unique violations with ErrDuplicate and wraps everything else
func wrapWrite(d database.Dialect, op string, err error) error {
	if d.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Package validation checks user supplied input before it reaches the services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 32
	MinPasswordLength = 4
	MaxPasswordLength = 72 // bcrypt input limit
	MaxSubjectLength  = 64
)

// Error describes a single invalid field
type Error struct {
	Field   string
	Tag     string // failed validator tag, empty for the hand written checks
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates a tagged struct and returns the first failure as *Error
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return fieldError(verrs[0])
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &Error{Field: "email", Message: "email is required"}
	}
	if strings.ContainsAny(email, " \t") || validate.Var(email, "email") != nil {
		return &Error{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateUsername checks length and allowed characters
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &Error{Field: "username", Message: "username is required"}
	}
	if strings.Contains(username, "@") {
		return &Error{Field: "username", Message: "username must not contain @"}
	}
	n := len([]rune(username))
	if n < MinUsernameLength || n > MaxUsernameLength {
		return &Error{Field: "username", Message: fmt.Sprintf("username must be %d-%d characters", MinUsernameLength, MaxUsernameLength)}
	}
	for _, r := range username {
		if r == ' ' || r == '\t' || r == '\n' {
			return &Error{Field: "username", Message: "username must not contain spaces"}
		}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return &Error{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return &Error{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	if len(password) > MaxPasswordLength {
		return &Error{Field: "password", Message: fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength)}
	}
	return nil
}

// ValidateSubjectKey checks a progress subject key
func ValidateSubjectKey(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return &Error{Field: "subject", Message: "subject is required"}
	}
	if len(subject) > MaxSubjectLength {
		return &Error{Field: "subject", Message: fmt.Sprintf("subject must be at most %d characters", MaxSubjectLength)}
	}
	return nil
}

// NonNegative rejects negative counters and indexes
func NonNegative(field string, v int) error {
	if v < 0 {
		return &Error{Field: field, Message: field + " must be a non-negative integer"}
	}
	return nil
}

// IsRequired reports whether err is a missing required field
func IsRequired(err error) bool {
	var verr *Error
	return errors.As(err, &verr) && strings.HasPrefix(verr.Tag, "required")
}

func fieldError(fe validator.FieldError) *Error {
	e := describe(fe)
	e.Tag = fe.Tag()
	return e
}

func describe(fe validator.FieldError) *Error {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_without_all":
		return &Error{Field: field, Message: field + " is required"}
	case "email":
		return &Error{Field: field, Message: "invalid email format"}
	case "min":
		return &Error{Field: field, Message: fmt.Sprintf("%s must be at least %s", field, fe.Param())}
	case "max":
		return &Error{Field: field, Message: fmt.Sprintf("%s must be at most %s", field, fe.Param())}
	case "gte":
		return &Error{Field: field, Message: field + " must be a non-negative integer"}
	case "oneof":
		return &Error{Field: field, Message: fmt.Sprintf("%s must be one of: %s", field, fe.Param())}
	default:
		return &Error{Field: field, Message: "invalid " + field}
	}
}

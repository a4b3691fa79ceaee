package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/modkit/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates checks on values that have no struct to carry tags,
// such as module names passed to a registry.
//
//	err := validation.New().
//	    Identifier("module.name", name).
//	    MaxLength("module.name", name, 64).
//	    Err()
type Validator struct {
	fields []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// Add records a failure for field.
func (v *Validator) Add(field, message string) *Validator {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
	return v
}

// Check records message for field unless ok holds.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.Add(field, message)
	}
	return v
}

// Identifier requires value to be a capability key or module id.
func (v *Validator) Identifier(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.Add(field, "is required")
	}
	return v.Check(IsIdentifier(value), field, identMessage)
}

// MaxLength limits value to maxLen bytes.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	return v.Check(len(value) <= maxLen, field, fmt.Sprintf("must be %d characters or less", maxLen))
}

// Failed reports whether any check failed.
func (v *Validator) Failed() bool {
	return len(v.fields) > 0
}

// Fields returns the recorded failures in order.
func (v *Validator) Fields() []FieldError {
	return v.fields
}

// Err returns nil when every check passed, otherwise an INVALID_INPUT
// AppError listing each failure under the "fields" detail.
func (v *Validator) Err() error {
	if !v.Failed() {
		return nil
	}
	return fieldsError(v.fields)
}

func fieldsError(fields []FieldError) *errors.AppError {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(parts, "; ")).
		WithDetail("fields", fields)
}

package schedule

import (
	"errors"
	"strings"
)

var (
	ErrTemplateNotFound  = errors.New("schedule template not found")
	ErrExceptionNotFound = errors.New("schedule exception not found")
	ErrSlotNotFound      = errors.New("slot not found")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrCapacityExceeded  = errors.New("slot is no longer available")
	ErrTemplateConflict  = errors.New("template overlaps an existing template for this resource")
	ErrSlotBlocked       = errors.New("slot is blocked by a schedule exception")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every problem found in a template, session or
// exception before it is submitted.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package validation

import (
	"strings"
)

// FieldError is a user-facing message for one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a rejected submission with per-field detail.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field unless one is already present.
func (e *Error) Add(field, message string) {
	for _, f := range e.Fields {
		if f.Field == field {
			return
		}
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns e when it holds at least one field error, nil otherwise.
func (e *Error) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// FileError is a rejected upload. Reason is shown to the client as is.
type FileError struct {
	Reason string
}

func (e *FileError) Error() string {
	return e.Reason
}

package form

import (
	"errors"
	"strings"
)

// Code identifies why a field failed validation.
type Code string

const (
	MissingTitle Code = "MissingTitle"
	MissingURL   Code = "MissingUrl"
)

// FieldError is a single per-field failure shown inline next to the input.
type FieldError struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// ValidationError collects every failing field of one save.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid shortcut: " + strings.Join(msgs, ", ")
}

// Has reports whether the error contains code.
func (e *ValidationError) Has(code Code) bool {
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// ByField returns messages keyed by field name.
func (e *ValidationError) ByField() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Message
	}
	return out
}

// HasCode reports whether err is a *ValidationError containing code.
func HasCode(err error, code Code) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Has(code)
}

package common

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors. Rules after the first failing
// one are skipped so each field reports a single reason.
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
			break
		}
	}
	return v
}

// Add records a failure produced outside a rule
func (v *Validator) Add(fieldName string, value interface{}, message string) *Validator {
	v.errors = append(v.errors, ValidationError{Field: fieldName, Value: value, Message: message})
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required fails on nil only; empty strings are left to NotPlaceholder.
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// RequiredText fails on nil and on blank strings.
func RequiredText(fieldName string, value interface{}) *ValidationError {
	if err := Required(fieldName, value); err != nil {
		return err
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// IsString fails when value is not a string.
func IsString(fieldName string, value interface{}) *ValidationError {
	if _, ok := value.(string); !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	return nil
}

// NotPlaceholder rejects "n/a", "unknown" and blank strings.
func NotPlaceholder(fieldName string, value interface{}) *ValidationError {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	if constants.IsPlaceholder(s) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must not be a placeholder value"}
	}
	return nil
}

package invoice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// ErrSchemaValidation matches every *SchemaValidationError.
var ErrSchemaValidation = errors.New("invoice schema validation failed")

// SchemaValidationError lists every field that failed validation together
// with the normalized payload that was checked.
type SchemaValidationError struct {
	Fields  []common.ValidationError
	Payload map[string]any
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s: %s", ErrSchemaValidation, strings.Join(parts, "; "))
}

func (e *SchemaValidationError) Is(target error) bool {
	return target == ErrSchemaValidation || target == common.ErrValidation
}

// FieldNames returns the names of the failing fields in report order.
func (e *SchemaValidationError) FieldNames() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Field)
	}
	return out
}

// HasField reports whether name is among the failing fields.
func (e *SchemaValidationError) HasField(name string) bool {
	for _, f := range e.Fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

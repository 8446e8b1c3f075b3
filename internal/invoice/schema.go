package invoice

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// RecordJSONSchema describes a validated Record (provenance excluded).
func RecordJSONSchema() map[string]any {
	text := func() map[string]any { return map[string]any{"type": "string"} }
	props := map[string]any{
		constants.FieldInvoiceNumber: text(),
		constants.FieldInvoiceDate:   map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		constants.FieldLanguage:      map[string]any{"type": "string", "minLength": 1},
		constants.FieldCompany:       map[string]any{"type": "string", "minLength": 1},
		constants.FieldProduct:       map[string]any{"type": "string", "minLength": 1},
		constants.FieldTotalValue:    map[string]any{"type": "string", "minLength": 1},
		constants.FieldCurrency:      map[string]any{"type": "string", "minLength": 1},
		constants.FieldTaxesPaid:     text(),
		constants.FieldExtraFields:   map[string]any{"type": "object"},
		"file_id":                    text(),
		"file_name":                  text(),
		"file_url":                   text(),
		"extraction_date":            text(),
	}
	required := append(constants.CanonicalFields(), constants.FieldExtraFields)
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

var recordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return common.CompileJSONSchema("invoice_record.json", RecordJSONSchema())
})

// checkShape is the last guard after field rules: the record must satisfy
// RecordJSONSchema once encoded.
func checkShape(r Record) error {
	schema, err := recordSchema()
	if err != nil {
		return err
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return schema.Validate(v)
}

package llm

import "github.com/joseph-ayodele/invoice-scanner/constants"

var fieldDescriptions = map[string]string{
	constants.FieldInvoiceNumber: "The invoice number or ID",
	constants.FieldInvoiceDate:   "The invoice date, formatted YYYY-MM-DD",
	constants.FieldCompany:       "The company or vendor issuing the invoice",
	constants.FieldProduct:       "The main product or service (first item if several)",
	constants.FieldTotalValue:    "The total amount including taxes as a number string, e.g. 1250.50",
	constants.FieldCurrency:      "The ISO 4217 currency code, e.g. EUR, USD, GBP",
	constants.FieldTaxesPaid:     "The total tax amount as a number string, e.g. 212.59",
	constants.FieldLanguage:      "The invoice language: en for English or de for German",
}

// BuildInvoiceJSONSchema returns the response-shape schema for the given
// fields: every field is a required string, nothing else is allowed.
func BuildInvoiceJSONSchema(fields []string) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		prop := map[string]any{"type": "string"}
		if d, ok := fieldDescriptions[f]; ok {
			prop["description"] = d
		}
		props[f] = prop
		required = append(required, f)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// ResponseFormat wraps a schema in the json_schema response_format envelope.
func ResponseFormat(schema map[string]any) map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   "invoice",
			"strict": true,
			"schema": schema,
		},
	}
}

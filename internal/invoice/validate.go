package invoice

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// Validate checks a normalized payload and builds a Record. Every failing
// field is reported in a single *SchemaValidationError.
//
//   - invoice_number must be present; it is not placeholder-checked.
//   - invoice_date must be present and convertible by NormalizeDate.
//   - company, product, total_value and currency must carry real text.
//   - language must carry real text when present; absent defaults to "unknown".
//   - taxes_paid defaults to "N/A" when absent or null.
func Validate(normalized map[string]any) (Record, error) {
	v := common.NewValidator()
	var rec Record

	// invoice_number
	if num, ok := requiredText(v, normalized, constants.FieldInvoiceNumber); ok {
		rec.InvoiceNumber = num
	}

	// invoice_date
	rawDate := normalized[constants.FieldInvoiceDate]
	v.Field(constants.FieldInvoiceDate, rawDate, common.RequiredText, common.IsString)
	if s, ok := rawDate.(string); ok && strings.TrimSpace(s) != "" {
		if date, err := NormalizeDate(s); err != nil {
			v.Add(constants.FieldInvoiceDate, rawDate, err.Error())
		} else {
			rec.InvoiceDate = date
		}
	}

	// real-text fields
	for _, field := range []struct {
		name string
		dst  *string
	}{
		{constants.FieldCompany, &rec.Company},
		{constants.FieldProduct, &rec.Product},
		{constants.FieldTotalValue, &rec.TotalValue},
		{constants.FieldCurrency, &rec.Currency},
	} {
		if s, ok := nonPlaceholderText(v, normalized, field.name); ok {
			*field.dst = s
		}
	}

	// language: absent is the only case that takes the default
	if _, present := normalized[constants.FieldLanguage]; !present {
		rec.Language = constants.DefaultLanguage
	} else if s, ok := nonPlaceholderText(v, normalized, constants.FieldLanguage); ok {
		rec.Language = s
	}

	// taxes_paid
	if raw := normalized[constants.FieldTaxesPaid]; raw == nil {
		rec.TaxesPaid = constants.DefaultTaxesPaid
	} else if s, ok := asText(raw); ok {
		rec.TaxesPaid = s
	} else {
		v.Add(constants.FieldTaxesPaid, raw, "must be a string or number")
	}

	// extra_fields
	switch extra := normalized[constants.FieldExtraFields].(type) {
	case nil:
		rec.ExtraFields = map[string]any{}
	case map[string]any:
		rec.ExtraFields = maps.Clone(extra)
	default:
		v.Add(constants.FieldExtraFields, extra, "must be an object")
	}

	if v.HasErrors() {
		return Record{}, &SchemaValidationError{Fields: v.Errors(), Payload: normalized}
	}
	if err := checkShape(rec); err != nil {
		v.Add("record", nil, err.Error())
		return Record{}, &SchemaValidationError{Fields: v.Errors(), Payload: normalized}
	}
	return rec, nil
}

// requiredText reads a non-null scalar as text.
func requiredText(v *common.Validator, m map[string]any, name string) (string, bool) {
	raw := m[name]
	if raw == nil {
		v.Field(name, raw, common.Required)
		return "", false
	}
	s, ok := asText(raw)
	if !ok {
		v.Add(name, raw, "must be a string or number")
		return "", false
	}
	return s, true
}

func nonPlaceholderText(v *common.Validator, m map[string]any, name string) (string, bool) {
	s, ok := requiredText(v, m, name)
	if !ok {
		return "", false
	}
	if err := common.NotPlaceholder(name, s); err != nil {
		v.Add(err.Field, m[name], err.Message)
		return "", false
	}
	return strings.TrimSpace(s), true
}

// asText accepts strings and numbers; other JSON types are rejected.
func asText(raw any) (string, bool) {
	switch t := raw.(type) {
	case string:
		return t, true
	case json.Number, float64, float32, int, int64:
		return stringify(t), true
	default:
		return "", false
	}
}

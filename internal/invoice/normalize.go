package invoice

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

// Normalize maps alias and nested fields of a raw model response onto the
// canonical field names and moves everything else into extra_fields.
// Rules run in a fixed order and never overwrite a populated field.
// The input map is not modified.
func Normalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw)+1)
	maps.Copy(out, raw)

	// 1) company from vendor_name, then vendor_details.name
	if isBlank(out[constants.FieldCompany]) {
		if v := out[constants.AliasVendorName]; !isBlank(v) {
			out[constants.FieldCompany] = v
		} else if details, ok := out[constants.AliasVendorDetails].(map[string]any); ok && !isBlank(details["name"]) {
			out[constants.FieldCompany] = details["name"]
		}
	}

	// 2) product from the first line item
	if isBlank(out[constants.FieldProduct]) {
		if items, ok := out[constants.AliasLineItems].([]any); ok && len(items) > 0 {
			if first, ok := items[0].(map[string]any); ok && !isBlank(first["description"]) {
				out[constants.FieldProduct] = first["description"]
			}
		}
	}

	// 3) + 4) flat money aliases
	if isBlank(out[constants.FieldTotalValue]) {
		if v, ok := out[constants.AliasTotalAmount]; ok && v != nil {
			out[constants.FieldTotalValue] = stringify(v)
		}
	}
	if isBlank(out[constants.FieldTaxesPaid]) {
		if v, ok := out[constants.AliasTaxAmount]; ok && v != nil {
			out[constants.FieldTaxesPaid] = stringify(v)
		}
	}

	// 5) money fields are always text
	for _, k := range []string{constants.FieldTotalValue, constants.FieldTaxesPaid} {
		if v, ok := out[k]; ok && v != nil {
			if _, isString := v.(string); !isString {
				out[k] = stringify(v)
			}
		}
	}

	// 6) language heuristic
	if isBlank(out[constants.FieldLanguage]) {
		date, _ := out[constants.FieldInvoiceDate].(string)
		out[constants.FieldLanguage] = GuessLanguage(date)
	}

	// 7) Euro spellings
	if cur, ok := out[constants.FieldCurrency].(string); ok {
		if canonical, changed := constants.CanonicalizeCurrency(cur); changed {
			out[constants.FieldCurrency] = canonical
		}
	}

	// 8) overflow
	extra := map[string]any{}
	if prior, ok := out[constants.FieldExtraFields].(map[string]any); ok {
		maps.Copy(extra, prior)
	} else if v, ok := out[constants.FieldExtraFields]; ok && v != nil {
		extra[constants.FieldExtraFields] = v
	}
	for k, v := range out {
		if constants.IsCanonicalField(k) || k == constants.FieldExtraFields {
			continue
		}
		extra[k] = v
		delete(out, k)
	}
	out[constants.FieldExtraFields] = extra

	return out
}

// GuessLanguage is a coarse two-language heuristic: German when the invoice
// date is written DD.MM.YYYY, English otherwise.
func GuessLanguage(invoiceDate string) string {
	if IsDayMonthYear(invoiceDate) {
		return constants.LanguageGerman
	}
	return constants.LanguageEnglish
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// stringify renders a decoded JSON value as text. Numbers decoded with
// json.Decoder.UseNumber keep their literal form ("19.0" stays "19.0").
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

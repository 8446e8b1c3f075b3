package constants

import "strings"

// Canonical invoice fields, in prompt and column order.
const (
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldCompany       = "company"
	FieldProduct       = "product"
	FieldTotalValue    = "total_value"
	FieldCurrency      = "currency"
	FieldTaxesPaid     = "taxes_paid"
	FieldLanguage      = "language"

	// FieldExtraFields holds every response key outside the canonical set.
	FieldExtraFields = "extra_fields"
)

// Aliases some backends use instead of the canonical names.
const (
	AliasVendorName    = "vendor_name"
	AliasVendorDetails = "vendor_details"
	AliasLineItems     = "line_items"
	AliasTotalAmount   = "total_amount"
	AliasTaxAmount     = "tax_amount"
)

// Defaults applied when a field is truly absent.
const (
	DefaultTaxesPaid = "N/A"
	DefaultLanguage  = "unknown"

	LanguageGerman  = "de"
	LanguageEnglish = "en"
)

var canonicalFields = []string{
	FieldInvoiceNumber,
	FieldInvoiceDate,
	FieldCompany,
	FieldProduct,
	FieldTotalValue,
	FieldCurrency,
	FieldTaxesPaid,
	FieldLanguage,
}

var canonicalSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(canonicalFields))
	for _, f := range canonicalFields {
		m[f] = struct{}{}
	}
	return m
}()

// CanonicalFields returns a copy of the canonical field list.
func CanonicalFields() []string {
	out := make([]string, len(canonicalFields))
	copy(out, canonicalFields)
	return out
}

// IsCanonicalField reports whether key belongs to the canonical set.
func IsCanonicalField(key string) bool {
	_, ok := canonicalSet[key]
	return ok
}

var placeholders = map[string]struct{}{
	"n/a":     {},
	"unknown": {},
	"":        {},
}

// IsPlaceholder reports whether s is a "value not found" sentinel
// ("n/a", "unknown" or blank), ignoring case and surrounding space.
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

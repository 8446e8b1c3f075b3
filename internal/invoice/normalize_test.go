package invoice

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestNormalizeAliases(t *testing.T) {
	raw := decode(t, `{
		"invoice_number": "INV-9",
		"invoice_date": "15.03.2024",
		"vendor_name": "  ",
		"vendor_details": {"name": "Muster GmbH", "vat_id": "DE123"},
		"line_items": [{"description": "Beratung", "qty": 2}, {"description": "Reise"}],
		"total_amount": 200,
		"tax_amount": 19.0,
		"currency": "€"
	}`)

	got := Normalize(raw)

	assert.Equal(t, "Muster GmbH", got["company"])
	assert.Equal(t, "Beratung", got["product"])
	assert.Equal(t, "200", got["total_value"])
	assert.Equal(t, "19.0", got["taxes_paid"])
	assert.Equal(t, "de", got["language"])
	assert.Equal(t, "EUR", got["currency"])

	extra, ok := got["extra_fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, extra, "vendor_details")
	assert.Contains(t, extra, "line_items")
	assert.Contains(t, extra, "total_amount")
	assert.Contains(t, extra, "vendor_name")
	for k := range extra {
		assert.NotContains(t, got, k, "overflow key %q must not stay at top level", k)
	}
}

func TestNormalizeDoesNotOverwritePopulatedFields(t *testing.T) {
	raw := map[string]any{
		"company":      "Original AG",
		"vendor_name":  "Alias Ltd",
		"total_value":  "99.00",
		"total_amount": json.Number("100"),
		"language":     "en",
		"invoice_date": "15.03.2024",
	}
	got := Normalize(raw)
	assert.Equal(t, "Original AG", got["company"])
	assert.Equal(t, "99.00", got["total_value"])
	assert.Equal(t, "en", got["language"])
}

func TestNormalizePrefersVendorNameOverDetails(t *testing.T) {
	got := Normalize(map[string]any{
		"vendor_name":    "Flat Inc",
		"vendor_details": map[string]any{"name": "Nested Inc"},
	})
	assert.Equal(t, "Flat Inc", got["company"])
}

func TestNormalizeForcesMoneyToText(t *testing.T) {
	got := Normalize(map[string]any{
		"total_value": json.Number("1250.50"),
		"taxes_paid":  json.Number("0"),
	})
	assert.Equal(t, "1250.50", got["total_value"])
	assert.Equal(t, "0", got["taxes_paid"])
}

func TestNormalizeLanguageHeuristic(t *testing.T) {
	assert.Equal(t, "en", Normalize(map[string]any{"invoice_date": "2024-03-15"})["language"])
	assert.Equal(t, "en", Normalize(map[string]any{})["language"])
	assert.Equal(t, "de", Normalize(map[string]any{"invoice_date": "01.02.2024", "language": ""})["language"])
}

func TestNormalizeCurrencySpellings(t *testing.T) {
	for _, in := range []string{"€", "eur", "Euro", "EUROS", " EUR "} {
		assert.Equal(t, "EUR", Normalize(map[string]any{"currency": in})["currency"], in)
	}
	assert.Equal(t, "USD", Normalize(map[string]any{"currency": "USD"})["currency"])
}

func TestNormalizeMergesExistingOverflow(t *testing.T) {
	got := Normalize(map[string]any{
		"extra_fields": map[string]any{"iban": "DE00"},
		"foo":          json.Number("1"),
	})
	assert.Equal(t, map[string]any{"iban": "DE00", "foo": json.Number("1")}, got["extra_fields"])
}

func TestNormalizeLeavesInputUntouched(t *testing.T) {
	raw := map[string]any{"vendor_name": "ACME", "foo": "bar"}
	_ = Normalize(raw)
	assert.Equal(t, map[string]any{"vendor_name": "ACME", "foo": "bar"}, raw)
}

func TestNormalizeNilInput(t *testing.T) {
	got := Normalize(nil)
	assert.Equal(t, map[string]any{}, got["extra_fields"])
	assert.Equal(t, "en", got["language"])
}

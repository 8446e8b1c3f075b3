package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

func TestBuildInvoiceJSONSchemaCompilesAndValidates(t *testing.T) {
	schema := BuildInvoiceJSONSchema(constants.CanonicalFields())
	_, err := common.CompileJSONSchema("invoice.json", schema)
	require.NoError(t, err)

	ok := `{"invoice_number":"1","invoice_date":"2024-01-01","company":"c","product":"p",
		"total_value":"1","currency":"EUR","taxes_paid":"0","language":"en"}`
	assert.NoError(t, common.ValidateJSONAgainstSchema(schema, []byte(ok)))

	missing := `{"invoice_number":"1"}`
	assert.Error(t, common.ValidateJSONAgainstSchema(schema, []byte(missing)))

	extra := strings.Replace(ok, `"language":"en"`, `"language":"en","foo":1`, 1)
	assert.Error(t, common.ValidateJSONAgainstSchema(schema, []byte(extra)))
}

func TestResponseFormat(t *testing.T) {
	rf := ResponseFormat(map[string]any{"type": "object"})
	assert.Equal(t, "json_schema", rf["type"])
	inner := rf["json_schema"].(map[string]any)
	assert.Equal(t, "invoice", inner["name"])
	assert.Equal(t, true, inner["strict"])
}

func TestBuildInvoicePrompt(t *testing.T) {
	p := BuildInvoicePrompt(constants.CanonicalFields())
	assert.Contains(t, p, "invoice_date must be formatted as YYYY-MM-DD")
	assert.Contains(t, p, "Rechnungsnummer")
	assert.Contains(t, p, `"N/A"`)
	for _, f := range constants.CanonicalFields() {
		assert.Contains(t, p, "- "+f)
	}
}

func TestDocumentPartsPrefersText(t *testing.T) {
	parts := DocumentParts("prompt", "a.pdf", []byte("%PDF-1.4"), "Rechnung 123")
	require.Len(t, parts, 2)
	assert.Equal(t, PartText, parts[1].Type)
	assert.Contains(t, parts[1].Text, "Rechnung 123")
	assert.Nil(t, parts[1].File)

	parts = DocumentParts("prompt", "a.pdf", []byte("%PDF-1.4"), "")
	require.Len(t, parts, 2)
	assert.Equal(t, PartFile, parts[1].Type)
	assert.Equal(t, "a.pdf", parts[1].File.Filename)
	assert.Equal(t, "data:application/pdf;base64,JVBERi0xLjQ=", parts[1].File.FileData)
}

func TestBuildDocumentTextTruncates(t *testing.T) {
	long := strings.Repeat("x", maxDocumentText+10)
	out := BuildDocumentText("a.pdf", long)
	assert.True(t, strings.HasSuffix(out, "…(truncated)"))
}

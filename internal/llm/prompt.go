package llm

import (
	"strings"
)

// BuildInvoicePrompt composes the extraction instruction for the given fields.
func BuildInvoicePrompt(fields []string) string {
	var keys strings.Builder
	for _, f := range fields {
		keys.WriteString("- ")
		keys.WriteString(f)
		if d, ok := fieldDescriptions[f]; ok {
			keys.WriteString(": ")
			keys.WriteString(d)
		}
		keys.WriteString("\n")
	}

	parts := []string{
		"You are an expert invoice data extraction system. Analyze the attached invoice and extract the following information as JSON.",
		"The invoice may be in English or German.",
		"",
		"Return ONLY a JSON object with exactly these keys:",
		keys.String(),
		"Rules:",
		"- invoice_date must be formatted as YYYY-MM-DD.",
		"- If any field is not found, use \"N/A\".",
		"- For German invoices, watch for terms like \"Rechnungsnummer\", \"Rechnungsdatum\", \"Gesamtbetrag\", \"MwSt\", \"USt\".",
		"- Extract numeric values only and remove currency symbols.",
		"- The total is the final amount including taxes; the tax amount is the VAT or sales tax paid.",
	}
	return strings.Join(parts, "\n")
}

// maxDocumentText caps the document text sent inline.
const maxDocumentText = 30000

// BuildDocumentText packages pre-extracted document text for the user message.
func BuildDocumentText(fileName, text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(fileName)
	b.WriteString("\n\nInvoice text:\n")
	if len(text) > maxDocumentText {
		b.WriteString(text[:maxDocumentText])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}

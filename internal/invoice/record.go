// Package invoice turns loosely shaped model output into validated invoice records.
package invoice

import "maps"

// Record is a validated invoice. Values are never mutated after Validate
// returns; WithProvenance produces a new Record.
type Record struct {
	InvoiceNumber string         `json:"invoice_number"`
	InvoiceDate   string         `json:"invoice_date"` // YYYY-MM-DD
	Language      string         `json:"language"`
	Company       string         `json:"company"`
	Product       string         `json:"product"`
	TotalValue    string         `json:"total_value"`
	Currency      string         `json:"currency"`
	TaxesPaid     string         `json:"taxes_paid"`
	ExtraFields   map[string]any `json:"extra_fields"`

	FileID         string `json:"file_id,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	FileURL        string `json:"file_url,omitempty"`
	ExtractionDate string `json:"extraction_date,omitempty"`
}

// Provenance identifies the document a record was extracted from.
type Provenance struct {
	FileID         string
	FileName       string
	FileURL        string
	ExtractionDate string
}

// WithProvenance returns a copy of r carrying p. The receiver is left untouched.
func (r Record) WithProvenance(p Provenance) Record {
	out := r
	out.ExtraFields = maps.Clone(r.ExtraFields)
	out.FileID = p.FileID
	out.FileName = p.FileName
	out.FileURL = p.FileURL
	out.ExtractionDate = p.ExtractionDate
	return out
}

// Extra returns a copy of the overflow fields.
func (r Record) Extra() map[string]any {
	if r.ExtraFields == nil {
		return map[string]any{}
	}
	return maps.Clone(r.ExtraFields)
}

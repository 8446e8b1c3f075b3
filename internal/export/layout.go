package export

import (
	"regexp"

	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

const (
	sheetPrefix      = "Invoices "
	UnknownYearSheet = "Invoices Unknown"
)

// Headers is the first row of every invoice sheet.
var Headers = []string{
	"File ID",
	"File Name",
	"File URL",
	"Invoice Number",
	"Invoice Date",
	"Company",
	"Product",
	"Total Value",
	"Currency",
	"Taxes Paid",
	"Language",
	"Extraction Date",
}

var invoiceSheetRe = regexp.MustCompile(`^Invoices \d{4}$`)

// ExtractYear returns the leading four-digit year of a YYYY-MM-DD date, or "".
func ExtractYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	for _, c := range date[:4] {
		if c < '0' || c > '9' {
			return ""
		}
	}
	return date[:4]
}

// SheetNameForDate maps an invoice date to its year sheet.
func SheetNameForDate(date string) string {
	if y := ExtractYear(date); y != "" {
		return sheetPrefix + y
	}
	return UnknownYearSheet
}

// IsInvoiceSheet reports whether title names a sheet this package writes.
func IsInvoiceSheet(title string) bool {
	return title == UnknownYearSheet || invoiceSheetRe.MatchString(title)
}

// Row lays a record out in Headers order.
func Row(r invoice.Record) []string {
	return []string{
		r.FileID,
		r.FileName,
		r.FileURL,
		r.InvoiceNumber,
		r.InvoiceDate,
		r.Company,
		r.Product,
		r.TotalValue,
		r.Currency,
		r.TaxesPaid,
		r.Language,
		r.ExtractionDate,
	}
}

// HeadersMatch reports whether row is exactly the header row.
func HeadersMatch(row []string) bool {
	if len(row) != len(Headers) {
		return false
	}
	for i, h := range Headers {
		if row[i] != h {
			return false
		}
	}
	return true
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

// ModelResult is one model's attempt at a document.
type ModelResult struct {
	Model  string
	Record *invoice.Record
	Meta   extract.AttemptMeta
	Err    error
}

// Compare extracts doc with every model concurrently. Results keep the order
// of models.
func Compare(ctx context.Context, fe extract.FieldExtractor, doc extract.Document, models []string, workers int) []ModelResult {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	out := make([]ModelResult, len(models))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, m := range models {
		g.Go(func() (err error) {
			out[i] = ModelResult{Model: m}
			defer func() {
				if r := recover(); r != nil {
					out[i].Err = fmt.Errorf("panic: %v", r)
				}
			}()
			res, err := fe.ExtractWithModel(ctx, doc, m)
			if err != nil {
				out[i].Err = err
				var ee *extract.Error
				if errors.As(err, &ee) {
					out[i].Meta = ee.Meta
				}
				return nil
			}
			rec := res.Record
			out[i].Record = &rec
			out[i].Meta = res.Meta
			return nil
		})
	}
	_ = g.Wait()
	return out
}

var pivotFields = []string{
	constants.FieldInvoiceNumber,
	constants.FieldInvoiceDate,
	constants.FieldCompany,
	constants.FieldProduct,
	constants.FieldTotalValue,
	constants.FieldCurrency,
	constants.FieldTaxesPaid,
	constants.FieldLanguage,
}

// FormatPivot writes one row per model with the canonical fields and the
// reported cost. A failed model shows its error in place of the fields.
func FormatPivot(w io.Writer, results []ModelResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append([]string{"model"}, pivotFields...)
	header = append(header, "cost")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range results {
		cells := []string{r.Model}
		if r.Err != nil {
			cells = append(cells, "ERROR: "+oneLine(r.Err.Error()))
			for range pivotFields[1:] {
				cells = append(cells, "")
			}
		} else {
			cells = append(cells, recordCells(*r.Record)...)
		}
		cells = append(cells, fmt.Sprintf("%.6f", r.Meta.Usage.Cost))
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func recordCells(r invoice.Record) []string {
	return []string{
		r.InvoiceNumber,
		r.InvoiceDate,
		r.Company,
		r.Product,
		r.TotalValue,
		r.Currency,
		r.TaxesPaid,
		r.Language,
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

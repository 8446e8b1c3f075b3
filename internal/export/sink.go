// Package export writes extracted invoices to tabular stores, one sheet
// (or partition) per invoice year.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

// Sink is the tabular store the pipeline appends to.
type Sink interface {
	// ListKnownIDs returns the file ids already recorded in any invoice sheet.
	ListKnownIDs(ctx context.Context) (map[string]struct{}, error)
	// Append writes one row to the sheet for the record's invoice year.
	Append(ctx context.Context, rec invoice.Record) error
}

// AppendRows appends each record in order and returns the ids that were
// written. Failures do not stop later rows; they are joined in the error.
func AppendRows(ctx context.Context, s Sink, recs []invoice.Record) (map[string]struct{}, error) {
	accepted := make(map[string]struct{}, len(recs))
	var errs []error
	for _, r := range recs {
		if err := s.Append(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("append %s: %w", r.FileID, err))
			continue
		}
		accepted[r.FileID] = struct{}{}
	}
	return accepted, errors.Join(errs...)
}

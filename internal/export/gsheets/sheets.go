// Package gsheets appends invoice rows to a Google spreadsheet through the
// Sheets v4 client, creating year sheets and header rows on demand.
package gsheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

const (
	titlesKey = "titles"
	headerKey = "header:"
	cacheTTL  = 10 * time.Minute

	valueInputRaw = "RAW"
	insertRows    = "INSERT_ROWS"
	titlesFields  = "sheets.properties.title"
	serviceName   = "google sheets"
)

type Sink struct {
	svc           *sheets.Service
	spreadsheetID string
	cache         *cache.Cache
	mu            sync.Mutex
	logger        *slog.Logger
}

var _ export.Sink = (*Sink)(nil)

// New builds a Sheets client from opts, typically gauth.ClientOption.
func New(ctx context.Context, spreadsheetID string, logger *slog.Logger, opts ...option.ClientOption) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, common.ExternalError(serviceName, err)
	}
	return &Sink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		cache:         cache.New(cacheTTL, 2*cacheTTL),
		logger:        logger,
	}, nil
}

// ListKnownIDs reads column A of every invoice sheet, skipping the header row.
func (s *Sink) ListKnownIDs(ctx context.Context) (map[string]struct{}, error) {
	titles, err := s.sheetTitles(ctx, true)
	if err != nil {
		return nil, err
	}
	known := map[string]struct{}{}
	for title := range titles {
		if !export.IsInvoiceSheet(title) {
			continue
		}
		vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, a1(title, "A:A")).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("read ids from %s: %w", title, common.ExternalError(serviceName, err))
		}
		for i, row := range vr.Values {
			if i == 0 || len(row) == 0 {
				continue
			}
			if id := fmt.Sprint(row[0]); id != "" {
				known[id] = struct{}{}
			}
		}
	}
	return known, nil
}

func (s *Sink) Append(ctx context.Context, rec invoice.Record) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet := export.SheetNameForDate(rec.InvoiceDate)
	if err := s.ensureSheet(ctx, sheet); err != nil {
		return err
	}
	if err := s.ensureHeaders(ctx, sheet); err != nil {
		return err
	}
	body := &sheets.ValueRange{Values: [][]any{toAny(export.Row(rec))}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, a1(sheet, ""), body).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, common.ExternalError(serviceName, err))
	}
	s.logger.Info("export.gsheets.ok",
		"sheet", sheet,
		"file_id", rec.FileID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Sink) sheetTitles(ctx context.Context, fresh bool) (map[string]bool, error) {
	if !fresh {
		if v, ok := s.cache.Get(titlesKey); ok {
			return v.(map[string]bool), nil
		}
	}
	sp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields(titlesFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", common.ExternalError(serviceName, err))
	}
	titles := make(map[string]bool, len(sp.Sheets))
	for _, sh := range sp.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}
	s.cache.Set(titlesKey, titles, cache.DefaultExpiration)
	return titles, nil
}

func (s *Sink) ensureSheet(ctx context.Context, sheet string) error {
	titles, err := s.sheetTitles(ctx, false)
	if err != nil {
		return err
	}
	if titles[sheet] {
		return nil
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheet}}},
		},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, common.ExternalError(serviceName, err))
	}
	updated := make(map[string]bool, len(titles)+1)
	for k, v := range titles {
		updated[k] = v
	}
	updated[sheet] = true
	s.cache.Set(titlesKey, updated, cache.DefaultExpiration)
	s.logger.Info("export.gsheets.sheet_added", "sheet", sheet)
	return nil
}

func (s *Sink) ensureHeaders(ctx context.Context, sheet string) error {
	if _, ok := s.cache.Get(headerKey + sheet); ok {
		return nil
	}
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, a1(sheet, "A1:L1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", sheet, common.ExternalError(serviceName, err))
	}
	if len(vr.Values) == 0 || !export.HeadersMatch(toStrings(vr.Values[0])) {
		body := &sheets.ValueRange{Values: [][]any{toAny(export.Headers)}}
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, a1(sheet, "A1"), body).
			ValueInputOption(valueInputRaw).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("write header of %s: %w", sheet, common.ExternalError(serviceName, err))
		}
	}
	s.cache.Set(headerKey+sheet, true, cache.DefaultExpiration)
	return nil
}

// a1 quotes a sheet title for use in an A1 range.
func a1(sheet, cells string) string {
	q := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if cells == "" {
		return q
	}
	return q + "!" + cells
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func toStrings(vs []any) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = fmt.Sprint(v)
	}
	return out
}

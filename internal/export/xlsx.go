package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

const defaultSheet = "Sheet1"

// XLSXSink keeps invoices in a local workbook. The file is reopened for every
// call so edits made between runs are respected.
type XLSXSink struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

var _ Sink = (*XLSXSink)(nil)

func NewXLSXSink(path string, logger *slog.Logger) *XLSXSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXSink{path: path, logger: logger}
}

func (s *XLSXSink) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("open workbook %s: %w", s.path, err)
}

func (s *XLSXSink) ListKnownIDs(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	known := map[string]struct{}{}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return known, nil
	}
	f, _, err := s.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		if !IsInvoiceSheet(sheet) {
			continue
		}
		cols, err := f.GetCols(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(cols) == 0 {
			continue
		}
		for i, id := range cols[0] {
			if i == 0 || id == "" {
				continue
			}
			known[id] = struct{}{}
		}
	}
	return known, nil
}

func (s *XLSXSink) Append(ctx context.Context, rec invoice.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	f, fresh, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := SheetNameForDate(rec.InvoiceDate)
	if err := ensureSheet(f, sheet, fresh); err != nil {
		return err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	cell, _ := excelize.CoordinatesToCellName(1, len(rows)+1)
	values := Row(rec)
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"sheet", sheet,
		"file_id", rec.FileID,
		"row", len(rows)+1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ensureSheet creates the sheet when missing and rewrites a wrong header row.
// A freshly created workbook loses its default sheet.
func ensureSheet(f *excelize.File, sheet string, fresh bool) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	if idx == -1 {
		if idx, err = f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if fresh {
			f.SetActiveSheet(idx)
			if err := f.DeleteSheet(defaultSheet); err != nil {
				return err
			}
		}
		_ = f.SetColWidth(sheet, "A", "C", 24)
		_ = f.SetColWidth(sheet, "D", "L", 16)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) > 0 && HeadersMatch(rows[0]) {
		return nil
	}
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	return f.SetSheetRow(sheet, "A1", &header)
}

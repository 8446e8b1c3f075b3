// Package repository keeps extracted invoices in SQL ledgers. Each row carries
// the year sheet it would occupy in a spreadsheet so the layouts line up.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

const (
	tableInvoices = "invoices"

	colFileID         = "file_id"
	colSheet          = "sheet"
	colFileName       = "file_name"
	colFileURL        = "file_url"
	colInvoiceNumber  = "invoice_number"
	colInvoiceDate    = "invoice_date"
	colCompany        = "company"
	colProduct        = "product"
	colTotalValue     = "total_value"
	colCurrency       = "currency"
	colTaxesPaid      = "taxes_paid"
	colLanguage       = "language"
	colExtractionDate = "extraction_date"
	colExtraFields    = "extra_fields"
	colCreatedAt      = "created_at"
)

// insertColumns is the column order ledgerArgs fills.
var insertColumns = []string{
	colFileID, colSheet, colFileName, colFileURL, colInvoiceNumber, colInvoiceDate, colCompany,
	colProduct, colTotalValue, colCurrency, colTaxesPaid, colLanguage, colExtractionDate,
	colExtraFields, colCreatedAt,
}

// ledgerTables describes the invoices table for the ent migrator. Create
// mutates the tables it is given, so every call builds fresh ones.
func ledgerTables() []*schema.Table {
	fileID := &schema.Column{Name: colFileID, Type: field.TypeString}
	sheet := &schema.Column{Name: colSheet, Type: field.TypeString}
	text := func(name string) *schema.Column {
		return &schema.Column{Name: name, Type: field.TypeString, Default: ""}
	}
	invoices := schema.NewTable(tableInvoices).
		AddPrimary(fileID).
		AddColumn(sheet).
		AddColumn(text(colFileName)).
		AddColumn(text(colFileURL)).
		AddColumn(text(colInvoiceNumber)).
		AddColumn(text(colInvoiceDate)).
		AddColumn(text(colCompany)).
		AddColumn(text(colProduct)).
		AddColumn(text(colTotalValue)).
		AddColumn(text(colCurrency)).
		AddColumn(text(colTaxesPaid)).
		AddColumn(text(colLanguage)).
		AddColumn(text(colExtractionDate)).
		AddColumn(&schema.Column{Name: colExtraFields, Type: field.TypeJSON}).
		AddColumn(&schema.Column{Name: colCreatedAt, Type: field.TypeTime})
	invoices.AddIndex("idx_invoices_sheet", false, []string{colSheet})
	return []*schema.Table{invoices}
}

// ledgerArgs returns the insert arguments in insertColumns order.
func ledgerArgs(rec invoice.Record, now time.Time) ([]any, error) {
	extra, err := json.Marshal(rec.Extra())
	if err != nil {
		return nil, err
	}
	return []any{
		rec.FileID,
		export.SheetNameForDate(rec.InvoiceDate),
		rec.FileName,
		rec.FileURL,
		rec.InvoiceNumber,
		rec.InvoiceDate,
		rec.Company,
		rec.Product,
		rec.TotalValue,
		rec.Currency,
		rec.TaxesPaid,
		rec.Language,
		rec.ExtractionDate,
		string(extra),
		now.UTC(),
	}, nil
}

// Ledger is the invoices table behind an ent SQL driver. The SQLite and
// Postgres sinks differ only in how they open the driver.
type Ledger struct {
	drv    *entsql.Driver
	event  string
	logger *slog.Logger
	now    func() time.Time
}

// newLedger migrates the invoices table and returns a ledger on drv. event
// prefixes log lines, e.g. "repository.sqlite".
func newLedger(ctx context.Context, drv *entsql.Driver, event string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return nil, common.WrapError(errorsJoinDB(err), "init migration")
	}
	if err := m.Create(ctx, ledgerTables()...); err != nil {
		return nil, common.WrapError(errorsJoinDB(err), "create schema")
	}
	logger.Debug(event+".migrated", "dialect", drv.Dialect())
	return &Ledger{drv: drv, event: event, logger: logger, now: time.Now}, nil
}

func (l *Ledger) builder() *entsql.DialectBuilder {
	return entsql.Dialect(l.drv.Dialect())
}

func (l *Ledger) ListKnownIDs(ctx context.Context) (map[string]struct{}, error) {
	b := l.builder()
	q, args := b.Select(colFileID).From(b.Table(tableInvoices)).Query()
	var rows entsql.Rows
	if err := l.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, common.WrapError(errorsJoinDB(err), "list known ids")
	}
	defer rows.Close()
	var ids []string
	if err := entsql.ScanSlice(rows, &ids); err != nil {
		return nil, common.WrapError(errorsJoinDB(err), "scan file id")
	}
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return known, nil
}

// Append inserts rec; a file id that is already present is left untouched.
func (l *Ledger) Append(ctx context.Context, rec invoice.Record) error {
	start := time.Now()
	args, err := ledgerArgs(rec, l.now())
	if err != nil {
		return err
	}
	q, qargs := l.builder().Insert(tableInvoices).
		Columns(insertColumns...).
		Values(args...).
		OnConflict(entsql.ConflictColumns(colFileID), entsql.DoNothing()).
		Query()
	var res sql.Result
	if err := l.drv.Exec(ctx, q, qargs, &res); err != nil {
		return common.WrapError(errorsJoinDB(err), "insert invoice")
	}
	n, _ := res.RowsAffected()
	l.logger.Info(l.event+".append",
		"file_id", rec.FileID,
		"inserted", n == 1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Sheets returns row counts per year sheet.
func (l *Ledger) Sheets(ctx context.Context) (map[string]int, error) {
	b := l.builder()
	q, args := b.Select(colSheet, entsql.Count("*")).
		From(b.Table(tableInvoices)).
		GroupBy(colSheet).
		Query()
	var rows entsql.Rows
	if err := l.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, common.WrapError(errorsJoinDB(err), "count sheets")
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var sheet string
		var n int
		if err := rows.Scan(&sheet, &n); err != nil {
			return nil, common.WrapError(errorsJoinDB(err), "scan sheet count")
		}
		out[sheet] = n
	}
	return out, rows.Err()
}

// Dialect reports the SQL dialect the ledger speaks.
func (l *Ledger) Dialect() string {
	return l.drv.Dialect()
}

var _ export.Sink = (*Ledger)(nil)

package repository

import (
	"context"
	"path/filepath"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

func sampleRecord(id, date string) invoice.Record {
	return invoice.Record{
		FileID: id, FileName: id + ".pdf", FileURL: "file:///" + id, InvoiceNumber: "INV-1",
		InvoiceDate: date, Company: "ACME", Product: "Widget", TotalValue: "19.0", Currency: "EUR",
		TaxesPaid: "3.03", Language: "en", ExtraFields: map[string]any{"iban": "DE00"},
		ExtractionDate: "2024-05-01T10:00:00Z",
	}
}

func openTestSQLite(t *testing.T) *SQLiteSink {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSinkAppendAndList(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	known, err := s.ListKnownIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, known)

	require.NoError(t, s.Append(ctx, sampleRecord("a", "2024-03-15")))
	require.NoError(t, s.Append(ctx, sampleRecord("b", "2023-01-01")))
	require.NoError(t, s.Append(ctx, sampleRecord("c", "")))

	known, err = s.ListKnownIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, known)

	sheets, err := s.Sheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Invoices 2024": 1, "Invoices 2023": 1, "Invoices Unknown": 1}, sheets)
}

func TestSQLiteSinkDuplicateIsIgnored(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleRecord("a", "2024-03-15")))
	require.NoError(t, s.Append(ctx, sampleRecord("a", "2024-03-16")))

	var date string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT invoice_date FROM invoices WHERE file_id = ?`, "a").Scan(&date))
	assert.Equal(t, "2024-03-15", date)
}

func TestSQLiteSinkStoresExtraFields(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, sampleRecord("a", "2024-03-15")))

	var extra string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT extra_fields FROM invoices WHERE file_id = ?`, "a").Scan(&extra))
	assert.JSONEq(t, `{"iban":"DE00"}`, extra)
}

func TestOpenSQLiteMigratesIdempotently(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, dialect.SQLite, s.Dialect())
	require.NoError(t, s.Append(ctx, sampleRecord("a", "2024-03-15")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	known, err := s.ListKnownIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, known, "a")

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_invoices_sheet'`).Scan(&n))
	assert.Equal(t, 1, n)
}

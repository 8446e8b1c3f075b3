package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

// fakeSheets is an in-memory spreadsheet keyed by sheet title.
type fakeSheets struct {
	mu       sync.Mutex
	tabs     map[string][][]any
	order    []string
	getCalls int
	appends  []string
}

func (f *fakeSheets) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case path == "sid" && r.Method == http.MethodGet:
			f.getCalls++
			assert.Equal(t, "sheets.properties.title", r.URL.Query().Get("fields"))
			var sp sheets.Spreadsheet
			for _, title := range f.order {
				sp.Sheets = append(sp.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title}})
			}
			_ = json.NewEncoder(w).Encode(&sp)
		case path == "sid:batchUpdate":
			var body sheets.BatchUpdateSpreadsheetRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			title := body.Requests[0].AddSheet.Properties.Title
			f.tabs[title] = nil
			f.order = append(f.order, title)
			_, _ = w.Write([]byte(`{}`))
		case strings.HasPrefix(path, "sid/values/"):
			rng := strings.TrimPrefix(path, "sid/values/")
			appendCall := strings.HasSuffix(rng, ":append")
			rng = strings.TrimSuffix(rng, ":append")
			title, cells, _ := strings.Cut(rng, "!")
			title = strings.Trim(title, "'")
			rows, ok := f.tabs[title]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"unknown sheet"}`))
				return
			}
			switch {
			case r.Method == http.MethodGet && cells == "A:A":
				var col [][]any
				for _, row := range rows {
					col = append(col, row[:1])
				}
				_ = json.NewEncoder(w).Encode(&sheets.ValueRange{Values: col})
			case r.Method == http.MethodGet:
				if len(rows) == 0 {
					_, _ = w.Write([]byte(`{}`))
					return
				}
				_ = json.NewEncoder(w).Encode(&sheets.ValueRange{Values: rows[:1]})
			case r.Method == http.MethodPut:
				assert.Equal(t, "RAW", r.URL.Query().Get("valueInputOption"))
				var vr sheets.ValueRange
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&vr))
				if len(rows) == 0 {
					f.tabs[title] = vr.Values
				} else {
					rows[0] = vr.Values[0]
				}
				_, _ = w.Write([]byte(`{}`))
			case appendCall:
				assert.Equal(t, "INSERT_ROWS", r.URL.Query().Get("insertDataOption"))
				var vr sheets.ValueRange
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&vr))
				f.tabs[title] = append(rows, vr.Values...)
				f.appends = append(f.appends, title)
				_, _ = w.Write([]byte(`{}`))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestSink(t *testing.T, srv *httptest.Server) *Sink {
	t.Helper()
	sink, err := New(context.Background(), "sid", nil, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return sink
}

func newFake(t *testing.T, f *fakeSheets) (*Sink, func()) {
	t.Helper()
	if f.tabs == nil {
		f.tabs = map[string][][]any{}
	}
	srv := httptest.NewServer(f.handler(t))
	return newTestSink(t, srv), srv.Close
}

func TestAppendCreatesYearSheetWithHeaders(t *testing.T) {
	f := &fakeSheets{}
	sink, done := newFake(t, f)
	defer done()
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, invoice.Record{FileID: "a", InvoiceDate: "2024-03-15"}))
	require.NoError(t, sink.Append(ctx, invoice.Record{FileID: "b", InvoiceDate: "2024-07-01"}))
	require.NoError(t, sink.Append(ctx, invoice.Record{FileID: "c", InvoiceDate: "unknown"}))

	assert.Equal(t, []string{"Invoices 2024", "Invoices Unknown"}, f.order)
	rows := f.tabs["Invoices 2024"]
	require.Len(t, rows, 3)
	assert.Equal(t, "File ID", rows[0][0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, 1, f.getCalls, "sheet titles are cached between appends")
}

func TestAppendRepairsHeaderRow(t *testing.T) {
	f := &fakeSheets{
		tabs:  map[string][][]any{"Invoices 2023": {{"wrong"}}},
		order: []string{"Invoices 2023"},
	}
	sink, done := newFake(t, f)
	defer done()

	require.NoError(t, sink.Append(context.Background(), invoice.Record{FileID: "x", InvoiceDate: "2023-01-01"}))
	rows := f.tabs["Invoices 2023"]
	assert.Len(t, rows[0], len(export.Headers))
	assert.Equal(t, "x", rows[1][0])
}

func TestListKnownIDs(t *testing.T) {
	f := &fakeSheets{
		tabs: map[string][][]any{
			"Invoices 2023":    {{"File ID"}, {"a"}, {"b"}},
			"Invoices Unknown": {{"File ID"}, {"c"}},
			"Notes":            {{"File ID"}, {"ignored"}},
		},
		order: []string{"Invoices 2023", "Invoices Unknown", "Notes"},
	}
	sink, done := newFake(t, f)
	defer done()

	known, err := sink.ListKnownIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, known)
}

func TestAPIErrorsAreExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestSink(t, srv).ListKnownIDs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExternal))
}

func TestA1Quoting(t *testing.T) {
	assert.Equal(t, "'Invoices 2024'!A:A", a1("Invoices 2024", "A:A"))
	assert.Equal(t, "'O''Brien'", a1("O'Brien", ""))
}

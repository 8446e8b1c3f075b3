package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

type memSource struct {
	docs    []ingest.DocumentRef
	content map[string][]byte
	listErr error
}

func (s *memSource) ListDocuments(context.Context, string) ([]ingest.DocumentRef, error) {
	return s.docs, s.listErr
}

func (s *memSource) Download(_ context.Context, id string) ([]byte, error) {
	b, ok := s.content[id]
	if !ok {
		return nil, errors.New("no such document")
	}
	return b, nil
}

type memSink struct {
	mu        sync.Mutex
	known     map[string]struct{}
	rows      []invoice.Record
	failOn    string
	listCalls int
}

func (s *memSink) ListKnownIDs(context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := map[string]struct{}{}
	for k := range s.known {
		out[k] = struct{}{}
	}
	for _, r := range s.rows {
		out[r.FileID] = struct{}{}
	}
	return out, nil
}

func (s *memSink) Append(_ context.Context, rec invoice.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.FileID == s.failOn {
		return errors.New("sheet write failed")
	}
	s.rows = append(s.rows, rec)
	return nil
}

// fakeExtractor keys its behavior on the document content. When gate is set
// each call announces itself on started and waits for gate to close.
type fakeExtractor struct {
	mu      sync.Mutex
	docs    []extract.Document
	ids     []string
	model   func(model string) (*extract.Result, error)
	started chan string
	gate    chan struct{}
}

func (f *fakeExtractor) Extract(ctx context.Context, doc extract.Document) (*extract.Result, error) {
	return f.ExtractWithModel(ctx, doc, "default")
}

func (f *fakeExtractor) ExtractWithModel(ctx context.Context, doc extract.Document, model string) (*extract.Result, error) {
	f.mu.Lock()
	f.docs = append(f.docs, doc)
	f.ids = append(f.ids, common.DocumentIDFromContext(ctx))
	f.mu.Unlock()
	if f.gate != nil {
		f.started <- doc.Name
		<-f.gate
	}
	if f.model != nil {
		return f.model(model)
	}
	switch string(doc.Content) {
	case "bad":
		return nil, &extract.Error{Document: doc.Name, Model: model, Err: extract.ErrMalformedResponse}
	case "panic":
		panic("boom")
	}
	return &extract.Result{
		Record: invoice.Record{
			InvoiceNumber: "INV-" + doc.Name,
			InvoiceDate:   "2024-03-15",
			Company:       "ACME",
			Product:       "Widget",
			TotalValue:    string(doc.Content),
			Currency:      "EUR",
			TaxesPaid:     "N/A",
			Language:      "en",
		},
		Meta: extract.AttemptMeta{RequestedModel: model, Usage: llm.Usage{Cost: 0.0001}},
	}, nil
}

func (f *fakeExtractor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func newGatedExtractor() *fakeExtractor {
	return &fakeExtractor{started: make(chan string, 4), gate: make(chan struct{})}
}

type fixedText struct{ text string }

func (f fixedText) ExtractText(context.Context, []byte) (extract.TextExtractionResult, error) {
	return extract.TextExtractionResult{Text: f.text, Pages: 1, Method: "pdf-text"}, nil
}

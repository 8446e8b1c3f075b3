// Package pipeline runs extraction over a document store and records the
// results in a tabular store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
)

const DefaultWorkers = 5

type Config struct {
	Workers int
	// PreferText tries local PDF text extraction before sending raw bytes.
	PreferText bool
}

// Processor coordinates listing, download, extraction and append. A document
// is claimed before its id is checked against the sink and released after its
// append, so a batch scan and ProcessOne never work on the same id at once.
type Processor struct {
	Source    ingest.Source
	Sink      export.Sink
	Extractor extract.FieldExtractor
	Text      extract.TextExtractor
	Cfg       Config
	Logger    *slog.Logger

	now func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewProcessor(src ingest.Source, sink export.Sink, fe extract.FieldExtractor, text extract.TextExtractor, cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Processor{
		Source:    src,
		Sink:      sink,
		Extractor: fe,
		Text:      text,
		Cfg:       cfg,
		Logger:    logger,
		now:       time.Now,
		inflight:  make(map[string]struct{}),
	}
}

// claim reports whether id was free and is now held by the caller.
func (p *Processor) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == nil {
		p.inflight = make(map[string]struct{})
	}
	if _, ok := p.inflight[id]; ok {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Processor) release(id string) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

// Run scans folder once. Documents whose id the sink already knows, or that
// another caller is processing, are skipped; each new document is extracted
// independently and appended as soon as it completes. Only listing failures
// abort the run.
func (p *Processor) Run(ctx context.Context, folder string) (*Summary, error) {
	sum := &Summary{Folder: folder, StartedAt: p.now()}
	p.Logger.Info("pipeline.scan.start", "folder", folder, "workers", p.Cfg.Workers)

	docs, err := p.Source.ListDocuments(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sum.Listed = len(docs)

	var claimed []ingest.DocumentRef
	for _, d := range docs {
		if !p.claim(d.ID) {
			p.Logger.Info("pipeline.document.in_flight", "file_id", d.ID, "file", d.Name)
			sum.Skipped++
			continue
		}
		claimed = append(claimed, d)
	}

	known, err := p.Sink.ListKnownIDs(ctx)
	if err != nil {
		for _, d := range claimed {
			p.release(d.ID)
		}
		return nil, fmt.Errorf("list known ids: %w", err)
	}

	var pending []ingest.DocumentRef
	for _, d := range claimed {
		if _, ok := known[d.ID]; ok {
			p.release(d.ID)
			sum.Skipped++
			continue
		}
		pending = append(pending, d)
	}
	p.Logger.Info("pipeline.scan.pending", "listed", len(docs), "known", len(known), "pending", len(pending))

	results := make(chan Outcome)
	go func() {
		defer close(results)
		var g errgroup.Group
		g.SetLimit(p.Cfg.Workers)
		for i, d := range pending {
			if ctx.Err() != nil {
				p.release(d.ID)
				continue
			}
			g.Go(func() error {
				results <- p.extractOne(ctx, i, d)
				return nil
			})
		}
		_ = g.Wait()
	}()

	for o := range results {
		if o.Status == constants.DocumentStatusExtracted {
			p.appendOutcome(ctx, &o)
		}
		p.release(o.Document.ID)
		sum.add(o)
	}
	sum.sortOutcomes()
	sum.FinishedAt = p.now()

	p.Logger.Info("pipeline.scan.done",
		"folder", folder,
		"listed", sum.Listed,
		"skipped", sum.Skipped,
		"processed", sum.Processed,
		"failed", sum.Failed,
		"appended", sum.Appended,
		"total_value", sum.TotalValue.StringFixed(2),
		"elapsed_ms", sum.FinishedAt.Sub(sum.StartedAt).Milliseconds(),
	)
	return sum, ctx.Err()
}

// ProcessOne extracts and appends a single document unless the sink already
// holds its id or a batch scan is working on it; both cases are reported as
// duplicates. Used for documents discovered outside a batch scan.
func (p *Processor) ProcessOne(ctx context.Context, doc ingest.DocumentRef) (Outcome, error) {
	if !p.claim(doc.ID) {
		p.Logger.Info("pipeline.document.duplicate", "file_id", doc.ID, "file", doc.Name, "in_flight", true)
		return Outcome{Document: doc, Status: constants.DocumentStatusDuplicate}, nil
	}
	defer p.release(doc.ID)

	known, err := p.Sink.ListKnownIDs(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("list known ids: %w", err)
	}
	if _, ok := known[doc.ID]; ok {
		p.Logger.Info("pipeline.document.duplicate", "file_id", doc.ID, "file", doc.Name)
		return Outcome{Document: doc, Status: constants.DocumentStatusDuplicate}, nil
	}
	o := p.extractOne(ctx, 0, doc)
	if o.Status == constants.DocumentStatusExtracted {
		p.appendOutcome(ctx, &o)
	}
	return o, nil
}

// extractOne never panics; a panic in a collaborator becomes a failed outcome.
func (p *Processor) extractOne(ctx context.Context, index int, ref ingest.DocumentRef) (out Outcome) {
	out = Outcome{Index: index, Document: ref, Status: constants.DocumentStatusQueued}
	ctx = common.WithDocumentID(ctx, ref.ID)
	log := p.Logger.With("file_id", ref.ID, "file", ref.Name)
	defer func() {
		if r := recover(); r != nil {
			out.fail(fmt.Errorf("%w: panic: %v", common.ErrInternal, r))
			log.Error("pipeline.document.panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	content, err := p.Source.Download(ctx, ref.ID)
	if err != nil {
		out.fail(fmt.Errorf("download: %w", err))
		log.Error("pipeline.document.failed", "stage", "download", "error", err)
		return out
	}

	doc := extract.Document{Name: ref.Name, Content: content}
	if p.Cfg.PreferText && p.Text != nil {
		doc.Text = p.preExtract(ctx, content, log)
	}

	res, err := p.Extractor.Extract(ctx, doc)
	if err != nil {
		out.fail(err)
		log.Error("pipeline.document.failed", "stage", "extract", "error", err)
		return out
	}

	rec := res.Record.WithProvenance(invoice.Provenance{
		FileID:         ref.ID,
		FileName:       ref.Name,
		FileURL:        ref.URL,
		ExtractionDate: p.now().UTC().Format(time.RFC3339),
	})
	meta := res.Meta
	out.Record = &rec
	out.Meta = &meta
	out.Status = constants.DocumentStatusExtracted
	return out
}

// preExtract returns the document text when there is enough of it to send
// instead of the raw bytes, else "".
func (p *Processor) preExtract(ctx context.Context, content []byte, log *slog.Logger) string {
	res, err := p.Text.ExtractText(ctx, content)
	if err != nil {
		log.Warn("pipeline.text.failed", "error", err)
		return ""
	}
	if len(strings.TrimSpace(res.Text)) < extract.MinUsefulText {
		log.Debug("pipeline.text.too_short", "chars", len(res.Text), "pages", res.Pages)
		return ""
	}
	log.Debug("pipeline.text.ok", "chars", len(res.Text), "pages", res.Pages, "method", res.Method)
	return res.Text
}

func (p *Processor) appendOutcome(ctx context.Context, o *Outcome) {
	if _, err := export.AppendRows(ctx, p.Sink, []invoice.Record{*o.Record}); err != nil {
		o.fail(err)
		p.Logger.Error("pipeline.document.failed", "stage", "append", "file_id", o.Document.ID, "error", err)
		return
	}
	o.Appended = true
	if _, ok := ParseAmount(o.Record.TotalValue); !ok {
		p.Logger.Warn("pipeline.total.unparsed", "file_id", o.Document.ID, "total_value", o.Record.TotalValue)
	}
	p.Logger.Info("pipeline.document.ok",
		"file_id", o.Document.ID,
		"file", o.Document.Name,
		"invoice_date", o.Record.InvoiceDate,
		"total_value", o.Record.TotalValue,
	)
}

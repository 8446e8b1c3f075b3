// Package extract drives one extraction attempt per document: build the
// request, send it, retry once on truncation, then sanitize, normalize and
// validate the answer.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

// Config for the Extractor.
type Config struct {
	Model       string
	Temperature float64
	Backends    *llm.Backends // nil means family defaults with a 1000 token base
	Dumper      *Dumper       // nil disables debug dumps
}

type Extractor struct {
	transport   llm.Transport
	model       string
	temperature float64
	backends    *llm.Backends
	dumper      *Dumper
	prompt      string
	schema      map[string]any
	logger      *slog.Logger
}

func NewExtractor(transport llm.Transport, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backends == nil {
		cfg.Backends = llm.NewBackends(0, nil)
	}
	fields := constants.CanonicalFields()
	return &Extractor{
		transport:   transport,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		backends:    cfg.Backends,
		dumper:      cfg.Dumper,
		prompt:      llm.BuildInvoicePrompt(fields),
		schema:      llm.BuildInvoiceJSONSchema(fields),
		logger:      logger,
	}
}

// Extract runs one attempt with the configured model.
func (e *Extractor) Extract(ctx context.Context, doc Document) (*Result, error) {
	return e.ExtractWithModel(ctx, doc, e.model)
}

// ExtractWithModel runs one attempt against model. Failures are returned as
// *Error wrapping one of *llm.TransportError, *NoCompletionChoicesError,
// *MalformedResponseError or *invoice.SchemaValidationError.
func (e *Extractor) ExtractWithModel(ctx context.Context, doc Document, model string) (*Result, error) {
	start := time.Now()
	reqID := uuid.New().String()
	ctx = common.WithRequestID(ctx, reqID)
	log := e.logger.With("req_id", reqID, "file", doc.Name, "model", model)
	if id := common.DocumentIDFromContext(ctx); id != "" {
		log = log.With("file_id", id)
	}

	backend := e.backends.Resolve(model)
	req := e.buildRequest(doc, backend)
	meta := AttemptMeta{RequestedModel: model, MaxTokens: req.MaxTokens}

	log.Info("extract.start",
		"doc_hash", strconv.FormatUint(xxhash.Sum64(doc.Content), 16),
		"text_len", len(doc.Text),
		"bytes", len(doc.Content),
		"max_tokens", req.MaxTokens,
		"structured", backend.StructuredOutput,
		"reasoning_effort", backend.ReasoningEffort,
	)

	fail := func(err error) (*Result, error) {
		meta.Elapsed = time.Since(start)
		return nil, &Error{Document: doc.Name, Model: model, Meta: meta, Err: err}
	}

	comp, err := e.send(ctx, doc, req, &meta)
	if err != nil {
		log.Error("extract.transport_failed", "error", err)
		return fail(err)
	}

	if needsBudgetRetry(comp) {
		req.MaxTokens = llm.RetryBudget(req.MaxTokens)
		meta.MaxTokens = req.MaxTokens
		meta.BudgetRetried = true
		log.Warn("extract.retry_budget",
			"finish_reason", comp.FinishReason,
			"empty", strings.TrimSpace(comp.Content) == "",
			"max_tokens", req.MaxTokens,
		)
		comp, err = e.send(ctx, doc, req, &meta)
		if err != nil {
			log.Error("extract.transport_failed", "error", err, "budget_retry", true)
			return fail(err)
		}
	}

	payload, err := parseContent(model, comp.Content)
	if err != nil {
		log.Error("extract.malformed", "error", err, "content", comp.Content)
		return fail(err)
	}

	normalized := invoice.Normalize(payload)
	rec, err := invoice.Validate(normalized)
	if err != nil {
		log.Error("extract.invalid", "error", err, "payload", normalized)
		return fail(err)
	}

	meta.Elapsed = time.Since(start)
	log.Info("extract.ok",
		"actual_model", meta.ActualModel,
		"invoice_number", rec.InvoiceNumber,
		"invoice_date", rec.InvoiceDate,
		"total_value", rec.TotalValue,
		"currency", rec.Currency,
		"prompt_tokens", meta.Usage.PromptTokens,
		"completion_tokens", meta.Usage.CompletionTokens,
		"budget_retried", meta.BudgetRetried,
		"elapsed_ms", meta.Elapsed.Milliseconds(),
	)
	return &Result{Record: rec, Meta: meta}, nil
}

func (e *Extractor) buildRequest(doc Document, backend llm.Backend) llm.CompletionRequest {
	req := llm.CompletionRequest{
		Model: backend.Model,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: llm.DocumentParts(e.prompt, doc.Name, doc.Content, doc.Text),
		}},
		Temperature:     e.temperature,
		MaxTokens:       backend.MaxTokens,
		ReasoningEffort: backend.ReasoningEffort,
	}
	if backend.StructuredOutput {
		req.ResponseSchema = e.schema
	}
	return req
}

// send performs one transport call, dumps both sides when enabled and turns
// an empty choice list into *NoCompletionChoicesError.
func (e *Extractor) send(ctx context.Context, doc Document, req llm.CompletionRequest, meta *AttemptMeta) (llm.Completion, error) {
	var ref DumpRef
	dumping := e.dumper != nil
	if dumping {
		var err error
		if ref, err = e.dumper.WriteInput(req.Model, doc.Name, e.prompt, e.schema, req); err != nil {
			e.logger.Warn("extract.dump.failed", "kind", "input", "error", err)
			dumping = false
		}
	}

	comp, err := e.transport.Complete(ctx, req)
	if err != nil {
		return llm.Completion{}, err
	}

	meta.ActualModel = comp.Model
	meta.Usage = addUsage(meta.Usage, comp.Usage)
	meta.RateLimit = comp.RateLimit
	meta.FinishReason = comp.FinishReason

	if dumping {
		if _, err := e.dumper.WriteOutput(ref, req.Model, comp.Model, comp.Raw, comp.Header); err != nil {
			e.logger.Warn("extract.dump.failed", "kind", "output", "error", err)
		}
	}

	if comp.Choices == 0 {
		return llm.Completion{}, &NoCompletionChoicesError{Model: req.Model, Raw: string(comp.Raw)}
	}
	return comp, nil
}

func needsBudgetRetry(c llm.Completion) bool {
	return strings.TrimSpace(c.Content) == "" || llm.IsTruncated(c.FinishReason)
}

// parseContent sanitizes model text and decodes it as a JSON object,
// keeping numbers in their literal form.
func parseContent(model, content string) (map[string]any, error) {
	clean := llm.Sanitize(content)
	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, &MalformedResponseError{Model: model, Content: content, Err: err}
	}
	if payload == nil {
		return nil, &MalformedResponseError{Model: model, Content: content, Err: errors.New("not a JSON object")}
	}
	if dec.More() {
		return nil, &MalformedResponseError{Model: model, Content: content, Err: fmt.Errorf("trailing data after JSON object")}
	}
	return payload, nil
}

func addUsage(a, b llm.Usage) llm.Usage {
	return llm.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
		Cost:             a.Cost + b.Cost,
	}
}

package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/internal/invoice"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

// TextExtractor turns document bytes into plain text ahead of the model call.
type TextExtractor interface {
	ExtractText(ctx context.Context, content []byte) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Method   string // "pdf-text"
	Duration time.Duration
}

// Document is the input of one extraction attempt. When Text is set it is
// sent instead of Content. Name is for logs and the prompt only.
type Document struct {
	Name    string
	Content []byte
	Text    string
}

// AttemptMeta is observational data about an attempt. It never drives control flow.
type AttemptMeta struct {
	RequestedModel string
	ActualModel    string
	Usage          llm.Usage
	RateLimit      map[string]string
	FinishReason   string
	MaxTokens      int
	BudgetRetried  bool
	Elapsed        time.Duration
}

// Result is a successful extraction.
type Result struct {
	Record invoice.Record
	Meta   AttemptMeta
}

// FieldExtractor is what the pipeline depends on.
type FieldExtractor interface {
	Extract(ctx context.Context, doc Document) (*Result, error)
	ExtractWithModel(ctx context.Context, doc Document, model string) (*Result, error)
}

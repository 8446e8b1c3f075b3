// Package async runs single-document processing jobs on a fixed worker pool.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to process.
type Job struct {
	ID          uuid.UUID
	Document    ingest.DocumentRef
	SubmittedAt time.Time
}

// NewJob stamps a document with a fresh id and the current time.
func NewJob(doc ingest.DocumentRef) Job {
	return Job{ID: uuid.New(), Document: doc, SubmittedAt: time.Now()}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
)

type recordingProcessor struct {
	mu    sync.Mutex
	seen  []string
	block chan struct{}
}

func (r *recordingProcessor) ProcessOne(_ context.Context, doc ingest.DocumentRef) (pipeline.Outcome, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, doc.ID)
	if doc.ID == "panic" {
		panic("boom")
	}
	if doc.ID == "err" {
		return pipeline.Outcome{}, errors.New("sink down")
	}
	return pipeline.Outcome{Document: doc, Status: constants.DocumentStatusExtracted}, nil
}

func TestQueueProcessesAndDrains(t *testing.T) {
	proc := &recordingProcessor{}
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(4))

	for _, id := range []string{"a", "panic", "err", "b"} {
		require.NoError(t, q.Enqueue(context.Background(), NewJob(ingest.DocumentRef{ID: id})))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.ElementsMatch(t, []string{"a", "panic", "err", "b"}, proc.seen)
	assert.ErrorIs(t, q.Enqueue(context.Background(), NewJob(ingest.DocumentRef{ID: "late"})), ErrQueueClosed)
}

func TestEnqueueHonorsContextUnderBackpressure(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), NewJob(ingest.DocumentRef{ID: "1"})))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), NewJob(ingest.DocumentRef{ID: "2"})))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, NewJob(ingest.DocumentRef{ID: "3"})), context.DeadlineExceeded)

	close(proc.block)
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	q.Shutdown(sctx)
	assert.ElementsMatch(t, []string{"1", "2"}, proc.seen)
}

func TestNewJob(t *testing.T) {
	j := NewJob(ingest.DocumentRef{ID: "x"})
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", j.ID.String())
	assert.False(t, j.SubmittedAt.IsZero())
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
)

var ErrScanInProgress = errors.New("a scan is already running")

// Runner is satisfied by *pipeline.Processor.
type Runner interface {
	Run(ctx context.Context, folder string) (*pipeline.Summary, error)
}

// Scans serializes batch runs and remembers the last summary.
type Scans struct {
	runner Runner
	folder string
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	last    *pipeline.Summary
	lastErr error
	wg      sync.WaitGroup
}

func NewScans(runner Runner, folder string, logger *slog.Logger) *Scans {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scans{runner: runner, folder: folder, logger: logger}
}

// Run scans synchronously. It returns ErrScanInProgress when another run holds the slot.
func (s *Scans) Run(ctx context.Context) (*pipeline.Summary, error) {
	if !s.acquire() {
		return nil, ErrScanInProgress
	}
	return s.run(ctx)
}

// Start launches a scan in the background. The scan outlives the caller's
// request; ctx bounds it.
func (s *Scans) Start(ctx context.Context) error {
	if !s.acquire() {
		return ErrScanInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.run(ctx)
	}()
	return nil
}

// Wait blocks until background scans started with Start have finished.
func (s *Scans) Wait() { s.wg.Wait() }

// Last returns the most recent finished summary, if any, and its error.
func (s *Scans) Last() (*pipeline.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

func (s *Scans) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scans) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scans) run(ctx context.Context) (*pipeline.Summary, error) {
	sum, err := s.runner.Run(ctx, s.folder)
	if err != nil {
		s.logger.Error("server.scan.failed", "folder", s.folder, "error", err)
	}
	s.mu.Lock()
	s.running = false
	if sum != nil {
		s.last = sum
	}
	s.lastErr = err
	s.mu.Unlock()
	return sum, err
}

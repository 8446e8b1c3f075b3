package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/internal/app"
	"github.com/joseph-ayodele/invoice-scanner/internal/async"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := app.NewScanner(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire scanner", "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	scans := server.NewScans(scanner.Processor, scanner.Folder, logger)

	// gRPC health
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCHealth()
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
		}
	}()

	// admin API
	admin := &http.Server{
		Addr:              cfg.Server.AdminAddr,
		Handler:           server.NewAdminRouter(ctx, scans, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin serve error", "error", err)
		}
	}()

	// folder watch feeds single documents into the queue
	var queue *async.ProcessorQueue
	if cfg.Source.Kind == common.SourceLocal {
		local, ok := scanner.Source.(*ingest.LocalSource)
		if !ok {
			logger.Error("local source expected for folder watch")
			os.Exit(1)
		}
		queue = async.NewProcessorQueue(scanner.Processor, logger,
			async.WithWorkers(cfg.Scan.Workers),
			async.WithQueueSize(512),
			async.WithProcessTimeout(cfg.LLM.Timeout*time.Duration(max(1, cfg.LLM.RetryAttempts))*2),
		)
		if err := watchFolder(ctx, local, scanner.Folder, queue, logger); err != nil {
			logger.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("invoice-scannerd started",
		"source", cfg.Source.Kind,
		"sink", cfg.Sink.Kind,
		"folder", scanner.Folder,
		"interval", cfg.Scan.Interval.String(),
		"admin_addr", cfg.Server.AdminAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
	)

	runPeriodic(ctx, scans, cfg.Scan.Interval, logger)

	logger.Info("shutting down")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = admin.Shutdown(shutdownCtx)
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	scans.Wait()
	grpcServer.GracefulStop()
}

// runPeriodic scans immediately and then every interval until ctx is done.
func runPeriodic(ctx context.Context, scans *server.Scans, interval time.Duration, logger *slog.Logger) {
	tick := func() {
		if _, err := scans.Run(ctx); errors.Is(err, server.ErrScanInProgress) {
			logger.Info("periodic scan skipped, another scan is running")
		}
	}
	tick()
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}

func watchFolder(ctx context.Context, src *ingest.LocalSource, root string, queue *async.ProcessorQueue, logger *slog.Logger) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{Roots: []string{root}, Debounce: 2 * time.Second}, logger)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case path, ok := <-events:
				if !ok {
					return
				}
				ref, err := src.Ref(root, path)
				if err != nil {
					logger.Warn("watch.ref_failed", "path", path, "error", err)
					continue
				}
				if err := queue.Enqueue(ctx, async.NewJob(ref)); err != nil {
					logger.Warn("watch.enqueue_failed", "path", path, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watch.error", "error", err)
			}
		}
	}()
	return nil
}

// Package app assembles the scanner from configuration for the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/export"
	"github.com/joseph-ayodele/invoice-scanner/internal/export/gsheets"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/gauth"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest/gdrive"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
	"github.com/joseph-ayodele/invoice-scanner/internal/repository"
)

// Scanner is everything a batch or daemon run needs.
type Scanner struct {
	Processor *pipeline.Processor
	Source    ingest.Source
	Sink      export.Sink
	Folder    string
	Extractor *extract.Extractor
	Backends  *llm.Backends

	closers []func()
}

// Close releases sink resources in reverse order of acquisition.
func (s *Scanner) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// NewExtractor builds the model transport and extractor alone, which is all
// a model comparison needs.
func NewExtractor(cfg *common.Config, logger *slog.Logger) (*extract.Extractor, *llm.Backends, error) {
	var profiles []llm.BackendProfile
	if cfg.LLM.ModelsFile != "" {
		p, err := llm.LoadBackendProfiles(cfg.LLM.ModelsFile)
		if err != nil {
			return nil, nil, err
		}
		profiles = p
	}
	backends := llm.NewBackends(cfg.LLM.MaxTokens, profiles)

	var dumper *extract.Dumper
	if cfg.LLM.DebugDumpDir != "" {
		d, err := extract.NewDumper(cfg.LLM.DebugDumpDir, logger)
		if err != nil {
			return nil, nil, err
		}
		dumper = d
	}

	retry := llm.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.LLM.RetryAttempts
	if cfg.LLM.RetryBackoff > 0 {
		retry.InitialBackoff = cfg.LLM.RetryBackoff
	}
	client := openai.NewClient(openai.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Timeout:      cfg.LLM.Timeout,
		RateLimitRPS: cfg.LLM.RateLimitRPS,
		Retry:        retry,
	}, logger)

	ex := extract.NewExtractor(client, extract.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Backends:    backends,
		Dumper:      dumper,
	}, logger)
	return ex, backends, nil
}

// NewScanner wires source, sink and extractor per cfg. Call Close when done.
func NewScanner(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Scanner, error) {
	ex, backends, err := NewExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}
	s := &Scanner{Extractor: ex, Backends: backends}

	var google option.ClientOption
	if cfg.NeedsGoogle() {
		google, err = gauth.ClientOption(ctx, cfg.Google.CredentialsPath, cfg.Google.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	switch cfg.Source.Kind {
	case common.SourceGoogleDrive:
		src, err := gdrive.New(ctx, logger, google)
		if err != nil {
			return nil, err
		}
		s.Source = src
		s.Folder = cfg.Source.DriveFolderID
	case common.SourceLocal:
		s.Source = ingest.NewLocalSource(logger)
		s.Folder = cfg.Source.LocalFolder
	default:
		return nil, fmt.Errorf("unknown document source %q", cfg.Source.Kind)
	}

	if err := s.openSink(ctx, cfg, google, logger); err != nil {
		s.Close()
		return nil, err
	}

	var text extract.TextExtractor
	if cfg.LLM.PreferTextPDFs {
		text = extract.NewPDFTextExtractor(logger)
	}
	s.Processor = pipeline.NewProcessor(s.Source, s.Sink, ex, text, pipeline.Config{
		Workers:    cfg.Scan.Workers,
		PreferText: cfg.LLM.PreferTextPDFs,
	}, logger)
	return s, nil
}

func (s *Scanner) openSink(ctx context.Context, cfg *common.Config, google option.ClientOption, logger *slog.Logger) error {
	switch cfg.Sink.Kind {
	case common.SinkGoogleSheets:
		sink, err := gsheets.New(ctx, cfg.Sink.SpreadsheetID, logger, google)
		if err != nil {
			return err
		}
		s.Sink = sink
	case common.SinkXLSX:
		s.Sink = export.NewXLSXSink(cfg.Sink.XLSXPath, logger)
	case common.SinkSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.Sink.SQLitePath, logger)
		if err != nil {
			return err
		}
		s.Sink = db
		s.closers = append(s.closers, func() { _ = db.Close() })
	case common.SinkPostgres:
		pool, err := repository.Open(ctx, repository.Config{DSN: cfg.Sink.DatabaseURL, MaxConns: cfg.Sink.MaxConns}, logger)
		if err != nil {
			return err
		}
		pg, err := repository.NewPostgresSink(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return err
		}
		s.Sink = pg
		s.closers = append(s.closers, pg.Close)
	default:
		return fmt.Errorf("unknown tabular backend %q", cfg.Sink.Kind)
	}
	return nil
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/internal/app"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/gauth"
	"github.com/joseph-ayodele/invoice-scanner/internal/pipeline"
)

const usage = `usage: invoice-scanner [command] [flags]

commands:
  scan      extract new PDFs from the configured folder (default)
  compare   run one PDF against several models and print a pivot table
  known     list file ids already recorded in the tabular store
  auth      obtain a Google refresh token
`

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cmd := "scan"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	var err error
	switch cmd {
	case "scan":
		err = runScan(ctx, cfg, args)
	case "compare":
		err = runCompare(ctx, cfg, args)
	case "known":
		err = runKnown(ctx, cfg, args)
	case "auth":
		err = runAuth(ctx, cfg)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		printError("unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger logs to stderr so command output on stdout stays clean.
func setupLogger(cfg *common.Config, verbose bool) *slog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger := common.NewLoggerTo(os.Stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)
	return logger
}

func runScan(ctx context.Context, cfg *common.Config, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	folder := fs.String("folder", "", "override DRIVE_FOLDER_ID / LOCAL_FOLDER")
	workers := fs.Int("workers", cfg.Scan.Workers, "concurrent extractions (1-16)")
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(args)

	cfg.Scan.Workers = *workers
	if *folder != "" {
		if cfg.Source.Kind == common.SourceLocal {
			cfg.Source.LocalFolder = *folder
		} else {
			cfg.Source.DriveFolderID = *folder
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := setupLogger(cfg, *verbose)

	scanner, err := app.NewScanner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer scanner.Close()

	sum, err := scanner.Processor.Run(ctx, scanner.Folder)
	if sum != nil {
		printSummary(sum)
	}
	return err
}

func printSummary(sum *pipeline.Summary) {
	fmt.Printf("Listed %d PDFs, %d already recorded\n", sum.Listed, sum.Skipped)
	fmt.Printf("Processed %d new invoices (%d appended, %d failed)\n", sum.Processed, sum.Appended, sum.Failed)
	fmt.Printf("Total value processed: %s\n", sum.TotalValue.StringFixed(2))
	for _, o := range sum.Outcomes {
		if o.Err != nil {
			fmt.Printf("  FAILED %s: %s\n", o.Document.Name, o.Error)
		}
	}
}

func runCompare(ctx context.Context, cfg *common.Config, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	file := fs.String("file", "", "PDF to extract (required)")
	models := fs.String("models", "", "comma separated model ids (default: OPENROUTER_MODEL plus LLM_MODELS_FILE entries)")
	text := fs.Bool("text", false, "send extracted PDF text instead of the file")
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(args)

	if *file == "" {
		return common.NewAppError("USAGE", "--file is required", common.ErrInvalidInput)
	}
	if err := cfg.ValidateForCompare(); err != nil {
		return err
	}
	logger := setupLogger(cfg, *verbose)

	content, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	ex, backends, err := app.NewExtractor(cfg, logger)
	if err != nil {
		return err
	}

	list := splitModels(*models)
	if len(list) == 0 {
		list = append([]string{cfg.LLM.Model}, backends.Models()...)
		list = dedupe(list)
	}

	doc := extract.Document{Name: filepath.Base(*file), Content: content}
	if *text {
		res, err := extract.NewPDFTextExtractor(logger).ExtractText(ctx, content)
		if err != nil {
			return err
		}
		doc.Text = res.Text
	}

	results := pipeline.Compare(ctx, ex, doc, list, cfg.Scan.Workers)
	return pipeline.FormatPivot(os.Stdout, results)
}

func runKnown(ctx context.Context, cfg *common.Config, args []string) error {
	fs := flag.NewFlagSet("known", flag.ExitOnError)
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := setupLogger(cfg, *verbose)
	scanner, err := app.NewScanner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer scanner.Close()

	known, err := scanner.Sink.ListKnownIDs(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runAuth(ctx context.Context, cfg *common.Config) error {
	setupLogger(cfg, false)
	oc, err := gauth.LoadConfig(cfg.Google.CredentialsPath)
	if err != nil {
		return err
	}
	fmt.Printf("Open this URL, approve access and paste the code below:\n\n%s\n\ncode: ", gauth.AuthURL(oc, uuid.NewString()))
	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	tok, err := gauth.Exchange(ctx, oc, strings.TrimSpace(code))
	if err != nil {
		return err
	}
	fmt.Printf("\nAdd this to your .env:\nGOOGLE_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	return nil
}

func splitModels(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

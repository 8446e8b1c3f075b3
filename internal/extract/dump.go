package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	dumpStampLayout = "20060102T150405.000000"
	maxDumpSuffix   = 1000
)

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Dumper writes request/response pairs to a directory for offline inspection.
// Files are created with O_EXCL, so concurrent workers never overwrite each
// other; a colliding name gets a numeric suffix instead.
type Dumper struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// DumpRef ties an output dump to its input dump. Suffix is the collision
// suffix the input landed on; the output reuses it so the pair shares a name.
type DumpRef struct {
	Stamp  string
	Slug   string
	Suffix int
	Path   string
}

type inputDump struct {
	Model     string         `json:"model"`
	FileName  string         `json:"file_name"`
	Timestamp string         `json:"timestamp"`
	Prompt    string         `json:"prompt"`
	Schema    map[string]any `json:"schema"`
	Payload   any            `json:"payload"`
}

type outputDump struct {
	Model       string          `json:"model"`
	ActualModel string          `json:"actual_model"`
	Timestamp   string          `json:"timestamp"`
	Response    json.RawMessage `json:"response"`
	Headers     http.Header     `json:"headers"`
}

func NewDumper(dir string, logger *slog.Logger) (*Dumper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return &Dumper{dir: dir, now: time.Now, logger: logger}, nil
}

// WriteInput records what is about to be sent.
func (d *Dumper) WriteInput(model, fileName, prompt string, schema map[string]any, payload any) (DumpRef, error) {
	now := d.now()
	ref := DumpRef{Stamp: now.UTC().Format(dumpStampLayout), Slug: ModelSlug(model)}
	path, suffix, err := d.write(ref.Stamp, "input", ref.Slug, 0, inputDump{
		Model:     model,
		FileName:  fileName,
		Timestamp: now.Format(time.RFC3339Nano),
		Prompt:    prompt,
		Schema:    schema,
		Payload:   payload,
	})
	ref.Path = path
	ref.Suffix = suffix
	return ref, err
}

// WriteOutput records what came back, under the stamp of its input.
func (d *Dumper) WriteOutput(ref DumpRef, model, actualModel string, response json.RawMessage, headers http.Header) (string, error) {
	if len(response) == 0 || !json.Valid(response) {
		b, _ := json.Marshal(string(response))
		response = b
	}
	path, _, err := d.write(ref.Stamp, "output", ref.Slug, ref.Suffix, outputDump{
		Model:       model,
		ActualModel: actualModel,
		Timestamp:   d.now().Format(time.RFC3339Nano),
		Response:    response,
		Headers:     headers,
	})
	return path, err
}

// write creates the first free name starting at suffix from and reports the
// suffix it used.
func (d *Dumper) write(stamp, kind, slug string, from int, v any) (string, int, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", 0, fmt.Errorf("encode %s dump: %w", kind, err)
	}
	for i := from; i < maxDumpSuffix; i++ {
		name := fmt.Sprintf("%s-%s-%s.json", stamp, kind, slug)
		if i > 0 {
			name = fmt.Sprintf("%s-%s-%s-%d.json", stamp, kind, slug, i)
		}
		path := filepath.Join(d.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("create %s dump: %w", kind, err)
		}
		_, werr := f.Write(b)
		cerr := f.Close()
		if werr != nil {
			return "", 0, fmt.Errorf("write %s dump: %w", kind, werr)
		}
		if cerr != nil {
			return "", 0, fmt.Errorf("close %s dump: %w", kind, cerr)
		}
		d.logger.Debug("extract.dump.written", "path", path)
		return path, i, nil
	}
	return "", 0, fmt.Errorf("no free %s dump name for %s-%s", kind, stamp, slug)
}

// ModelSlug makes a model id safe for file names.
func ModelSlug(model string) string {
	s := strings.Trim(slugUnsafe.ReplaceAllString(strings.ReplaceAll(model, "/", "-"), "-"), "-")
	if s == "" {
		return "model"
	}
	return s
}

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// LocalSource serves PDFs from a directory tree. Document ids are the
// xxhash of the slash-separated path relative to the listed folder.
type LocalSource struct {
	mu     sync.RWMutex
	paths  map[string]string // id -> absolute path
	logger *slog.Logger
}

func NewLocalSource(logger *slog.Logger) *LocalSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSource{paths: map[string]string{}, logger: logger}
}

// DocumentID derives the stable id of rel, a path relative to the root folder.
func DocumentID(rel string) string {
	return strconv.FormatUint(xxhash.Sum64String(filepath.ToSlash(rel)), 16)
}

// ListDocuments walks folder, skipping hidden entries, and returns PDFs
// sorted by relative path.
func (s *LocalSource) ListDocuments(ctx context.Context, folder string) ([]DocumentRef, error) {
	root, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolve folder: %w", err)
	}
	var refs []DocumentRef
	found := map[string]string{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(path) {
			return nil
		}
		ref, err := refFor(root, path)
		if err != nil {
			return err
		}
		found[ref.ID] = path
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	s.mu.Lock()
	for id, p := range found {
		s.paths[id] = p
	}
	s.mu.Unlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	s.logger.Info("ingest.local.list", "root", root, "documents", len(refs))
	return refs, nil
}

// Ref registers a single file under root and returns its reference.
func (s *LocalSource) Ref(root, path string) (DocumentRef, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return DocumentRef{}, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return DocumentRef{}, err
	}
	ref, err := refFor(absRoot, absPath)
	if err != nil {
		return DocumentRef{}, err
	}
	s.mu.Lock()
	s.paths[ref.ID] = absPath
	s.mu.Unlock()
	return ref, nil
}

func (s *LocalSource) Download(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	path, ok := s.paths[id]
	s.mu.RUnlock()
	if !ok {
		return nil, common.NewAppError("NOT_FOUND", "document "+id+" was not listed", common.ErrNotFound)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func refFor(root, path string) (DocumentRef, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return DocumentRef{}, fmt.Errorf("relative path: %w", err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return DocumentRef{ID: DocumentID(rel), Name: filepath.ToSlash(rel), URL: u.String()}, nil
}

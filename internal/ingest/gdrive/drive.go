// Package gdrive lists and downloads PDFs from a Google Drive folder tree
// through the Drive v3 client.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/ingest"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	listFields     = "nextPageToken, files(id, name, mimeType, webViewLink)"
	pageSize       = 100
)

type Source struct {
	svc    *drive.Service
	logger *slog.Logger
}

var _ ingest.Source = (*Source)(nil)

// New builds a Drive client from opts, typically gauth.ClientOption.
func New(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, common.ExternalError("google drive", err)
	}
	return &Source{svc: svc, logger: logger}, nil
}

// ListDocuments returns every non-trashed PDF under folder, descending into
// subfolders. A folder reached twice through shortcuts is visited once.
func (s *Source) ListDocuments(ctx context.Context, folder string) ([]ingest.DocumentRef, error) {
	var refs []ingest.DocumentRef
	seen := map[string]bool{}
	queue := []string{folder}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		children, err := s.listChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, f := range children {
			switch f.MimeType {
			case folderMimeType:
				queue = append(queue, f.Id)
			case constants.MimePDF:
				refs = append(refs, ingest.DocumentRef{ID: f.Id, Name: f.Name, URL: f.WebViewLink})
			}
		}
	}
	s.logger.Info("ingest.gdrive.list", "folder", folder, "folders", len(seen), "documents", len(refs))
	return refs, nil
}

func (s *Source) listChildren(ctx context.Context, folderID string) ([]*drive.File, error) {
	var out []*drive.File
	err := s.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Fields(listFields).
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *drive.FileList) error {
			out = append(out, page.Files...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, apiError(err))
	}
	return out, nil
}

// Download fetches the raw bytes of a file.
func (s *Source) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := s.svc.Files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", id, apiError(err))
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: read body: %w", id, err)
	}
	return b, nil
}

// apiError maps a missing file to common.ErrNotFound and every other failure
// to an external error.
func apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return common.NewAppError("NOT_FOUND", gerr.Message, common.ErrNotFound)
	}
	return common.ExternalError("google drive", err)
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

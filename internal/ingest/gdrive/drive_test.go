package gdrive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

func fakeDrive(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/files" && r.URL.Query().Get("q") == "'root' in parents and trashed=false":
			if r.URL.Query().Get("pageToken") == "" {
				_, _ = w.Write([]byte(`{"nextPageToken":"p2","files":[
					{"id":"f1","name":"a.pdf","mimeType":"application/pdf","webViewLink":"https://drive/f1"},
					{"id":"n1","name":"notes.txt","mimeType":"text/plain"}]}`))
				return
			}
			assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
			_, _ = w.Write([]byte(`{"files":[{"id":"sub","name":"2024","mimeType":"application/vnd.google-apps.folder"}]}`))
		case r.URL.Path == "/files" && r.URL.Query().Get("q") == "'sub' in parents and trashed=false":
			_, _ = w.Write([]byte(`{"files":[{"id":"f2","name":"b.pdf","mimeType":"application/pdf","webViewLink":"https://drive/f2"}]}`))
		case r.URL.Path == "/files/f1":
			assert.Equal(t, "media", r.URL.Query().Get("alt"))
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		case r.URL.Path == "/files/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"File not found"}}`))
		}
	}))
}

func newTestSource(t *testing.T, srv *httptest.Server) *Source {
	t.Helper()
	src, err := New(context.Background(), nil, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return src
}

func TestListDocumentsRecursesAndPages(t *testing.T) {
	srv := fakeDrive(t)
	defer srv.Close()

	src := newTestSource(t, srv)
	refs, err := src.ListDocuments(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "f1", refs[0].ID)
	assert.Equal(t, "https://drive/f1", refs[0].URL)
	assert.Equal(t, "f2", refs[1].ID)
	assert.Equal(t, "b.pdf", refs[1].Name)
}

func TestDownload(t *testing.T) {
	srv := fakeDrive(t)
	defer srv.Close()

	b, err := newTestSource(t, srv).Download(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))
}

func TestDownloadErrors(t *testing.T) {
	srv := fakeDrive(t)
	defer srv.Close()
	src := newTestSource(t, srv)

	_, err := src.Download(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.Contains(t, err.Error(), "File not found")

	_, err = src.Download(context.Background(), "broken")
	assert.True(t, errors.Is(err, common.ErrExternal))
}

func TestListDocumentsMissingFolder(t *testing.T) {
	srv := fakeDrive(t)
	defer srv.Close()

	_, err := newTestSource(t, srv).ListDocuments(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `it\'s`, escapeQuery("it's"))
}

package gauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

func writeCredentials(t *testing.T, tokenURL string) string {
	t.Helper()
	body := map[string]any{
		"installed": map[string]any{
			"client_id":     "cid",
			"client_secret": "secret",
			"auth_uri":      "https://accounts.example.com/o/oauth2/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"http://localhost:8080/oauth2callback"},
		},
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeCredentials(t, "https://oauth2.example.com/token"))
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, Scopes, cfg.Scopes)

	u := AuthURL(cfg, "st")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=st")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestTokenSourceRequiresRefreshToken(t *testing.T) {
	cfg, err := LoadConfig(writeCredentials(t, "https://oauth2.example.com/token"))
	require.NoError(t, err)
	_, err = TokenSource(context.Background(), cfg, "")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestClientOptionRefreshesAccessToken(t *testing.T) {
	var refreshCalls int
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		assert.Equal(t, "/files/f1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"f1","name":"a.pdf"}`))
	}))
	defer api.Close()

	ctx := context.Background()
	auth, err := ClientOption(ctx, writeCredentials(t, tokenSrv.URL), "rt")
	require.NoError(t, err)
	svc, err := drive.NewService(ctx, auth, option.WithEndpoint(api.URL+"/"))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		f, err := svc.Files.Get("f1").Context(ctx).Do()
		require.NoError(t, err)
		assert.Equal(t, "a.pdf", f.Name)
	}
	assert.Equal(t, 1, refreshCalls)
}

func TestClientOptionRequiresRefreshToken(t *testing.T) {
	_, err := ClientOption(context.Background(), writeCredentials(t, "https://oauth2.example.com/token"), "")
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestExchangeWithoutRefreshToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	cfg, err := LoadConfig(writeCredentials(t, tokenSrv.URL))
	require.NoError(t, err)
	_, err = Exchange(context.Background(), cfg, "code")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "refresh token"))
}

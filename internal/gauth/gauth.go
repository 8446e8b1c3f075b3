// Package gauth builds OAuth2 credentials for the Drive and Sheets APIs from an
// installed-app credentials file and a stored refresh token.
package gauth

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// Scopes requested for listing and downloading documents and writing rows.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/drive.metadata.readonly",
	"https://www.googleapis.com/auth/spreadsheets",
}

// LoadConfig reads an OAuth2 client config from a Google credentials file.
func LoadConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", credentialsPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "parse credentials file", err)
	}
	return cfg, nil
}

// TokenSource refreshes access tokens from the refresh token as needed.
func TokenSource(ctx context.Context, cfg *oauth2.Config, refreshToken string) (oauth2.TokenSource, error) {
	if refreshToken == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "GOOGLE_REFRESH_TOKEN is required; run the auth command first", common.ErrUnauthorized)
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}), nil
}

// ClientOption authorizes the Drive and Sheets services with the stored
// refresh token.
func ClientOption(ctx context.Context, credentialsPath, refreshToken string) (option.ClientOption, error) {
	cfg, err := LoadConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	ts, err := TokenSource(ctx, cfg, refreshToken)
	if err != nil {
		return nil, err
	}
	return option.WithTokenSource(ts), nil
}

// AuthURL is the consent URL for an offline grant. The redirect URL is taken
// from the credentials file.
func AuthURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token that carries a refresh token.
func Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, common.ExternalError("google oauth2", err)
	}
	if tok.RefreshToken == "" {
		return nil, common.NewAppError("AUTH_ERROR", "token response carried no refresh token", common.ErrUnauthorized)
	}
	return tok, nil
}

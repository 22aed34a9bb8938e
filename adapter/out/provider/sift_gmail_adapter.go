// Package provider implements outbound adapters for external mail providers.
package provider

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"sift_server/adapter/out/provider/gmail"
	"sift_server/core/port/out"
)

// GmailAdapter owns the OAuth configuration and token lifecycle for the
// Gmail provider.
type GmailAdapter struct {
	config *oauth2.Config
	tokens *TokenStore
}

// GmailConfig holds Gmail OAuth configuration.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenFile    string
}

// NewGmailAdapter creates a new Gmail adapter.
func NewGmailAdapter(cfg *GmailConfig) *GmailAdapter {
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			gmailapi.GmailReadonlyScope,
			gmailapi.GmailModifyScope,
		},
		Endpoint: google.Endpoint,
	}

	return &GmailAdapter{
		config: config,
		tokens: NewTokenStore(cfg.TokenFile),
	}
}

// GetAuthURL returns the OAuth authorization URL.
func (a *GmailAdapter) GetAuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeToken exchanges an authorization code for a token and persists it.
func (a *GmailAdapter) ExchangeToken(ctx context.Context, code string) error {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange token: %w", err)
	}
	if err := a.tokens.Save(token); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	return nil
}

// HasToken reports whether a stored credential exists.
func (a *GmailAdapter) HasToken() bool {
	_, err := a.tokens.Load()
	return err == nil
}

// Provider builds the mail provider port from the stored credential.
// Refreshed tokens are written back to the store transparently.
func (a *GmailAdapter) Provider(ctx context.Context) (out.MailProvider, error) {
	token, err := a.tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("no stored gmail credential: %w", err)
	}

	source := a.tokens.Persisting(a.config.TokenSource(ctx, token))
	return gmail.NewProvider(ctx, oauth2.NewClient(ctx, source))
}

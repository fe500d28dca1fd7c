package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/phishbowl/go-services/internal/gmail"
)

const (
	defaultProfileURL = "https://gmail.googleapis.com/gmail/v1/users/me/profile"
	defaultRevokeURL  = "https://oauth2.googleapis.com/revoke"
)

// Config describes one OAuth client registration. ProfileURL/RevokeURL and
// Endpoint default to Google's endpoints and are overridable for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint // zero value means google.Endpoint
	ProfileURL   string
	RevokeURL    string
}

// Provider implements gmail.Provider against Google's OAuth2 endpoints.
// It holds only immutable configuration: every call receives the credential
// material it operates on, so concurrent requests are independent.
type Provider struct {
	cfg        *oauth2.Config
	profileURL string
	revokeURL  string
	client     *http.Client
}

// New creates a provider for the given client registration.
func New(c Config) *Provider {
	ep := c.Endpoint
	if ep.TokenURL == "" {
		ep = google.Endpoint
	}
	profileURL := c.ProfileURL
	if profileURL == "" {
		profileURL = defaultProfileURL
	}
	revokeURL := c.RevokeURL
	if revokeURL == "" {
		revokeURL = defaultRevokeURL
	}
	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Scopes:       c.Scopes,
			Endpoint:     ep,
		},
		profileURL: profileURL,
		revokeURL:  revokeURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthCodeURL builds the authorization URL. Offline access plus
// prompt=consent force Google to return a refresh token even when the user
// already consented once; login_hint biases the account chooser toward the
// primary account.
func (p *Provider) AuthCodeURL(state, loginHint string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	}
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}
	return p.cfg.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for tokens.
func (p *Provider) Exchange(ctx context.Context, code string) (*gmail.Token, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, mapTokenErr("code exchange", err)
	}
	return fromOAuth2(tok), nil
}

// Refresh obtains a new access token for the refresh token. Google does not
// rotate refresh tokens on refresh, so the response usually echoes the input.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*gmail.Token, error) {
	src := p.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, mapTokenErr("token refresh", err)
	}
	return fromOAuth2(tok), nil
}

// Profile returns the email address of the mailbox the access token grants.
func (p *Provider) Profile(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gmail.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: profile endpoint returned %d", gmail.ErrInvalidGrant, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: profile endpoint returned %d: %s", gmail.ErrUpstreamUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var body struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decoding profile response: %v", gmail.ErrUpstreamUnavailable, err)
	}
	if body.EmailAddress == "" {
		return "", fmt.Errorf("%w: profile response missing emailAddress", gmail.ErrUpstreamUnavailable)
	}
	return body.EmailAddress, nil
}

// Revoke invalidates the token at Google. Callers treat failures as
// best-effort and only log them.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gmail.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func fromOAuth2(tok *oauth2.Token) *gmail.Token {
	out := &gmail.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		out.ExpiryDate = tok.Expiry.UnixMilli()
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = id
	}
	return out
}

// mapTokenErr translates oauth2 token-endpoint failures into the flow's
// error taxonomy: invalid_grant means the grant is dead (clear local state),
// everything else is a transient upstream failure.
func mapTokenErr(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
		return fmt.Errorf("%w: %s", gmail.ErrInvalidGrant, op)
	}
	return fmt.Errorf("%w: %s: %v", gmail.ErrUpstreamUnavailable, op, err)
}

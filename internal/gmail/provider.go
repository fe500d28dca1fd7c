package gmail

import "context"

// Provider is the minimal identity-provider surface the connection flow
// depends on. Implementations are stateless: the credential material is
// passed into every call, so concurrent requests never share mutable client
// state. Implementations map provider "invalid_grant" responses to
// ErrInvalidGrant and transport failures to ErrUpstreamUnavailable.
type Provider interface {
	// AuthCodeURL builds the authorization URL for the connect flow. It must
	// request offline access and force re-consent so a refresh token is
	// returned even on re-connect; loginHint biases the account chooser.
	AuthCodeURL(state, loginHint string) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*Token, error)

	// Refresh obtains a new access token for the given refresh token.
	Refresh(ctx context.Context, refreshToken string) (*Token, error)

	// Profile returns the email address owning the access token.
	Profile(ctx context.Context, accessToken string) (string, error)

	// Revoke invalidates the token at the provider. Best-effort.
	Revoke(ctx context.Context, accessToken string) error
}

package gmail

import "github.com/phishbowl/go-services/internal/models"

// State is the explicit lifecycle position of a secondary credential.
// PendingAuthorization is never persisted: between InitiateConnect and the
// provider callback the only state held anywhere is the correlation ("state")
// parameter riding along the authorization redirect.
type State int

const (
	StateUnconnected State = iota
	StatePendingAuthorization
	StateConnected
)

// CredentialState classifies a stored credential. A connected credential
// always carries its verified linked email; a flag without an email is
// treated as unconnected rather than trusted.
func CredentialState(c models.GmailCredential) State {
	if c.Connected && c.LinkedEmail != "" {
		return StateConnected
	}
	return StateUnconnected
}

// Token is a provider-neutral token response.
type Token struct {
	AccessToken  string
	RefreshToken string // may be empty: Google omits it on repeat consent
	ExpiryDate   int64  // epoch milliseconds
	IDToken      string
}

// MergeTokens folds a fresh token response into a stored credential.
// A refresh token, once obtained, is never silently dropped: when the
// response lacks one the previously stored token is carried over.
// Connected/LinkedEmail are untouched; only the state machine changes them.
func MergeTokens(prev models.GmailCredential, tok *Token) models.GmailCredential {
	out := models.GmailCredential{
		AccessToken: strPtr(tok.AccessToken),
		ExpiryDate:  int64Ptr(tok.ExpiryDate),
		Connected:   prev.Connected,
		LinkedEmail: prev.LinkedEmail,
	}
	if tok.RefreshToken != "" {
		out.RefreshToken = strPtr(tok.RefreshToken)
	} else {
		out.RefreshToken = prev.RefreshToken
	}
	return out
}

func strPtr(s string) *string  { return &s }
func int64Ptr(v int64) *int64  { return &v }

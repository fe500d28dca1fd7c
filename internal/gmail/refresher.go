package gmail

import (
	"context"
	"time"

	"github.com/phishbowl/go-services/internal/models"
)

// EnsureFresh returns a credential whose access token is valid at `now`,
// refreshing through the provider only when the cached token has expired.
// The returned bool reports whether a network refresh happened (callers
// persist the credential only in that case).
//
// Failure modes: ErrMissingRefreshToken when there is nothing to refresh
// with, ErrInvalidGrant when the provider rejects the refresh token, and
// wrapped transport errors otherwise. The input credential is returned
// unchanged on every failure.
func EnsureFresh(ctx context.Context, p Provider, cred models.GmailCredential, now time.Time) (models.GmailCredential, bool, error) {
	if cred.AccessToken != nil && *cred.AccessToken != "" &&
		cred.ExpiryDate != nil && *cred.ExpiryDate > now.UnixMilli() {
		return cred, false, nil
	}
	if cred.RefreshToken == nil || *cred.RefreshToken == "" {
		return cred, false, ErrMissingRefreshToken
	}
	tok, err := p.Refresh(ctx, *cred.RefreshToken)
	if err != nil {
		return cred, false, err
	}
	return MergeTokens(cred, tok), true, nil
}

package gmail

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGrant means the provider rejected the refresh token or
	// authorization code as invalid or revoked. Callers clear the stored
	// credential instead of retrying.
	ErrInvalidGrant = errors.New("gmail: grant invalid or revoked")

	// ErrMissingRefreshToken means the stored credential has an expired (or
	// absent) access token and no refresh token to renew it with.
	ErrMissingRefreshToken = errors.New("gmail: no refresh token stored")

	// ErrUpstreamUnavailable wraps transport-level failures reaching the
	// provider. The local credential is left untouched because the truth is
	// unknown rather than negative.
	ErrUpstreamUnavailable = errors.New("gmail: identity provider unavailable")

	// ErrUserNotFound is returned when the correlation state or session does
	// not resolve to a stored user.
	ErrUserNotFound = errors.New("gmail: user not found")
)

// MismatchError reports that the mailbox reached with the secondary credential
// does not belong to the logged-in account. Both emails are carried so the
// frontend can show the user which account was picked by accident.
type MismatchError struct {
	PrimaryEmail string
	FetchedEmail string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("gmail: connected mailbox %s does not match account %s", e.FetchedEmail, e.PrimaryEmail)
}

package gmail

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/phishbowl/go-services/internal/models"
	"github.com/phishbowl/go-services/pkg/logger"
	"github.com/phishbowl/go-services/pkg/metrics"
)

// CredentialStore is the persistence surface the connection flow needs.
// Implemented by users.Repository. SetGmailCredential replaces the whole
// gmail sub-document in one write, so concurrent refreshes cannot interleave
// partial credential fields (last writer wins).
type CredentialStore interface {
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	SetGmailCredential(ctx context.Context, userID string, cred models.GmailCredential) error
}

// ConnectionStatus is the wire shape shared by the status endpoint and the
// callback postMessage payload.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Service drives the linked-mailbox credential through its lifecycle:
// Unconnected -> PendingAuthorization -> Connected -> Unconnected (on
// disconnect, invalid grant or identity mismatch). Recoverable outcomes
// (mismatch, invalid grant, missing refresh token) come back as a
// ConnectionStatus carrying an error message; only upstream/storage
// failures are returned as errors.
type Service struct {
	provider Provider
	store    CredentialStore
	now      func() time.Time
}

func NewService(p Provider, store CredentialStore) *Service {
	return &Service{provider: p, store: store, now: time.Now}
}

func (s *Service) user(ctx context.Context, googleID string) (*models.User, error) {
	u, err := s.store.GetByGoogleID(ctx, googleID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// InitiateConnect returns the provider authorization URL for the connect
// flow. The user's google id rides along as the correlation state so the
// callback leg can identify the user without a server-side session.
func (s *Service) InitiateConnect(ctx context.Context, googleID string) (string, error) {
	u, err := s.user(ctx, googleID)
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(googleID, u.Email), nil
}

// Callback consumes the authorization code delivered by the provider
// redirect. state is the value minted by InitiateConnect.
func (s *Service) Callback(ctx context.Context, state, code string) (*ConnectionStatus, error) {
	return s.connectWithCode(ctx, state, code)
}

// Verify re-checks connection health on demand: with a fresh authorization
// code it re-runs the exchange path, otherwise it refreshes the stored
// credential and re-fetches the provider profile.
func (s *Service) Verify(ctx context.Context, googleID, code string) (*ConnectionStatus, error) {
	if code != "" {
		return s.connectWithCode(ctx, googleID, code)
	}
	u, err := s.user(ctx, googleID)
	if err != nil {
		return nil, err
	}
	return s.liveCheck(ctx, u)
}

// Status reports the connection state. With live=false it trusts the stored
// flag; with live=true it refreshes and re-verifies against the provider and
// self-heals local state when the provider-observed truth disagrees.
func (s *Service) Status(ctx context.Context, googleID string, live bool) (*ConnectionStatus, error) {
	u, err := s.user(ctx, googleID)
	if err != nil {
		return nil, err
	}
	if !live {
		st := &ConnectionStatus{Connected: CredentialState(u.Gmail) == StateConnected}
		if st.Connected {
			st.Email = u.Gmail.LinkedEmail
		}
		return st, nil
	}
	return s.liveCheck(ctx, u)
}

// Disconnect clears all secondary-credential fields unconditionally and then
// best-effort revokes the token at the provider. Local disconnection always
// succeeds once persisted; a failed revoke is only logged.
func (s *Service) Disconnect(ctx context.Context, googleID string) (*ConnectionStatus, error) {
	u, err := s.user(ctx, googleID)
	if err != nil {
		return nil, err
	}
	old := u.Gmail
	if err := s.store.SetGmailCredential(ctx, u.ID, models.GmailCredential{}); err != nil {
		return nil, err
	}
	if old.AccessToken != nil && *old.AccessToken != "" {
		if err := s.provider.Revoke(ctx, *old.AccessToken); err != nil {
			logger.Warnf("gmail: token revoke failed for %s: %v", u.Email, err)
		}
	}
	return &ConnectionStatus{Connected: false}, nil
}

// connectWithCode implements the callback/verify-with-code leg: exchange the
// code, fail closed when no refresh token would be left stored, fetch the
// provider identity and reconcile it against the primary email.
func (s *Service) connectWithCode(ctx context.Context, googleID, code string) (*ConnectionStatus, error) {
	u, err := s.user(ctx, googleID)
	if err != nil {
		return nil, err
	}
	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			metrics.GmailInvalidGrants.Inc()
			if perr := s.clear(ctx, u, "invalid grant on code exchange"); perr != nil {
				return nil, perr
			}
			return &ConnectionStatus{Connected: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	merged := MergeTokens(u.Gmail, tok)
	if merged.RefreshToken == nil || *merged.RefreshToken == "" {
		// Google omits the refresh token on repeat consent; without one now
		// or from a previous connect the credential would be unrenewable.
		return &ConnectionStatus{Connected: false, Error: ErrMissingRefreshToken.Error()}, nil
	}

	fetched, err := s.provider.Profile(ctx, tok.AccessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			metrics.GmailInvalidGrants.Inc()
			if perr := s.clear(ctx, u, "access token rejected on profile fetch"); perr != nil {
				return nil, perr
			}
			return &ConnectionStatus{Connected: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	if err := Reconcile(u.Email, fetched); err != nil {
		var mm *MismatchError
		if errors.As(err, &mm) {
			metrics.GmailMismatches.Inc()
			// Mismatched tokens must never become usable: nothing from this
			// exchange is written and any previously connected state is cleared.
			if perr := s.clear(ctx, u, "identity mismatch: "+mm.FetchedEmail); perr != nil {
				return nil, perr
			}
			return &ConnectionStatus{Connected: false, Error: mm.Error()}, nil
		}
		return nil, err
	}

	merged.Connected = true
	merged.LinkedEmail = strings.ToLower(fetched)
	if err := s.store.SetGmailCredential(ctx, u.ID, merged); err != nil {
		return nil, err
	}
	return &ConnectionStatus{Connected: true, Email: merged.LinkedEmail}, nil
}

// liveCheck refreshes the stored credential, fetches the provider profile and
// reconciles it. Status checks are not purely read-only: invalid grants and
// mismatches transition the stored state to Unconnected.
func (s *Service) liveCheck(ctx context.Context, u *models.User) (*ConnectionStatus, error) {
	if CredentialState(u.Gmail) != StateConnected {
		return &ConnectionStatus{Connected: false}, nil
	}

	fresh, refreshed, err := EnsureFresh(ctx, s.provider, u.Gmail, s.now())
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) || errors.Is(err, ErrMissingRefreshToken) {
			metrics.GmailInvalidGrants.Inc()
			if perr := s.clear(ctx, u, "unrenewable credential"); perr != nil {
				return nil, perr
			}
			return &ConnectionStatus{Connected: false, Error: err.Error()}, nil
		}
		return nil, err
	}
	if refreshed {
		metrics.GmailTokenRefreshes.Inc()
		if err := s.store.SetGmailCredential(ctx, u.ID, fresh); err != nil {
			return nil, err
		}
	}

	fetched, err := s.provider.Profile(ctx, *fresh.AccessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			metrics.GmailInvalidGrants.Inc()
			if perr := s.clear(ctx, u, "access token rejected on profile fetch"); perr != nil {
				return nil, perr
			}
			return &ConnectionStatus{Connected: false, Error: err.Error()}, nil
		}
		return nil, err
	}

	if err := Reconcile(u.Email, fetched); err != nil {
		var mm *MismatchError
		if errors.As(err, &mm) {
			metrics.GmailMismatches.Inc()
			if perr := s.clear(ctx, u, "identity mismatch: "+mm.FetchedEmail); perr != nil {
				return nil, perr
			}
			return &ConnectionStatus{Connected: false, Error: mm.Error()}, nil
		}
		return nil, err
	}
	return &ConnectionStatus{Connected: true, Email: fresh.LinkedEmail}, nil
}

func (s *Service) clear(ctx context.Context, u *models.User, reason string) error {
	if err := s.store.SetGmailCredential(ctx, u.ID, models.GmailCredential{}); err != nil {
		return err
	}
	logger.Infof("gmail: cleared credential for %s (%s)", u.Email, reason)
	return nil
}

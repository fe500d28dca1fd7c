package gmail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/phishbowl/go-services/internal/models"
)

// fakeProvider scripts provider responses per call site.
type fakeProvider struct {
	authURL string

	exchangeToken *Token
	exchangeErr   error
	exchangeCalls int

	refreshToken *Token
	refreshErr   error
	refreshCalls int

	profileEmail string
	profileErr   error
	profileCalls int

	revokeErr    error
	revokeCalls  int
	revokedToken string
}

func (f *fakeProvider) AuthCodeURL(state, loginHint string) string {
	return f.authURL + "?state=" + state + "&login_hint=" + loginHint
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*Token, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeToken, nil
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshToken, nil
}

func (f *fakeProvider) Profile(ctx context.Context, accessToken string) (string, error) {
	f.profileCalls++
	if f.profileErr != nil {
		return "", f.profileErr
	}
	return f.profileEmail, nil
}

func (f *fakeProvider) Revoke(ctx context.Context, accessToken string) error {
	f.revokeCalls++
	f.revokedToken = accessToken
	return f.revokeErr
}

// fakeStore holds a single user keyed by google id.
type fakeStore struct {
	user     *models.User
	setCalls int
	setErr   error
}

func (f *fakeStore) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if f.user == nil || f.user.GoogleID != googleID {
		return nil, nil
	}
	cp := *f.user
	return &cp, nil
}

func (f *fakeStore) SetGmailCredential(ctx context.Context, userID string, cred models.GmailCredential) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	if f.user != nil && f.user.ID == userID {
		f.user.Gmail = cred
	}
	return nil
}

func testUser() *models.User {
	return &models.User{ID: "usr_1", GoogleID: "g-123", Email: "user@example.com"}
}

func connectedUser(expiry int64) *models.User {
	u := testUser()
	u.Gmail = models.GmailCredential{
		AccessToken:  strPtr("at"),
		RefreshToken: strPtr("rt"),
		ExpiryDate:   int64Ptr(expiry),
		Connected:    true,
		LinkedEmail:  "user@example.com",
	}
	return u
}

func newTestService(p Provider, st CredentialStore, now time.Time) *Service {
	s := NewService(p, st)
	s.now = func() time.Time { return now }
	return s
}

func TestInitiateConnect(t *testing.T) {
	p := &fakeProvider{authURL: "https://auth.example"}
	st := &fakeStore{user: testUser()}
	s := newTestService(p, st, time.Now())

	url, err := s.InitiateConnect(context.Background(), "g-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(url, "state=g-123") || !strings.Contains(url, "login_hint=user@example.com") {
		t.Fatalf("authorization url missing state/login hint: %s", url)
	}

	if _, err := s.InitiateConnect(context.Background(), "unknown"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestCallback_ConnectsAndPersists(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{
		exchangeToken: &Token{AccessToken: "at", RefreshToken: "rt", ExpiryDate: now.Add(time.Hour).UnixMilli()},
		profileEmail:  "User@Example.com",
	}
	st := &fakeStore{user: testUser()}
	s := newTestService(p, st, now)

	got, err := s.Callback(context.Background(), "g-123", "code-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Connected || got.Email != "user@example.com" || got.Error != "" {
		t.Fatalf("unexpected status: %+v", got)
	}
	cred := st.user.Gmail
	if CredentialState(cred) != StateConnected {
		t.Fatalf("credential not connected: %+v", cred)
	}
	if cred.LinkedEmail != "user@example.com" {
		t.Fatalf("linked email not lowercased: %q", cred.LinkedEmail)
	}
	if *cred.RefreshToken != "rt" || *cred.AccessToken != "at" {
		t.Fatalf("tokens not persisted: %+v", cred)
	}
}

func TestCallback_RepeatConsentKeepsStoredRefreshToken(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(-time.Minute).UnixMilli())
	p := &fakeProvider{
		// no refresh token in the response
		exchangeToken: &Token{AccessToken: "at2", ExpiryDate: now.Add(time.Hour).UnixMilli()},
		profileEmail:  "user@example.com",
	}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Callback(context.Background(), "g-123", "code-2")
	if err != nil || !got.Connected {
		t.Fatalf("reconnect failed: %+v, %v", got, err)
	}
	if *st.user.Gmail.RefreshToken != "rt" {
		t.Fatalf("stored refresh token lost on repeat consent: %v", *st.user.Gmail.RefreshToken)
	}
	if *st.user.Gmail.AccessToken != "at2" {
		t.Fatalf("access token not updated: %v", *st.user.Gmail.AccessToken)
	}
}

func TestCallback_NoRefreshTokenFailsClosed(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{
		exchangeToken: &Token{AccessToken: "at", ExpiryDate: now.Add(time.Hour).UnixMilli()},
		profileEmail:  "user@example.com",
	}
	st := &fakeStore{user: testUser()} // no stored refresh token either
	s := newTestService(p, st, now)

	got, err := s.Callback(context.Background(), "g-123", "code-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Connected || got.Error == "" {
		t.Fatalf("connect without any refresh token must fail closed: %+v", got)
	}
	if st.setCalls != 0 {
		t.Fatal("nothing may be persisted when failing closed")
	}
	if p.profileCalls != 0 {
		t.Fatal("profile must not be fetched for an unrenewable credential")
	}
}

func TestCallback_MismatchClearsCredential(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(time.Hour).UnixMilli())
	p := &fakeProvider{
		exchangeToken: &Token{AccessToken: "at", RefreshToken: "rt2", ExpiryDate: now.Add(time.Hour).UnixMilli()},
		profileEmail:  "wrong@example.com",
	}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Callback(context.Background(), "g-123", "code-4")
	if err != nil {
		t.Fatalf("mismatch is a recoverable outcome, got error: %v", err)
	}
	if got.Connected {
		t.Fatal("mismatch must not connect")
	}
	if !strings.Contains(got.Error, "wrong@example.com") || !strings.Contains(got.Error, "user@example.com") {
		t.Fatalf("error should name both emails: %q", got.Error)
	}
	if CredentialState(st.user.Gmail) != StateUnconnected || st.user.Gmail.RefreshToken != nil {
		t.Fatalf("credential must be fully cleared on mismatch: %+v", st.user.Gmail)
	}
}

func TestCallback_InvalidGrantClearsCredential(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(time.Hour).UnixMilli())
	p := &fakeProvider{exchangeErr: ErrInvalidGrant}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Callback(context.Background(), "g-123", "bad-code")
	if err != nil {
		t.Fatalf("invalid grant is a recoverable outcome, got error: %v", err)
	}
	if got.Connected || got.Error == "" {
		t.Fatalf("unexpected status: %+v", got)
	}
	if CredentialState(st.user.Gmail) != StateUnconnected {
		t.Fatalf("credential not cleared: %+v", st.user.Gmail)
	}
}

func TestCallback_UpstreamErrorLeavesStateAlone(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(time.Hour).UnixMilli())
	p := &fakeProvider{exchangeErr: ErrUpstreamUnavailable}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	_, err := s.Callback(context.Background(), "g-123", "code")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("upstream failures must propagate, got %v", err)
	}
	if st.setCalls != 0 {
		t.Fatal("stored state must not change on upstream failure")
	}
	if CredentialState(st.user.Gmail) != StateConnected {
		t.Fatalf("credential lost on transient failure: %+v", st.user.Gmail)
	}
}

func TestStatus_StoredOnly(t *testing.T) {
	now := time.Now()
	// expired access token, but live=false trusts the stored flag
	u := connectedUser(now.Add(-time.Hour).UnixMilli())
	p := &fakeProvider{refreshErr: ErrInvalidGrant}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Status(context.Background(), "g-123", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Connected || got.Email != "user@example.com" {
		t.Fatalf("unexpected status: %+v", got)
	}
	if p.refreshCalls != 0 || p.profileCalls != 0 {
		t.Fatal("stored status check must not touch the provider")
	}
}

func TestStatus_LiveRefreshesAndPersists(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(-time.Minute).UnixMilli())
	p := &fakeProvider{
		refreshToken: &Token{AccessToken: "renewed", ExpiryDate: now.Add(time.Hour).UnixMilli()},
		profileEmail: "user@example.com",
	}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Status(context.Background(), "g-123", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Connected || got.Email != "user@example.com" {
		t.Fatalf("unexpected status: %+v", got)
	}
	if p.refreshCalls != 1 {
		t.Fatalf("expected one refresh, got %d", p.refreshCalls)
	}
	if *st.user.Gmail.AccessToken != "renewed" {
		t.Fatalf("refreshed token not persisted: %+v", st.user.Gmail)
	}
	if *st.user.Gmail.RefreshToken != "rt" {
		t.Fatal("refresh token must survive the refresh")
	}
}

func TestStatus_LiveInvalidGrantSelfHeals(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(-time.Minute).UnixMilli())
	p := &fakeProvider{refreshErr: ErrInvalidGrant}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Status(context.Background(), "g-123", true)
	if err != nil {
		t.Fatalf("invalid grant is recoverable, got error: %v", err)
	}
	if got.Connected || got.Error == "" {
		t.Fatalf("unexpected status: %+v", got)
	}
	if CredentialState(st.user.Gmail) != StateUnconnected {
		t.Fatalf("dead credential not cleared: %+v", st.user.Gmail)
	}

	// a second check reports unconnected without touching the provider again
	calls := p.refreshCalls
	got, err = s.Status(context.Background(), "g-123", true)
	if err != nil || got.Connected {
		t.Fatalf("unexpected second status: %+v, %v", got, err)
	}
	if p.refreshCalls != calls {
		t.Fatal("unconnected credential must not hit the provider")
	}
}

func TestStatus_LiveMismatchSelfHeals(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(time.Hour).UnixMilli())
	p := &fakeProvider{profileEmail: "hijacked@example.com"}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Status(context.Background(), "g-123", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Connected {
		t.Fatal("mismatched mailbox must not report connected")
	}
	if CredentialState(st.user.Gmail) != StateUnconnected {
		t.Fatalf("credential not cleared after mismatch: %+v", st.user.Gmail)
	}
}

func TestStatus_LiveUpstreamErrorKeepsCredential(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(-time.Minute).UnixMilli())
	p := &fakeProvider{refreshErr: ErrUpstreamUnavailable}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	_, err := s.Status(context.Background(), "g-123", true)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("want upstream error, got %v", err)
	}
	if CredentialState(st.user.Gmail) != StateConnected {
		t.Fatal("credential must survive a transient provider outage")
	}
}

func TestVerify_WithCodeRunsExchange(t *testing.T) {
	now := time.Now()
	p := &fakeProvider{
		exchangeToken: &Token{AccessToken: "at", RefreshToken: "rt", ExpiryDate: now.Add(time.Hour).UnixMilli()},
		profileEmail:  "user@example.com",
	}
	st := &fakeStore{user: testUser()}
	s := newTestService(p, st, now)

	got, err := s.Verify(context.Background(), "g-123", "fresh-code")
	if err != nil || !got.Connected {
		t.Fatalf("verify with code should connect: %+v, %v", got, err)
	}
	if p.exchangeCalls != 1 {
		t.Fatalf("expected one exchange, got %d", p.exchangeCalls)
	}
}

func TestVerify_WithoutCodeChecksStoredCredential(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(time.Hour).UnixMilli())
	p := &fakeProvider{profileEmail: "user@example.com"}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Verify(context.Background(), "g-123", "")
	if err != nil || !got.Connected {
		t.Fatalf("verify should confirm the live credential: %+v, %v", got, err)
	}
	if p.exchangeCalls != 0 {
		t.Fatal("no exchange without a code")
	}
	if p.profileCalls != 1 {
		t.Fatalf("expected one profile fetch, got %d", p.profileCalls)
	}
}

func TestDisconnect(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(time.Hour).UnixMilli())
	p := &fakeProvider{}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Disconnect(context.Background(), "g-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Connected {
		t.Fatal("disconnect must report unconnected")
	}
	if CredentialState(st.user.Gmail) != StateUnconnected || st.user.Gmail.AccessToken != nil {
		t.Fatalf("credential not cleared: %+v", st.user.Gmail)
	}
	if p.revokeCalls != 1 || p.revokedToken != "at" {
		t.Fatalf("token not revoked: calls=%d token=%q", p.revokeCalls, p.revokedToken)
	}
}

func TestDisconnect_RevokeFailureStillSucceeds(t *testing.T) {
	now := time.Now()
	u := connectedUser(now.Add(time.Hour).UnixMilli())
	p := &fakeProvider{revokeErr: ErrUpstreamUnavailable}
	st := &fakeStore{user: u}
	s := newTestService(p, st, now)

	got, err := s.Disconnect(context.Background(), "g-123")
	if err != nil || got.Connected {
		t.Fatalf("local disconnect must succeed despite revoke failure: %+v, %v", got, err)
	}
	if CredentialState(st.user.Gmail) != StateUnconnected {
		t.Fatalf("credential not cleared: %+v", st.user.Gmail)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	p := &fakeProvider{}
	st := &fakeStore{user: testUser()}
	s := newTestService(p, st, time.Now())

	got, err := s.Disconnect(context.Background(), "g-123")
	if err != nil || got.Connected {
		t.Fatalf("disconnecting an unconnected user must succeed: %+v, %v", got, err)
	}
	if p.revokeCalls != 0 {
		t.Fatal("nothing to revoke for an unconnected user")
	}
}

package googleauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	"github.com/phishbowl/go-services/internal/gmail"
)

func testProvider(t *testing.T, tokenHandler, profileHandler, revokeHandler http.HandlerFunc) (*Provider, func()) {
	t.Helper()
	mux := http.NewServeMux()
	if tokenHandler != nil {
		mux.HandleFunc("/token", tokenHandler)
	}
	if profileHandler != nil {
		mux.HandleFunc("/profile", profileHandler)
	}
	if revokeHandler != nil {
		mux.HandleFunc("/revoke", revokeHandler)
	}
	srv := httptest.NewServer(mux)

	p := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example/callback",
		Scopes:       []string{"openid", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		ProfileURL: srv.URL + "/profile",
		RevokeURL:  srv.URL + "/revoke",
	})
	return p, srv.Close
}

func TestAuthCodeURL(t *testing.T) {
	p, closeFn := testProvider(t, nil, nil, nil)
	defer closeFn()

	raw := p.AuthCodeURL("g-123", "user@example.com")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	q := u.Query()
	if q.Get("access_type") != "offline" {
		t.Errorf("access_type = %q, want offline", q.Get("access_type"))
	}
	if q.Get("prompt") != "consent" {
		t.Errorf("prompt = %q, want consent", q.Get("prompt"))
	}
	if q.Get("login_hint") != "user@example.com" {
		t.Errorf("login_hint = %q", q.Get("login_hint"))
	}
	if q.Get("state") != "g-123" {
		t.Errorf("state = %q", q.Get("state"))
	}
}

func TestExchange(t *testing.T) {
	p, closeFn := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"token_type":"Bearer","id_token":"idt"}`))
	}, nil, nil)
	defer closeFn()

	tok, err := p.Exchange(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" || tok.IDToken != "idt" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if tok.ExpiryDate == 0 {
		t.Fatal("expiry not mapped to epoch millis")
	}
}

func TestExchange_InvalidGrant(t *testing.T) {
	p, closeFn := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
	}, nil, nil)
	defer closeFn()

	_, err := p.Exchange(context.Background(), "expired-code")
	if !errors.Is(err, gmail.ErrInvalidGrant) {
		t.Fatalf("want ErrInvalidGrant, got %v", err)
	}
}

func TestExchange_ServerErrorIsUpstream(t *testing.T) {
	p, closeFn := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil, nil)
	defer closeFn()

	_, err := p.Exchange(context.Background(), "code")
	if !errors.Is(err, gmail.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	p, closeFn := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "rt" {
				t.Errorf("unexpected refresh request: %v", r.Form)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"renewed","expires_in":3600,"token_type":"Bearer"}`))
	}, nil, nil)
	defer closeFn()

	tok, err := p.Refresh(context.Background(), "rt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.AccessToken != "renewed" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRefresh_RevokedToken(t *testing.T) {
	p, closeFn := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}, nil, nil)
	defer closeFn()

	_, err := p.Refresh(context.Background(), "revoked")
	if !errors.Is(err, gmail.ErrInvalidGrant) {
		t.Fatalf("want ErrInvalidGrant, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	p, closeFn := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"emailAddress":"User@Example.com","messagesTotal":42}`))
	}, nil)
	defer closeFn()

	email, err := p.Profile(context.Background(), "at")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// normalization happens in the reconciler, not here
	if email != "User@Example.com" {
		t.Fatalf("email = %q", email)
	}
}

func TestProfile_UnauthorizedIsInvalidGrant(t *testing.T) {
	p, closeFn := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)
	defer closeFn()

	_, err := p.Profile(context.Background(), "stale")
	if !errors.Is(err, gmail.ErrInvalidGrant) {
		t.Fatalf("want ErrInvalidGrant, got %v", err)
	}
}

func TestProfile_ServerErrorIsUpstream(t *testing.T) {
	p, closeFn := testProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, nil)
	defer closeFn()

	_, err := p.Profile(context.Background(), "at")
	if !errors.Is(err, gmail.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	var gotToken string
	p, closeFn := testProvider(t, nil, nil, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			gotToken = r.Form.Get("token")
		}
		w.WriteHeader(http.StatusOK)
	})
	defer closeFn()

	if err := p.Revoke(context.Background(), "at"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotToken != "at" {
		t.Fatalf("revoked token = %q", gotToken)
	}
}

func TestRevoke_Failure(t *testing.T) {
	p, closeFn := testProvider(t, nil, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	defer closeFn()

	if err := p.Revoke(context.Background(), "gone"); err == nil {
		t.Fatal("expected error from revoke")
	}
}

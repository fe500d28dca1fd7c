package account

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phishbowl/go-services/internal/scores"
	"github.com/phishbowl/go-services/internal/users"
	"github.com/phishbowl/go-services/pkg/logger"
)

// ErrInvalidEmail is returned for an empty or malformed erasure target.
var ErrInvalidEmail = errors.New("account: invalid email")

// Result reports what an erasure actually removed. Field names are part of
// the wire contract with the frontend.
type Result struct {
	ScoresDeleted int64 `json:"scoresDeleted"`
	UserDeleted   bool  `json:"userDeleted"`
}

// Eraser removes a user and everything joined to it by email. Scores go
// first so an interrupted erasure cannot leave orphaned score rows behind a
// deleted user. Erasure is idempotent: erasing an unknown email succeeds
// with zero counts.
type Eraser struct {
	users     users.Repository
	scores    scores.Repository
	notifyURL string
	client    *http.Client
}

// NewEraser creates an eraser. notifyURL is the optional analytics
// collaborator to inform about erasures; empty disables notification.
func NewEraser(u users.Repository, s scores.Repository, notifyURL string) *Eraser {
	return &Eraser{
		users:     u,
		scores:    s,
		notifyURL: notifyURL,
		client:    &http.Client{Timeout: 3 * time.Second},
	}
}

func (e *Eraser) Erase(ctx context.Context, email string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	n, err := e.scores.DeleteByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	deleted, err := e.users.DeleteByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	// Best-effort side channel: failure never affects the erasure result.
	e.notify(ctx, email)

	return &Result{ScoresDeleted: n, UserDeleted: deleted}, nil
}

func (e *Eraser) notify(ctx context.Context, email string) {
	if e.notifyURL == "" {
		return
	}
	u := e.notifyURL + "?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		logger.Warnf("account: building analytics erasure request: %v", err)
		return
	}
	resp, err := e.client.Do(req)
	if err != nil {
		logger.Warnf("account: analytics erasure notify failed for %s: %v", email, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logger.Warnf("account: analytics erasure notify for %s returned %d", email, resp.StatusCode)
	}
}

package scores

import (
	"context"
	"errors"
	"strings"

	"github.com/phishbowl/go-services/internal/models"
)

var (
	// ErrInvalidEmail is returned for an empty or malformed owner email.
	ErrInvalidEmail = errors.New("scores: invalid email")
	// ErrInvalidValue is returned when a score is outside [0,100].
	ErrInvalidValue = errors.New("scores: value must be between 0 and 100")
)

const defaultTopLimit = 10

// Service wraps the repository with validation. Owner emails are always
// lowercased before they touch storage so the string-join with users holds.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

func (s *Service) Create(ctx context.Context, email string, value int) (*models.Score, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if value < 0 || value > 100 {
		return nil, ErrInvalidValue
	}
	sc := &models.Score{Email: email, Value: value}
	if _, err := s.repo.Create(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]*models.Score, error) {
	return s.repo.ListByEmail(ctx, strings.ToLower(email))
}

func (s *Service) Top(ctx context.Context, limit int) ([]*models.Score, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	return s.repo.Top(ctx, limit)
}

// DeleteByEmail removes all scores for the email and returns the count.
// Used by account erasure; idempotent.
func (s *Service) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	return s.repo.DeleteByEmail(ctx, strings.ToLower(email))
}

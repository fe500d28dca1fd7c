package users

import (
	"context"
	"strings"

	"github.com/phishbowl/go-services/internal/gmail"
	"github.com/phishbowl/go-services/internal/models"
)

// Service encapsulates user-related business logic.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// UpsertFromLogin creates or updates a user from verified ID-token claims and
// the primary token response. Emails are stored lowercased; the repository
// preserves a previously stored refresh token when tok lacks one.
func (s *Service) UpsertFromLogin(ctx context.Context, claims map[string]interface{}, tok *gmail.Token) (*models.User, error) {
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	if sub == "" {
		return nil, nil
	}
	u := &models.User{
		GoogleID: sub,
		Email:    strings.ToLower(email),
		Name:     name,
		Picture:  picture,
	}
	if tok != nil {
		if tok.AccessToken != "" {
			at := tok.AccessToken
			u.AccessToken = &at
		}
		if tok.RefreshToken != "" {
			rt := tok.RefreshToken
			u.RefreshToken = &rt
		}
		if tok.ExpiryDate != 0 {
			exp := tok.ExpiryDate
			u.ExpiryDate = &exp
		}
	}
	return s.repo.UpsertByGoogleID(ctx, u)
}

func (s *Service) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.repo.GetByGoogleID(ctx, googleID)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(email))
}

package users

import (
	"context"
	"sync"
	"time"

	"github.com/phishbowl/go-services/internal/models"
)

// MemoryRepository is an in-memory Repository used by unit tests and by the
// handlers' test fixtures. Behavior mirrors MongoRepository, including the
// keep-stored-refresh-token upsert semantics.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*models.User)}
}

func (m *MemoryRepository) UpsertByGoogleID(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, existing := range m.byID {
		if existing.GoogleID == u.GoogleID {
			existing.Email = u.Email
			existing.Name = u.Name
			existing.Picture = u.Picture
			if u.AccessToken != nil {
				existing.AccessToken = u.AccessToken
			}
			if u.RefreshToken != nil {
				existing.RefreshToken = u.RefreshToken
			}
			if u.ExpiryDate != nil {
				existing.ExpiryDate = u.ExpiryDate
			}
			existing.UpdatedAt = now
			cp := *existing
			return &cp, nil
		}
	}
	created := *u
	created.ID = newUserID()
	created.Gmail = models.GmailCredential{}
	created.CreatedAt = now
	created.UpdatedAt = now
	m.byID[created.ID] = &created
	cp := created
	return &cp, nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) SetGmailCredential(ctx context.Context, id string, cred models.GmailCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.Gmail = cred
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MemoryRepository) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.byID {
		if u.Email == email {
			delete(m.byID, id)
			return true, nil
		}
	}
	return false, nil
}

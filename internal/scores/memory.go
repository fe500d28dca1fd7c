package scores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/phishbowl/go-services/internal/models"
)

// MemoryRepository is an in-memory Repository used for unit tests and for
// running the standalone scores service without MongoDB.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.Score
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.Score)}
}

func (m *MemoryRepository) Create(ctx context.Context, s *models.Score) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = newScoreID()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	cp := *s
	m.store[s.ID] = &cp
	return s.ID, nil
}

func (m *MemoryRepository) ListByEmail(ctx context.Context, email string) ([]*models.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Score{}
	for _, s := range m.store {
		if s.Email == email {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) Top(ctx context.Context, limit int) ([]*models.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Score{}
	for _, s := range m.store {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.store {
		if s.Email == email {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

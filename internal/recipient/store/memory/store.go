package memory

import (
	"context"
	"sync"

	"lifeconnect/internal/recipient/models"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// InMemory stores recipients and remembers registration order, which List
// must reproduce exactly.
type InMemory struct {
	mu         sync.RWMutex
	recipients map[domain.Identity]*models.Recipient
	order      []domain.Identity
}

func New() *InMemory {
	return &InMemory{recipients: make(map[domain.Identity]*models.Recipient)}
}

func (s *InMemory) Create(ctx context.Context, r *models.Recipient, record func(context.Context, *models.Recipient) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipients[r.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	if record != nil {
		if err := record(ctx, r.Clone()); err != nil {
			return err
		}
	}
	s.recipients[r.ID] = r.Clone()
	s.order = append(s.order, r.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.Identity) (*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemory) ListIDs(_ context.Context) ([]domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Identity, len(s.order))
	copy(out, s.order)
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Execute runs validate, mutate and record under the write lock.
func (s *InMemory) Execute(ctx context.Context, id domain.Identity, validate func(*models.Recipient) error, mutate func(*models.Recipient), record func(context.Context, *models.Recipient) error) (*models.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipients[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := r.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.Version++
	if record != nil {
		if err := record(ctx, working.Clone()); err != nil {
			return nil, err
		}
	}
	s.recipients[id] = working
	return working.Clone(), nil
}

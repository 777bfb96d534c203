package memory

import (
	"context"
	"sync"

	"lifeconnect/internal/donor/models"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// InMemory keeps donors in a map guarded by one RWMutex. Registry writes are
// rare and short, so a single lock is enough.
type InMemory struct {
	mu     sync.RWMutex
	donors map[domain.Identity]*models.Donor
	order  []domain.Identity
}

func New() *InMemory {
	return &InMemory{donors: make(map[domain.Identity]*models.Donor)}
}

// Create stores d unless the identity is already registered. record runs under
// the write lock; if it fails nothing is stored.
func (s *InMemory) Create(ctx context.Context, d *models.Donor, record func(context.Context, *models.Donor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[d.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	if record != nil {
		if err := record(ctx, d.Clone()); err != nil {
			return err
		}
	}
	s.donors[d.ID] = d.Clone()
	s.order = append(s.order, d.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.Identity) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// ListAll returns every donor in registration order.
func (s *InMemory) ListAll(_ context.Context) ([]*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Donor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.donors[id].Clone())
	}
	return out, nil
}

// Count returns the number of registered donors.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Execute validates, mutates and records a donor under the write lock. The
// stored record is only replaced when validate and record succeed.
func (s *InMemory) Execute(ctx context.Context, id domain.Identity, validate func(*models.Donor) error, mutate func(*models.Donor), record func(context.Context, *models.Donor) error) (*models.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := d.Clone()
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
	s.donors[id] = working
	return working.Clone(), nil
}

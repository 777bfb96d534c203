package memory

import (
	"context"
	"sync"
	"time"

	"lifeconnect/internal/organ/models"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// slot holds one organ behind its own lock so transitions on different organs
// never contend.
type slot struct {
	mu    sync.Mutex
	organ *models.Organ
}

// InMemory is an arena of organs: the organ ID is the slot index, assigned
// densely from 0. The arena lock only guards growth.
type InMemory struct {
	mu    sync.RWMutex
	slots []*slot
}

func New() *InMemory {
	return &InMemory{}
}

// Create assigns the next ID to o, runs record and stores a copy. If record
// fails nothing is stored and the ID is reused by the next Create.
func (s *InMemory) Create(ctx context.Context, o *models.Organ, record func(context.Context, *models.Organ) error) (domain.OrganID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := domain.OrganID(len(s.slots))
	o.ID = id
	if record != nil {
		if err := record(ctx, o.Clone()); err != nil {
			return 0, err
		}
	}
	s.slots = append(s.slots, &slot{organ: o.Clone()})
	return id, nil
}

func (s *InMemory) slot(id domain.OrganID) (*slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || int64(id) >= int64(len(s.slots)) {
		return nil, sentinel.ErrNotFound
	}
	return s.slots[id], nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.OrganID) (*models.Organ, error) {
	sl, err := s.slot(id)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.organ.Clone(), nil
}

// Execute serialises validate, mutate and record per organ. record sees the
// mutated organ while the slot is still locked, so records for one organ happen
// in transition order. The stored organ is replaced only when validate and
// record both succeed.
func (s *InMemory) Execute(ctx context.Context, id domain.OrganID, validate func(*models.Organ) error, mutate func(*models.Organ), record func(context.Context, *models.Organ) error) (*models.Organ, error) {
	sl, err := s.slot(id)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	working := sl.organ.Clone()
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
	sl.organ = working
	return working.Clone(), nil
}

// List returns organs in ID order, optionally only those in status.
func (s *InMemory) List(_ context.Context, status *models.Status) ([]*models.Organ, error) {
	var out []*models.Organ
	s.each(func(o *models.Organ) {
		if status == nil || o.Status == *status {
			out = append(out, o.Clone())
		}
	})
	return out, nil
}

// ListDueForExpiry returns non-terminal organs whose window closed at or before now.
func (s *InMemory) ListDueForExpiry(_ context.Context, now time.Time) ([]domain.OrganID, error) {
	var out []domain.OrganID
	s.each(func(o *models.Organ) {
		if !o.Status.IsTerminal() && o.IsExpiredAt(now) {
			out = append(out, o.ID)
		}
	})
	return out, nil
}

// CountByStatus tallies organs per lifecycle status. Statuses with no organs are absent.
func (s *InMemory) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	out := make(map[models.Status]int)
	s.each(func(o *models.Organ) {
		out[o.Status]++
	})
	return out, nil
}

// HasTransplant reports whether any organ was transplanted into recipient.
func (s *InMemory) HasTransplant(_ context.Context, recipient domain.Identity) (bool, error) {
	found := false
	s.each(func(o *models.Organ) {
		if o.Status == models.StatusTransplanted && o.RecipientID != nil && *o.RecipientID == recipient {
			found = true
		}
	})
	return found, nil
}

func (s *InMemory) each(fn func(*models.Organ)) {
	s.mu.RLock()
	slots := s.slots
	s.mu.RUnlock()
	for _, sl := range slots {
		sl.mu.Lock()
		fn(sl.organ)
		sl.mu.Unlock()
	}
}

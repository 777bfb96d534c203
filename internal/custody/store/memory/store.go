package memory

import (
	"context"
	"sync"
	"time"

	"lifeconnect/internal/custody/models"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// chain is one organ's custody log. Its lock serialises sequence assignment
// for that organ only. revision counts appends and verifications.
type chain struct {
	mu       sync.Mutex
	events   []*models.Event
	revision int64
}

// InMemory keeps one append-only chain per organ; the event's sequence
// number is its index in the chain.
type InMemory struct {
	mu     sync.RWMutex
	chains map[domain.OrganID]*chain
}

func New() *InMemory {
	return &InMemory{chains: make(map[domain.OrganID]*chain)}
}

func (s *InMemory) chain(organID domain.OrganID, create bool) *chain {
	s.mu.RLock()
	c, ok := s.chains[organID]
	s.mu.RUnlock()
	if ok || !create {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.chains[organID]; !ok {
		c = &chain{}
		s.chains[organID] = c
	}
	return c
}

// Append assigns the next sequence number for the organ, runs record with the
// chain's next revision and stores a copy of e. If record fails the chain is
// left as it was.
func (s *InMemory) Append(ctx context.Context, e *models.Event, record func(context.Context, *models.Event, int64) error) (*models.Event, error) {
	c := s.chain(e.OrganID, true)
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := e.Clone()
	stored.Seq = int64(len(c.events))
	if record != nil {
		if err := record(ctx, stored.Clone(), c.revision+1); err != nil {
			return nil, err
		}
	}
	c.events = append(c.events, stored)
	c.revision++
	return stored.Clone(), nil
}

// List returns the organ's chain in sequence order. An organ with no events
// yields an empty chain.
func (s *InMemory) List(_ context.Context, organID domain.OrganID) ([]*models.Event, error) {
	c := s.chain(organID, false)
	if c == nil {
		return []*models.Event{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Event, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (s *InMemory) Latest(_ context.Context, organID domain.OrganID) (*models.Event, error) {
	c := s.chain(organID, false)
	if c == nil {
		return nil, sentinel.ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return c.events[len(c.events)-1].Clone(), nil
}

// CountUnverified returns the number of events awaiting verification.
func (s *InMemory) CountUnverified(_ context.Context) (int, error) {
	s.mu.RLock()
	chains := make([]*chain, 0, len(s.chains))
	for _, c := range s.chains {
		chains = append(chains, c)
	}
	s.mu.RUnlock()

	n := 0
	for _, c := range chains {
		c.mu.Lock()
		for _, e := range c.events {
			if !e.Verified {
				n++
			}
		}
		c.mu.Unlock()
	}
	return n, nil
}

// Verify marks (organID, seq) verified. changed is false when it already was,
// and record only runs when it changes.
func (s *InMemory) Verify(ctx context.Context, organID domain.OrganID, seq int64, by domain.Identity, now time.Time, record func(context.Context, *models.Event, int64) error) (*models.Event, bool, error) {
	c := s.chain(organID, false)
	if c == nil {
		return nil, false, sentinel.ErrNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < 0 || seq >= int64(len(c.events)) {
		return nil, false, sentinel.ErrNotFound
	}
	e := c.events[seq].Clone()
	if !e.ApplyVerify(by, now) {
		return e, false, nil
	}
	if record != nil {
		if err := record(ctx, e.Clone(), c.revision+1); err != nil {
			return nil, false, err
		}
	}
	c.events[seq] = e
	c.revision++
	return e.Clone(), true, nil
}

package events

import (
	"context"
	"sync"
)

// RecentCapacity bounds how many events the broker keeps for Recent.
const RecentCapacity = 100

// Broker is the in-process sink. Subscribers receive every event published
// after they subscribe; a subscriber whose buffer is full misses events rather
// than stalling the ledger. The last RecentCapacity events are kept in a ring.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64

	recent []Event
	head   int
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]chan Event)}
}

func (b *Broker) Name() string { return "broker" }

func (b *Broker) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.recent) < RecentCapacity {
		b.recent = append(b.recent, event)
	} else {
		b.recent[b.head] = event
		b.head = (b.head + 1) % RecentCapacity
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (b *Broker) Recent(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := min(limit, len(b.recent))
	out := make([]Event, 0, max(n, 0))
	for i := range n {
		idx := (b.head + len(b.recent) - 1 - i) % len(b.recent)
		out = append(out, b.recent[idx])
	}
	return out
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

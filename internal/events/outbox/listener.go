package outbox

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Channel is the NOTIFY channel raised by the event_outbox insert trigger.
const Channel = "ledger_outbox"

// Listener turns LISTEN ledger_outbox notifications into relay wakeups.
type Listener struct {
	l    *pq.Listener
	wake chan struct{}
	done chan struct{}
}

func NewListener(dsn string, logger *slog.Logger) (*Listener, error) {
	l := pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("outbox listener event", "event", int(ev), "error", err)
		}
	})
	if err := l.Listen(Channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("listen %s: %w", Channel, err)
	}

	lis := &Listener{l: l, wake: make(chan struct{}, 1), done: make(chan struct{})}
	go lis.forward()
	return lis, nil
}

// forward coalesces notifications; one pending wakeup is enough to drain the outbox.
// A nil notification means the connection was re-established, so wake as well.
func (lis *Listener) forward() {
	for {
		select {
		case <-lis.done:
			return
		case _, ok := <-lis.l.Notify:
			if !ok {
				return
			}
			select {
			case lis.wake <- struct{}{}:
			default:
			}
		}
	}
}

// C receives a value whenever new outbox rows may exist.
func (lis *Listener) C() <-chan struct{} { return lis.wake }

func (lis *Listener) Close() error {
	close(lis.done)
	return lis.l.Close()
}

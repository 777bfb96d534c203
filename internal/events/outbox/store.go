// Package outbox persists domain events in Postgres, in the transaction of the
// mutation that produced them, so the relay can deliver them at least once.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"lifeconnect/internal/events"
	"lifeconnect/internal/platform/postgres"
)

// Store implements events.Sink by inserting into event_outbox.
type Store struct {
	db *postgres.DB
}

func New(db *postgres.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Name() string { return "outbox" }

// Publish inserts the event using the transaction carried by ctx, so the row
// commits or rolls back with the mutation. Without one it runs on the pool and
// commits on its own.
func (s *Store) Publish(ctx context.Context, event events.Event) error {
	changes, err := json.Marshal(event.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	_, err = s.db.Q(ctx).Exec(ctx, `
		INSERT INTO event_outbox (id, name, entity_type, entity_id, version, actor, request_id, changes, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		event.ID, string(event.Name), event.EntityType, event.EntityID, event.Version,
		event.Actor, event.RequestID, changes, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// relayLockKey serialises relays across processes so batches leave in order.
const relayLockKey = 0x6c6564676572

// Claim locks up to limit undelivered events in insertion order, hands them to
// deliver and marks them published when deliver succeeds. Only one relay claims
// at a time; the others return zero until the lock frees. If deliver fails
// nothing is marked and the batch is retried later.
//
// Writes to one entity are serialised by its row lock, so an entity's events
// are inserted, and therefore claimed, in version order.
func (s *Store) Claim(ctx context.Context, limit int, deliver func(context.Context, []events.Event) error) (int, error) {
	var claimed int
	err := s.db.RunInTx(ctx, func(ctx context.Context) error {
		var leader bool
		if err := s.db.Q(ctx).QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, relayLockKey).Scan(&leader); err != nil {
			return fmt.Errorf("acquire relay lock: %w", err)
		}
		if !leader {
			return nil
		}
		rows, err := s.db.Q(ctx).Query(ctx, `
			SELECT id, name, entity_type, entity_id, version, actor, request_id, changes, occurred_at
			FROM event_outbox
			WHERE published_at IS NULL
			ORDER BY position
			LIMIT $1
			FOR UPDATE`, limit)
		if err != nil {
			return fmt.Errorf("select outbox batch: %w", err)
		}
		batch, err := pgx.CollectRows(rows, scanEvent)
		if err != nil {
			return fmt.Errorf("scan outbox batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := deliver(ctx, batch); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(batch))
		for i, e := range batch {
			ids[i] = e.ID
		}
		if _, err := s.db.Q(ctx).Exec(ctx,
			`UPDATE event_outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`, time.Now().UTC(), ids); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		claimed = len(batch)
		return nil
	})
	return claimed, err
}

// Pending counts undelivered events.
func (s *Store) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Q(ctx).QueryRow(ctx, `SELECT count(*) FROM event_outbox WHERE published_at IS NULL`).Scan(&n)
	return n, err
}

func scanEvent(row pgx.CollectableRow) (events.Event, error) {
	var (
		e       events.Event
		name    string
		changes []byte
	)
	if err := row.Scan(&e.ID, &name, &e.EntityType, &e.EntityID, &e.Version, &e.Actor, &e.RequestID, &changes, &e.OccurredAt); err != nil {
		return events.Event{}, err
	}
	e.Name = events.Name(name)
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &e.Changes); err != nil {
			return events.Event{}, fmt.Errorf("unmarshal changes: %w", err)
		}
	}
	return e, nil
}

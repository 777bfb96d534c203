package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lifeconnect/internal/platform/postgres"
	"lifeconnect/internal/recipient/models"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// Store persists recipients. registration_seq preserves insertion order.
type Store struct {
	db *postgres.DB
}

func New(db *postgres.DB) *Store {
	return &Store{db: db}
}

const recipientColumns = `id, name, blood_type, organ_needed, urgency, active, version, registered_at, updated_at`

// Create inserts r and runs record in the same transaction.
func (s *Store) Create(ctx context.Context, r *models.Recipient, record func(context.Context, *models.Recipient) error) error {
	return s.db.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.db.Q(ctx).Exec(ctx, `
			INSERT INTO recipients (`+recipientColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r.ID, r.Name, r.BloodType, r.OrganNeeded, r.Urgency, r.Active, r.Version, r.RegisteredAt, r.UpdatedAt,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyExists
			}
			return fmt.Errorf("insert recipient: %w", err)
		}
		if record != nil {
			return record(ctx, r.Clone())
		}
		return nil
	})
}

func (s *Store) FindByID(ctx context.Context, id domain.Identity) (*models.Recipient, error) {
	row := s.db.Q(ctx).QueryRow(ctx, `SELECT `+recipientColumns+` FROM recipients WHERE id = $1`, id)
	return scanRecipient(row)
}

func (s *Store) ListIDs(ctx context.Context) ([]domain.Identity, error) {
	rows, err := s.db.Q(ctx).Query(ctx, `SELECT id FROM recipients ORDER BY registration_seq`)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan recipient ids: %w", err)
	}
	out := make([]domain.Identity, len(ids))
	for i, id := range ids {
		out[i] = domain.Identity(id)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Q(ctx).QueryRow(ctx, `SELECT count(*) FROM recipients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recipients: %w", err)
	}
	return n, nil
}

// Execute holds the recipient row lock across validate, mutate and record.
func (s *Store) Execute(ctx context.Context, id domain.Identity, validate func(*models.Recipient) error, mutate func(*models.Recipient), record func(context.Context, *models.Recipient) error) (*models.Recipient, error) {
	var result *models.Recipient
	err := s.db.RunInTx(ctx, func(ctx context.Context) error {
		row := s.db.Q(ctx).QueryRow(ctx, `SELECT `+recipientColumns+` FROM recipients WHERE id = $1 FOR UPDATE`, id)
		r, err := scanRecipient(row)
		if err != nil {
			return err
		}
		if err := validate(r); err != nil {
			return err
		}
		mutate(r)
		r.Version++
		if _, err := s.db.Q(ctx).Exec(ctx,
			`UPDATE recipients SET urgency = $2, active = $3, version = $4, updated_at = $5 WHERE id = $1`,
			r.ID, r.Urgency, r.Active, r.Version, r.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update recipient: %w", err)
		}
		if record != nil {
			if err := record(ctx, r.Clone()); err != nil {
				return err
			}
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanRecipient(row pgx.Row) (*models.Recipient, error) {
	var r models.Recipient
	err := row.Scan(&r.ID, &r.Name, &r.BloodType, &r.OrganNeeded, &r.Urgency, &r.Active, &r.Version, &r.RegisteredAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan recipient: %w", err)
	}
	return &r, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"lifeconnect/internal/organ/models"
	"lifeconnect/internal/platform/postgres"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// Store persists organs. IDs come from organ_id_seq, which starts at 0.
type Store struct {
	db *postgres.DB
}

func New(db *postgres.DB) *Store {
	return &Store{db: db}
}

const organColumns = `id, donor_id, organ_type, status, harvested_at, expires_at, registered_by,
	recipient_id, match_score, matched_by, transport_doc_ref, version, updated_at`

// Create inserts o and runs record in the same transaction.
func (s *Store) Create(ctx context.Context, o *models.Organ, record func(context.Context, *models.Organ) error) (domain.OrganID, error) {
	err := s.db.RunInTx(ctx, func(ctx context.Context) error {
		var id int64
		err := s.db.Q(ctx).QueryRow(ctx, `
			INSERT INTO organs (donor_id, organ_type, status, harvested_at, expires_at, registered_by, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			o.DonorID, o.OrganType, o.Status, o.HarvestedAt, o.ExpiresAt, o.RegisteredBy, o.Version, o.UpdatedAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert organ: %w", err)
		}
		o.ID = domain.OrganID(id)
		if record != nil {
			return record(ctx, o.Clone())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (s *Store) FindByID(ctx context.Context, id domain.OrganID) (*models.Organ, error) {
	row := s.db.Q(ctx).QueryRow(ctx, `SELECT `+organColumns+` FROM organs WHERE id = $1`, int64(id))
	return scanOrgan(row)
}

// Execute holds the organ row lock (FOR UPDATE) across validate, mutate and
// record, so concurrent transitions on one organ are serialised by Postgres and
// whatever record writes commits or rolls back with the transition.
func (s *Store) Execute(ctx context.Context, id domain.OrganID, validate func(*models.Organ) error, mutate func(*models.Organ), record func(context.Context, *models.Organ) error) (*models.Organ, error) {
	var result *models.Organ
	err := s.db.RunInTx(ctx, func(ctx context.Context) error {
		row := s.db.Q(ctx).QueryRow(ctx, `SELECT `+organColumns+` FROM organs WHERE id = $1 FOR UPDATE`, int64(id))
		o, err := scanOrgan(row)
		if err != nil {
			return err
		}
		if err := validate(o); err != nil {
			return err
		}
		mutate(o)
		o.Version++
		_, err = s.db.Q(ctx).Exec(ctx, `
			UPDATE organs
			SET status = $2, recipient_id = $3, match_score = $4, matched_by = $5,
			    transport_doc_ref = $6, version = $7, updated_at = $8
			WHERE id = $1`,
			int64(o.ID), o.Status, o.RecipientID, o.MatchScore, nullIfEmpty(string(o.MatchedBy)),
			nullIfEmpty(o.TransportDocRef), o.Version, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update organ: %w", err)
		}
		if record != nil {
			if err := record(ctx, o.Clone()); err != nil {
				return err
			}
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) List(ctx context.Context, status *models.Status) ([]*models.Organ, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == nil {
		rows, err = s.db.Q(ctx).Query(ctx, `SELECT `+organColumns+` FROM organs ORDER BY id`)
	} else {
		rows, err = s.db.Q(ctx).Query(ctx, `SELECT `+organColumns+` FROM organs WHERE status = $1 ORDER BY id`, *status)
	}
	if err != nil {
		return nil, fmt.Errorf("list organs: %w", err)
	}
	defer rows.Close()

	var out []*models.Organ
	for rows.Next() {
		o, err := scanOrgan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ListDueForExpiry(ctx context.Context, now time.Time) ([]domain.OrganID, error) {
	rows, err := s.db.Q(ctx).Query(ctx, `
		SELECT id FROM organs
		WHERE status NOT IN ('Transplanted', 'Expired', 'Rejected') AND expires_at <= $1
		ORDER BY id`, now)
	if err != nil {
		return nil, fmt.Errorf("list organs due for expiry: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan organ ids: %w", err)
	}
	out := make([]domain.OrganID, len(ids))
	for i, id := range ids {
		out[i] = domain.OrganID(id)
	}
	return out, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.Q(ctx).Query(ctx, `SELECT status, count(*) FROM organs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count organs by status: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan organ count: %w", err)
		}
		out[models.Status(status)] = n
	}
	return out, rows.Err()
}

func (s *Store) HasTransplant(ctx context.Context, recipient domain.Identity) (bool, error) {
	var exists bool
	err := s.db.Q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organs WHERE recipient_id = $1 AND status = 'Transplanted')`,
		recipient,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transplant: %w", err)
	}
	return exists, nil
}

func scanOrgan(row pgx.Row) (*models.Organ, error) {
	var (
		o                      models.Organ
		id                     int64
		recipientID            *string
		matchScore             *int32
		matchedBy, transportID *string
	)
	err := row.Scan(&id, &o.DonorID, &o.OrganType, &o.Status, &o.HarvestedAt, &o.ExpiresAt, &o.RegisteredBy,
		&recipientID, &matchScore, &matchedBy, &transportID, &o.Version, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan organ: %w", err)
	}
	o.ID = domain.OrganID(id)
	if recipientID != nil {
		r := domain.Identity(*recipientID)
		o.RecipientID = &r
	}
	if matchScore != nil {
		sc := int(*matchScore)
		o.MatchScore = &sc
	}
	if matchedBy != nil {
		o.MatchedBy = domain.Identity(*matchedBy)
	}
	if transportID != nil {
		o.TransportDocRef = *transportID
	}
	return &o, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

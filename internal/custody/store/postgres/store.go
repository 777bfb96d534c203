package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"lifeconnect/internal/custody/models"
	"lifeconnect/internal/platform/postgres"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// Store persists custody chains in custody_events, keyed by (organ_id, seq).
type Store struct {
	db *postgres.DB
}

func New(db *postgres.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `organ_id, seq, kind, actor, location, notes, document_ref, recorded_at,
	verified, verified_by, verified_at`

// bumpRevision advances the organ's custody revision. The UPDATE takes the
// organ row lock, which serialises every chain write for that organ.
func (s *Store) bumpRevision(ctx context.Context, organID domain.OrganID) (int64, error) {
	var revision int64
	err := s.db.Q(ctx).QueryRow(ctx,
		`UPDATE organs SET custody_revision = custody_revision + 1 WHERE id = $1 RETURNING custody_revision`,
		int64(organID),
	).Scan(&revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("lock organ: %w", err)
	}
	return revision, nil
}

// Append locks the parent organ row so sequence numbers for one organ are
// assigned one at a time; appends on other organs proceed in parallel. record
// runs in the same transaction.
func (s *Store) Append(ctx context.Context, e *models.Event, record func(context.Context, *models.Event, int64) error) (*models.Event, error) {
	var stored *models.Event
	err := s.db.RunInTx(ctx, func(ctx context.Context) error {
		revision, err := s.bumpRevision(ctx, e.OrganID)
		if err != nil {
			return err
		}

		row := s.db.Q(ctx).QueryRow(ctx, `
			INSERT INTO custody_events (organ_id, seq, kind, actor, location, notes, document_ref, recorded_at)
			SELECT $1, COALESCE(MAX(seq) + 1, 0), $2, $3, $4, $5, $6, $7
			FROM custody_events WHERE organ_id = $1
			RETURNING `+eventColumns,
			int64(e.OrganID), e.Kind, e.Actor, e.Location, e.Notes, e.DocumentRef, e.RecordedAt,
		)
		if stored, err = scanEvent(row); err != nil {
			return err
		}
		if record != nil {
			return record(ctx, stored.Clone(), revision)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Store) CountUnverified(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Q(ctx).QueryRow(ctx, `SELECT count(*) FROM custody_events WHERE NOT verified`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unverified custody events: %w", err)
	}
	return n, nil
}

func (s *Store) List(ctx context.Context, organID domain.OrganID) ([]*models.Event, error) {
	rows, err := s.db.Q(ctx).Query(ctx,
		`SELECT `+eventColumns+` FROM custody_events WHERE organ_id = $1 ORDER BY seq`, int64(organID))
	if err != nil {
		return nil, fmt.Errorf("list custody events: %w", err)
	}
	defer rows.Close()

	out := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Latest(ctx context.Context, organID domain.OrganID) (*models.Event, error) {
	row := s.db.Q(ctx).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM custody_events WHERE organ_id = $1 ORDER BY seq DESC LIMIT 1`, int64(organID))
	return scanEvent(row)
}

// Verify flips the flag at most once; a second call returns the stored event
// with changed=false and does not run record.
func (s *Store) Verify(ctx context.Context, organID domain.OrganID, seq int64, by domain.Identity, now time.Time, record func(context.Context, *models.Event, int64) error) (*models.Event, bool, error) {
	var (
		result  *models.Event
		changed bool
	)
	err := s.db.RunInTx(ctx, func(ctx context.Context) error {
		row := s.db.Q(ctx).QueryRow(ctx,
			`SELECT `+eventColumns+` FROM custody_events WHERE organ_id = $1 AND seq = $2 FOR UPDATE`,
			int64(organID), seq)
		e, err := scanEvent(row)
		if err != nil {
			return err
		}
		if !e.ApplyVerify(by, now) {
			result = e
			return nil
		}
		_, err = s.db.Q(ctx).Exec(ctx, `
			UPDATE custody_events SET verified = TRUE, verified_by = $3, verified_at = $4
			WHERE organ_id = $1 AND seq = $2`,
			int64(organID), seq, by, now)
		if err != nil {
			return fmt.Errorf("verify custody event: %w", err)
		}
		revision, err := s.bumpRevision(ctx, organID)
		if err != nil {
			return err
		}
		if record != nil {
			if err := record(ctx, e.Clone(), revision); err != nil {
				return err
			}
		}
		result, changed = e, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		e          models.Event
		organID    int64
		verifiedBy *string
	)
	err := row.Scan(&organID, &e.Seq, &e.Kind, &e.Actor, &e.Location, &e.Notes, &e.DocumentRef, &e.RecordedAt,
		&e.Verified, &verifiedBy, &e.VerifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan custody event: %w", err)
	}
	e.OrganID = domain.OrganID(organID)
	if verifiedBy != nil {
		e.VerifiedBy = domain.Identity(*verifiedBy)
	}
	return &e, nil
}

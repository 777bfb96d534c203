package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lifeconnect/internal/donor/models"
	"lifeconnect/internal/platform/postgres"
	"lifeconnect/pkg/domain"
	"lifeconnect/pkg/platform/sentinel"
)

// Store persists donors in the donors table.
type Store struct {
	db *postgres.DB
}

func New(db *postgres.DB) *Store {
	return &Store{db: db}
}

const donorColumns = `id, name, age, blood_type, organ_types, health_record_ref, consent, active, version, registered_at, updated_at`

// Create inserts d and runs record in the same transaction.
func (s *Store) Create(ctx context.Context, d *models.Donor, record func(context.Context, *models.Donor) error) error {
	return s.db.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.db.Q(ctx).Exec(ctx, `
			INSERT INTO donors (`+donorColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			d.ID, d.Name, d.Age, d.BloodType, organTypesToText(d.OrganTypes),
			d.HealthRecordRef, d.Consent, d.Active, d.Version, d.RegisteredAt, d.UpdatedAt,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyExists
			}
			return fmt.Errorf("insert donor: %w", err)
		}
		if record != nil {
			return record(ctx, d.Clone())
		}
		return nil
	})
}

// ListAll returns every donor in registration order.
func (s *Store) ListAll(ctx context.Context) ([]*models.Donor, error) {
	rows, err := s.db.Q(ctx).Query(ctx, `SELECT `+donorColumns+` FROM donors ORDER BY registration_seq`)
	if err != nil {
		return nil, fmt.Errorf("list donors: %w", err)
	}
	defer rows.Close()

	var out []*models.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Q(ctx).QueryRow(ctx, `SELECT count(*) FROM donors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count donors: %w", err)
	}
	return n, nil
}

func (s *Store) FindByID(ctx context.Context, id domain.Identity) (*models.Donor, error) {
	row := s.db.Q(ctx).QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = $1`, id)
	return scanDonor(row)
}

// Execute locks the row with FOR UPDATE across validate, mutate and record.
func (s *Store) Execute(ctx context.Context, id domain.Identity, validate func(*models.Donor) error, mutate func(*models.Donor), record func(context.Context, *models.Donor) error) (*models.Donor, error) {
	var result *models.Donor
	err := s.db.RunInTx(ctx, func(ctx context.Context) error {
		row := s.db.Q(ctx).QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = $1 FOR UPDATE`, id)
		d, err := scanDonor(row)
		if err != nil {
			return err
		}
		if err := validate(d); err != nil {
			return err
		}
		mutate(d)
		d.Version++
		_, err = s.db.Q(ctx).Exec(ctx, `
			UPDATE donors
			SET consent = $2, active = $3, health_record_ref = $4, version = $5, updated_at = $6
			WHERE id = $1`,
			d.ID, d.Consent, d.Active, d.HealthRecordRef, d.Version, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update donor: %w", err)
		}
		if record != nil {
			if err := record(ctx, d.Clone()); err != nil {
				return err
			}
		}
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanDonor(row pgx.Row) (*models.Donor, error) {
	var (
		d      models.Donor
		organs []string
	)
	err := row.Scan(&d.ID, &d.Name, &d.Age, &d.BloodType, &organs,
		&d.HealthRecordRef, &d.Consent, &d.Active, &d.Version, &d.RegisteredAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan donor: %w", err)
	}
	d.OrganTypes = make([]domain.OrganType, len(organs))
	for i, o := range organs {
		d.OrganTypes[i] = domain.OrganType(o)
	}
	return &d, nil
}

func organTypesToText(in []domain.OrganType) []string {
	out := make([]string, len(in))
	for i, o := range in {
		out[i] = string(o)
	}
	return out
}

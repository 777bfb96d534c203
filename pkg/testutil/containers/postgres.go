//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"lifeconnect/internal/platform/config"
	"lifeconnect/internal/platform/postgres"
)

// PostgresContainer is a migrated ledger database for one test suite.
type PostgresContainer struct {
	DSN string
	DB  *postgres.DB
}

// NewPostgresContainer starts Postgres, applies the embedded migrations and
// registers cleanup on t.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lifeconnect"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := postgres.Connect(ctx, config.PostgresConfig{URL: dsn, MaxConns: 20})
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return &PostgresContainer{DSN: dsn, DB: db}
}

// Truncate empties every ledger table and restarts organ numbering at 0.
func (p *PostgresContainer) Truncate(t *testing.T) {
	t.Helper()
	_, err := p.DB.Pool.Exec(context.Background(),
		`TRUNCATE custody_events, organs, recipients, donors, event_outbox RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
}

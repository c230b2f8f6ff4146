package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pe-finder/internal/domain"
)

// setupPostgres starts a disposable PostgreSQL container seeded with a
// pesubject table and returns its DSN.
func setupPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("pefinder"),
		postgres.WithUsername("pefinder"),
		postgres.WithPassword("pefinder_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `CREATE TABLE pesubject (id INTEGER, impression TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO pesubject (id, impression) VALUES
		(1, 'Acute pulmonary embolism.'),
		(2, 'No evidence of pulmonary embolism.')`)
	require.NoError(t, err)

	return dsn
}

func TestPostgres_RoundTrip(t *testing.T) {
	dsn := setupPostgres(t)
	ctx := context.Background()
	logger := quietLogger()

	reports, err := OpenReports(ctx, dsn, "pesubject", logger)
	require.NoError(t, err)
	defer reports.Close()

	got, err := reports.Reports(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	results, err := CreateResults(ctx, dsn, logger)
	require.NoError(t, err)
	defer results.Close()

	require.NoError(t, results.Record(ctx, positive))
	assert.ErrorIs(t, results.Record(ctx, positive), domain.ErrDuplicateReport)
	require.NoError(t, results.Rollback())

	// A failed statement aborts a postgres transaction, so start over.
	again, err := CreateResults(ctx, dsn, logger)
	require.NoError(t, err)
	defer again.Close()

	require.NoError(t, again.Record(ctx, positive))
	require.NoError(t, again.Record(ctx, negative))
	require.NoError(t, again.Commit())

	n, err := again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stored, err := again.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, positive, stored)
}

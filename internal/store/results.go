package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pe-finder/internal/domain"
)

const resultsSchema = `CREATE TABLE results (
	id INTEGER PRIMARY KEY,
	disease TEXT,
	uncertainty TEXT,
	historical TEXT,
	quality TEXT
)`

var ErrClosed = errors.New("result store transaction already finished")

// ResultStore writes classification results inside one transaction. The
// results table is recreated when the store is created.
type ResultStore struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect Dialect
	insert  string
	logger  *logrus.Logger
}

// CreateResults replaces any store at dsn with an empty results table.
func CreateResults(ctx context.Context, dsn string, logger *logrus.Logger) (*ResultStore, error) {
	dialect := DialectFor(dsn)
	if dialect == SQLITE {
		for _, path := range []string{dsn, dsn + "-wal", dsn + "-shm", dsn + "-journal"} {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to remove existing output %s: %w", path, err)
			}
		}
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open output database: %w", err)
	}
	if dialect == SQLITE {
		db.SetMaxOpenConns(1)
	}

	store, err := NewResultStore(ctx, db, dialect, logger)
	if err != nil {
		return nil, closeOnError(db, err)
	}
	return store, nil
}

// NewResultStore drops and recreates the results table on db and starts the
// write transaction.
func NewResultStore(ctx context.Context, db *sql.DB, dialect Dialect, logger *logrus.Logger) (*ResultStore, error) {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS results"); err != nil {
		return nil, fmt.Errorf("failed to drop results table: %w", err)
	}
	if _, err := db.ExecContext(ctx, resultsSchema); err != nil {
		return nil, fmt.Errorf("failed to create results table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin results transaction: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO results (id, disease, uncertainty, historical, quality) VALUES (%s, %s, %s, %s, %s)",
		dialect.Placeholder(1), dialect.Placeholder(2), dialect.Placeholder(3),
		dialect.Placeholder(4), dialect.Placeholder(5),
	)

	logger.WithField("dialect", dialect.String()).Debug("Created results table")

	return &ResultStore{
		db:      db,
		tx:      tx,
		dialect: dialect,
		insert:  insert,
		logger:  logger,
	}, nil
}

// Record inserts one result row. An id already written in this run fails
// with domain.ErrDuplicateReport.
func (s *ResultStore) Record(ctx context.Context, r *domain.ClassificationResult) error {
	if s.tx == nil {
		return ErrClosed
	}
	_, err := s.tx.ExecContext(ctx, s.insert,
		r.ReportID, string(r.Disease), string(r.Uncertainty), string(r.Historical), string(r.Quality),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("report %d: %w", r.ReportID, domain.ErrDuplicateReport)
		}
		return fmt.Errorf("failed to insert result for report %d: %w", r.ReportID, err)
	}
	return nil
}

// Commit makes every recorded result visible.
func (s *ResultStore) Commit() error {
	if s.tx == nil {
		return ErrClosed
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// Rollback discards every recorded result. It is a no-op after Commit.
func (s *ResultStore) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back results: %w", err)
	}
	return nil
}

// Count returns the number of committed result rows.
func (s *ResultStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

// Get reads back the committed result of one report.
func (s *ResultStore) Get(ctx context.Context, reportID int64) (*domain.ClassificationResult, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, disease, uncertainty, historical, quality FROM results WHERE id = %s", s.dialect.Placeholder(1)),
		reportID,
	)
	return scanResult(row)
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(s scanner) (*domain.ClassificationResult, error) {
	var r domain.ClassificationResult
	var disease, uncertainty, historical, quality string
	if err := s.Scan(&r.ReportID, &disease, &uncertainty, &historical, &quality); err != nil {
		return nil, fmt.Errorf("failed to scan result: %w", err)
	}
	r.Disease = domain.DiseaseState(disease)
	r.Uncertainty = domain.UncertaintyState(uncertainty)
	r.Historical = domain.HistoricalState(historical)
	r.Quality = domain.QualityState(quality)
	return &r, nil
}

// Close rolls back any open transaction and closes the database.
func (s *ResultStore) Close() error {
	rbErr := s.Rollback()
	return errors.Join(rbErr, s.db.Close())
}

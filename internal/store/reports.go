package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pe-finder/internal/domain"
)

// ReportStore reads the reports to classify from a single table.
type ReportStore struct {
	db     *sql.DB
	table  string
	logger *logrus.Logger
}

// OpenReports opens the input store read-only. A SQLite input must already exist.
func OpenReports(ctx context.Context, dsn, table string, logger *logrus.Logger) (*ReportStore, error) {
	dialect := DialectFor(dsn)
	if dialect == SQLITE {
		if _, err := os.Stat(dsn); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, dsn)
		}
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open input database: %w", err)
	}

	if dialect == SQLITE {
		// query_only is per connection
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return nil, closeOnError(db, fmt.Errorf("failed to set input read-only: %w", err))
		}
	} else if err := db.PingContext(ctx); err != nil {
		return nil, closeOnError(db, fmt.Errorf("failed to connect to input database: %w", err))
	}

	store, err := NewReportStore(db, table, logger)
	if err != nil {
		return nil, closeOnError(db, err)
	}
	return store, nil
}

// NewReportStore wraps an open database.
func NewReportStore(db *sql.DB, table string, logger *logrus.Logger) (*ReportStore, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &ReportStore{db: db, table: table, logger: logger}, nil
}

// Reports reads every report in one query.
func (s *ReportStore) Reports(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, impression FROM %s", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var r domain.Report
		var impression sql.NullString
		if err := rows.Scan(&r.ID, &impression); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.Impression = impression.String
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"table":   s.table,
		"reports": len(reports),
	}).Debug("Loaded input reports")

	return reports, nil
}

// Close closes the input database.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

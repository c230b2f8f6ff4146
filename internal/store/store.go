// Package store reads input reports and writes classification results. Stores
// are SQLite files or PostgreSQL databases selected by the form of the DSN.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pe-finder/internal/domain"
)

// Dialect selects driver and placeholder syntax.
type Dialect int

const (
	SQLITE Dialect = iota
	POSTGRES
)

func (d Dialect) String() string {
	if d == POSTGRES {
		return "postgres"
	}
	return "sqlite"
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == POSTGRES {
		return "postgres"
	}
	return "sqlite"
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == POSTGRES {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// DialectFor infers the dialect from a DSN. URLs with a postgres scheme select
// PostgreSQL; anything else is a SQLite file path.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return POSTGRES
	}
	return SQLITE
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTable checks that a table name is a plain SQL identifier.
func ValidateTable(table string) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTable, table)
	}
	return nil
}

// isUniqueViolation reports whether err is a primary key or unique constraint
// failure from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// results has no constraint besides its primary key
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
			return true
		}
	}
	return false
}

func closeOnError(db *sql.DB, err error) error {
	if cerr := db.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

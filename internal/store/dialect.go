package store

import (
	"fmt"
	"strings"
)

// Dialect hides the SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName is the database/sql driver to open.
	DriverName() string

	// Placeholder returns the parameter marker for a 1-based position.
	Placeholder(position int) string

	// InitStatements run once per connection pool before migrations.
	InitStatements() []string

	// IsDuplicateKeyError reports a unique constraint violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType names a supported database.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect returns the dialect for t. Unknown types are an error.
func NewDialect(t DialectType) (Dialect, error) {
	switch t {
	case DialectSQLite, "":
		return sqliteDialect{}, nil
	case DialectPostgres:
		return postgresDialect{}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", t)
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) InitStatements() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

func (sqliteDialect) IsDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) Placeholder(position int) string { return fmt.Sprintf("$%d", position) }

func (postgresDialect) InitStatements() []string { return nil }

func (postgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

// rebind rewrites ? placeholders for the dialect.
func rebind(d Dialect, query string) string {
	if _, ok := d.(sqliteDialect); ok {
		return query
	}
	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(d.Placeholder(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

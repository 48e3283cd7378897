package sorter

import (
	"database/sql"
	"fmt"

	"github.com/geonyoro/sql-dependency-sorter/pkg/schema"
	_ "modernc.org/sqlite"
)

// Verify replays the ordered statements against an in-memory SQLite
// database with foreign key enforcement on, proving the dump applies
// cleanly to a fresh database. The statements must be SQLite-compatible
// SQL; schema-qualified names only replay when the schema exists.
func Verify(stmts []*schema.Statement) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("create in-memory database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	for _, st := range stmts {
		if _, err := db.Exec(st.SQL); err != nil {
			return fmt.Errorf("replay %s: %w", st.Identity, err)
		}
	}

	rows, err := db.Query("PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	hasViolations := rows.Next()
	_ = rows.Close()
	if hasViolations {
		return fmt.Errorf("replay left foreign key violations")
	}
	return rows.Err()
}

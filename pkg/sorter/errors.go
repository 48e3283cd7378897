package sorter

import (
	"fmt"
	"strings"

	"github.com/geonyoro/sql-dependency-sorter/pkg/schema"
)

// DuplicateTableError is returned when two statements define the same
// table.
type DuplicateTableError struct {
	Table schema.Identity
}

func (e *DuplicateTableError) Error() string {
	return fmt.Sprintf("table %s is defined more than once", e.Table)
}

// MissingReference is one foreign key edge pointing at a table that is
// not defined in the input.
type MissingReference struct {
	Referencing schema.Identity
	Missing     schema.Identity
}

// MissingDependencyError is returned when statements reference tables
// absent from the input. It carries every dangling reference found, not
// just the first.
type MissingDependencyError struct {
	References []MissingReference
}

func (e *MissingDependencyError) Error() string {
	parts := make([]string, len(e.References))
	for i, r := range e.References {
		parts[i] = fmt.Sprintf("%s references undefined table %s", r.Referencing, r.Missing)
	}
	return "unresolved dependencies: " + strings.Join(parts, "; ")
}

// CircularDependencyError is returned when the dependency graph cannot
// be ordered. Cycle holds one concrete cycle: each table depends on the
// next, and the last depends on the first.
type CircularDependencyError struct {
	Cycle []schema.Identity
}

func (e *CircularDependencyError) Error() string {
	names := make([]string, 0, len(e.Cycle)+1)
	for _, id := range e.Cycle {
		names = append(names, id.String())
	}
	if len(e.Cycle) > 0 {
		names = append(names, e.Cycle[0].String())
	}
	return "circular dependency: " + strings.Join(names, " -> ")
}

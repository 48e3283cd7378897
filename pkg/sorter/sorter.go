// Package sorter orders CREATE TABLE statements so that every table
// appears after the tables it references through foreign keys.
package sorter

import (
	"fmt"
	"strings"

	"github.com/geonyoro/sql-dependency-sorter/pkg/schema"
)

// Sort returns the statements reordered so that every statement comes
// after all statements it depends on. Among statements that are ready
// at the same time, the one appearing first in the input wins, so the
// output is deterministic and stays close to the input order when the
// input is already mostly sorted.
//
// Sort fails with *DuplicateTableError, *MissingDependencyError, or
// *CircularDependencyError; no partial ordering is returned.
func Sort(stmts []*schema.Statement) ([]*schema.Statement, error) {
	pos := make(map[schema.Identity]int, len(stmts))
	for i, st := range stmts {
		if _, dup := pos[st.Identity]; dup {
			return nil, &DuplicateTableError{Table: st.Identity}
		}
		pos[st.Identity] = i
	}

	// Collect every dangling reference before giving up; ordering over
	// an incomplete graph would be meaningless.
	var missing []MissingReference
	for _, st := range stmts {
		for _, dep := range st.DependsOn {
			if _, ok := pos[dep]; !ok {
				missing = append(missing, MissingReference{
					Referencing: st.Identity,
					Missing:     dep,
				})
			}
		}
	}
	if len(missing) > 0 {
		return nil, &MissingDependencyError{References: missing}
	}

	// Kahn's algorithm with edges reversed (dependency -> dependent): a
	// statement becomes ready once all its dependencies are emitted.
	indegree := make([]int, len(stmts))
	dependents := make([][]int, len(stmts))
	for i, st := range stmts {
		indegree[i] = len(st.DependsOn)
		for _, dep := range st.DependsOn {
			j := pos[dep]
			dependents[j] = append(dependents[j], i)
		}
	}

	ordered := make([]*schema.Statement, 0, len(stmts))
	done := make([]bool, len(stmts))
	for len(ordered) < len(stmts) {
		// Smallest input position among ready statements. Inputs are
		// schema dumps, small enough that a linear scan per pick beats
		// the bookkeeping of anything cleverer.
		next := -1
		for i := range stmts {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			return nil, &CircularDependencyError{Cycle: findCycle(stmts, pos, done)}
		}
		done[next] = true
		ordered = append(ordered, stmts[next])
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}
	return ordered, nil
}

// SQL renders ordered statements back into a script, one statement per
// block, semicolon-terminated and separated by a blank line.
func SQL(stmts []*schema.Statement) string {
	var b strings.Builder
	for _, st := range stmts {
		fmt.Fprintf(&b, "%s;\n\n", st.SQL)
	}
	return b.String()
}

// findCycle runs a depth-first search restricted to the statements that
// could not be ordered and extracts one concrete cycle for the error
// message. Only reached on failure, so clarity wins over speed.
func findCycle(stmts []*schema.Statement, pos map[schema.Identity]int, done []bool) []schema.Identity {
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(stmts))
	var stack []int
	var cycle []schema.Identity

	var visit func(i int) bool
	visit = func(i int) bool {
		state[i] = visiting
		stack = append(stack, i)
		for _, dep := range stmts[i].DependsOn {
			j := pos[dep]
			if done[j] {
				continue
			}
			switch state[j] {
			case visiting:
				// Unwind the stack back to the first occurrence of j.
				for k, n := range stack {
					if n == j {
						for _, m := range stack[k:] {
							cycle = append(cycle, stmts[m].Identity)
						}
						return true
					}
				}
			case unvisited:
				if visit(j) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = visited
		return false
	}

	for i := range stmts {
		if !done[i] && state[i] == unvisited && visit(i) {
			return cycle
		}
	}
	return nil
}

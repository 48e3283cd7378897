// Package schema provides types for representing CREATE TABLE statements
// and their foreign key dependencies.
package schema

import "strings"

// Identity is the canonical key for a table: a normalized (schema, name)
// pair. Schema is empty for unqualified table names. Two identities are
// equal only when both components match, so "a.users" and "b.users" stay
// distinct.
type Identity struct {
	Schema string
	Name   string
}

// String renders the identity as "schema.name", or just "name" when the
// table is unqualified.
func (id Identity) String() string {
	if id.Schema != "" {
		return id.Schema + "." + id.Name
	}
	return id.Name
}

// Statement represents one analyzed CREATE TABLE statement.
type Statement struct {
	Identity  Identity
	DependsOn []Identity // referenced tables, deduplicated, self-references excluded
	SQL       string     // original statement text, preserved verbatim
}

// NormalizeName strips one layer of identifier quoting (double quotes,
// single quotes, or backticks) and lowercases the result. Doubled quote
// characters inside a quoted identifier unescape to a single one. Every
// identifier comparison in this module goes through this one transform,
// so the parser and the sorter can never disagree on identity.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 {
		switch q := name[0]; q {
		case '"', '\'', '`':
			if name[len(name)-1] == q {
				name = name[1 : len(name)-1]
				name = strings.ReplaceAll(name, string(q)+string(q), string(q))
			}
		}
	}
	return strings.ToLower(name)
}

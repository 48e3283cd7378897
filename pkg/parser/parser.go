// Package parser extracts table identities and foreign key references
// from raw CREATE TABLE statements.
package parser

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/geonyoro/sql-dependency-sorter/pkg/schema"
)

var baseFS fs.FS

// SetBaseFS sets the base filesystem for reading schema files.
// Use an embed.FS to read from embedded files.
// Pass nil to revert to the OS filesystem.
func SetBaseFS(fsys fs.FS) {
	baseFS = fsys
}

func BaseFS() fs.FS {
	return baseFS
}

// MalformedStatementError is returned when a statement looks like a
// CREATE TABLE but no table name can be located after the keywords.
type MalformedStatementError struct {
	Statement string
}

func (e *MalformedStatementError) Error() string {
	snippet := strings.Join(strings.Fields(e.Statement), " ")
	if len(snippet) > 60 {
		snippet = snippet[:60] + "..."
	}
	return fmt.Sprintf("cannot locate table name in statement %q", snippet)
}

// An identifier component: a bare word, or a placeholder standing in
// for a masked quoted token.
const identPattern = `(?:__tok_\d+__|[A-Za-z_][\w$]*)`

var (
	createTableRe = regexp.MustCompile(
		`(?is)^\s*create\s+(?:temp(?:orary)?\s+)?table\s+(?:if\s+not\s+exists\s+)?(` +
			identPattern + `)(?:\s*\.\s*(` + identPattern + `))?`)
	createTableKeywordRe = regexp.MustCompile(`(?is)^\s*create\s+(?:temp(?:orary)?\s+)?table\b`)
	referencesRe         = regexp.MustCompile(
		`(?is)\breferences\s+(` + identPattern + `)(?:\s*\.\s*(` + identPattern + `))?`)
	placeholderRe = regexp.MustCompile(`^__tok_(\d+)__$`)
)

// Analyze parses a single CREATE TABLE statement and returns its
// identity, the set of tables it references through foreign keys, and
// the original text. Both inline column references and table-level
// FOREIGN KEY constraints are recognized. References are deduplicated
// and self-references dropped, since they never constrain the ordering.
func Analyze(text string) (*schema.Statement, error) {
	masked, tokens := maskTokens(text)

	m := createTableRe.FindStringSubmatch(masked)
	if m == nil {
		return nil, &MalformedStatementError{Statement: text}
	}
	identity := makeIdentity(m[1], m[2], tokens)

	stmt := &schema.Statement{Identity: identity, SQL: text}
	seen := make(map[schema.Identity]bool)
	for _, rm := range referencesRe.FindAllStringSubmatch(masked, -1) {
		ref := makeIdentity(rm[1], rm[2], tokens)
		if ref == identity || seen[ref] {
			continue
		}
		seen[ref] = true
		stmt.DependsOn = append(stmt.DependsOn, ref)
	}
	return stmt, nil
}

// IsCreateTable reports whether the statement begins with the CREATE
// TABLE keywords, ignoring leading comments.
func IsCreateTable(text string) bool {
	masked, _ := maskTokens(text)
	return createTableKeywordRe.MatchString(masked)
}

// ParseSQL splits a SQL script into statements and analyzes every
// CREATE TABLE statement in it. Other statements (indexes, inserts,
// and so on) are skipped.
func ParseSQL(script string) ([]*schema.Statement, error) {
	var stmts []*schema.Statement
	for _, text := range SplitStatements(script) {
		if !IsCreateTable(text) {
			continue
		}
		stmt, err := Analyze(text)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// ReadFile reads a SQL file and analyzes its CREATE TABLE statements.
func ReadFile(path string) ([]*schema.Statement, error) {
	var content []byte
	var err error
	if baseFS != nil {
		content, err = fs.ReadFile(baseFS, path)
	} else {
		content, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseSQL(string(content))
}

// SplitStatements splits a SQL script into individual statements on
// semicolons, ignoring semicolons inside string literals, quoted
// identifiers, and comments. Statement text is returned verbatim,
// trimmed of surrounding whitespace, with the terminating semicolon
// excluded. Empty statements are dropped.
func SplitStatements(script string) []string {
	var stmts []string
	start := 0
	for i := 0; i < len(script); {
		switch c := script[i]; {
		case c == '\'':
			i = skipLiteral(script, i)
		case c == '"' || c == '`':
			i = skipQuoted(script, i)
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			i = skipLineComment(script, i)
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			i = skipBlockComment(script, i)
		case c == ';':
			if s := strings.TrimSpace(script[start:i]); s != "" {
				stmts = append(stmts, s)
			}
			i++
			start = i
		default:
			i++
		}
	}
	if s := strings.TrimSpace(script[start:]); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}

// maskTokens replaces string literals and quoted identifiers with
// numbered placeholders and blanks out comments, so a keyword buried in
// a default value, a comment, or a quoted name can never be misread
// while scanning. Returns the masked text and the token table for
// unmasking placeholders captured in name position.
func maskTokens(sql string) (string, []string) {
	var b strings.Builder
	var tokens []string
	for i := 0; i < len(sql); {
		switch c := sql[i]; {
		case c == '\'':
			j := skipLiteral(sql, i)
			tokens = append(tokens, sql[i:j])
			fmt.Fprintf(&b, " __tok_%d__ ", len(tokens)-1)
			i = j
		case c == '"' || c == '`':
			j := skipQuoted(sql, i)
			tokens = append(tokens, sql[i:j])
			fmt.Fprintf(&b, " __tok_%d__ ", len(tokens)-1)
			i = j
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = skipLineComment(sql, i)
			b.WriteByte(' ')
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = skipBlockComment(sql, i)
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), tokens
}

// skipLiteral advances past a single-quoted literal starting at i,
// honoring doubled-quote escapes ('O''Neil').
func skipLiteral(s string, i int) int {
	for i++; i < len(s); i++ {
		if s[i] == '\'' {
			if i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return i
}

// skipQuoted advances past a quoted identifier starting at i.
func skipQuoted(s string, i int) int {
	q := s[i]
	for i++; i < len(s); i++ {
		if s[i] == q {
			return i + 1
		}
	}
	return i
}

func skipLineComment(s string, i int) int {
	for ; i < len(s); i++ {
		if s[i] == '\n' {
			return i
		}
	}
	return i
}

func skipBlockComment(s string, i int) int {
	if end := strings.Index(s[i+2:], "*/"); end >= 0 {
		return i + 2 + end + 2
	}
	return len(s)
}

// makeIdentity normalizes a captured, possibly schema-qualified table
// name into an Identity. Placeholders are unmasked back to their quoted
// text first.
func makeIdentity(first, second string, tokens []string) schema.Identity {
	first = schema.NormalizeName(unmask(first, tokens))
	if second == "" {
		return schema.Identity{Name: first}
	}
	second = schema.NormalizeName(unmask(second, tokens))
	return schema.Identity{Schema: first, Name: second}
}

func unmask(token string, tokens []string) string {
	m := placeholderRe.FindStringSubmatch(token)
	if m == nil {
		return token
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n >= len(tokens) {
		return token
	}
	return tokens[n]
}

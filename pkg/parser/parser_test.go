package parser

import (
	"errors"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/geonyoro/sql-dependency-sorter/pkg/schema"
)

func ident(name string) schema.Identity {
	return schema.Identity{Name: name}
}

func qualified(schemaName, name string) schema.Identity {
	return schema.Identity{Schema: schemaName, Name: name}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantID   schema.Identity
		wantDeps []schema.Identity
		wantErr  bool
	}{
		{
			name:   "no foreign keys",
			sql:    `CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
			wantID: ident("users"),
		},
		{
			name:     "inline column reference",
			sql:      `CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER REFERENCES users (id))`,
			wantID:   ident("posts"),
			wantDeps: []schema.Identity{ident("users")},
		},
		{
			name: "table level foreign key",
			sql: `CREATE TABLE posts (
				id INTEGER PRIMARY KEY,
				user_id INTEGER,
				FOREIGN KEY (user_id) REFERENCES users (id)
			)`,
			wantID:   ident("posts"),
			wantDeps: []schema.Identity{ident("users")},
		},
		{
			name: "multiple references",
			sql: `CREATE TABLE order_items (
				order_id INTEGER REFERENCES orders (id),
				product_id INTEGER REFERENCES products (id)
			)`,
			wantID:   ident("order_items"),
			wantDeps: []schema.Identity{ident("orders"), ident("products")},
		},
		{
			name: "duplicate references collapse",
			sql: `CREATE TABLE transfers (
				src INTEGER REFERENCES accounts (id),
				dst INTEGER REFERENCES accounts (id)
			)`,
			wantID:   ident("transfers"),
			wantDeps: []schema.Identity{ident("accounts")},
		},
		{
			name:   "self reference excluded",
			sql:    `CREATE TABLE employees (id INTEGER PRIMARY KEY, manager_id INTEGER REFERENCES employees (id))`,
			wantID: ident("employees"),
		},
		{
			name:     "quoted mixed case names",
			sql:      "CREATE TABLE \"Posts\" (user_id INTEGER REFERENCES `USERS` (id))",
			wantID:   ident("posts"),
			wantDeps: []schema.Identity{ident("users")},
		},
		{
			name:     "single quoted names",
			sql:      `CREATE TABLE 'posts' (user_id INTEGER REFERENCES 'Users' (id))`,
			wantID:   ident("posts"),
			wantDeps: []schema.Identity{ident("users")},
		},
		{
			name:     "schema qualified",
			sql:      `CREATE TABLE public.orders (customer_id INTEGER REFERENCES public.customers (id))`,
			wantID:   qualified("public", "orders"),
			wantDeps: []schema.Identity{qualified("public", "customers")},
		},
		{
			name:     "quoted schema qualified",
			sql:      `CREATE TABLE "public"."orders" (customer_id INTEGER REFERENCES public.customers (id))`,
			wantID:   qualified("public", "orders"),
			wantDeps: []schema.Identity{qualified("public", "customers")},
		},
		{
			name:     "case insensitive keywords",
			sql:      `create table posts (user_id integer references users (id))`,
			wantID:   ident("posts"),
			wantDeps: []schema.Identity{ident("users")},
		},
		{
			name:   "references inside string literal ignored",
			sql:    `CREATE TABLE notes (body TEXT DEFAULT 'references users and more')`,
			wantID: ident("notes"),
		},
		{
			name: "references inside comment ignored",
			sql: `CREATE TABLE notes (
				-- references users (id)
				/* FOREIGN KEY (x) REFERENCES orders (id) */
				body TEXT
			)`,
			wantID: ident("notes"),
		},
		{
			name:   "if not exists",
			sql:    `CREATE TABLE IF NOT EXISTS logs (id INTEGER)`,
			wantID: ident("logs"),
		},
		{
			name:   "temporary table",
			sql:    `CREATE TEMPORARY TABLE scratch (id INTEGER)`,
			wantID: ident("scratch"),
		},
		{
			name:    "missing table name",
			sql:     `CREATE TABLE ;`,
			wantErr: true,
		},
		{
			name:    "not a create table",
			sql:     `INSERT INTO users VALUES (1)`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Analyze(tt.sql)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Analyze() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var malformed *MalformedStatementError
				if !errors.As(err, &malformed) {
					t.Fatalf("Analyze() error = %T, want *MalformedStatementError", err)
				}
				return
			}
			if stmt.Identity != tt.wantID {
				t.Errorf("identity = %v, want %v", stmt.Identity, tt.wantID)
			}
			if !reflect.DeepEqual(stmt.DependsOn, tt.wantDeps) {
				t.Errorf("dependencies = %v, want %v", stmt.DependsOn, tt.wantDeps)
			}
			if stmt.SQL != tt.sql {
				t.Errorf("original text not preserved verbatim")
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "empty input",
			script: "",
			want:   nil,
		},
		{
			name:   "single statement",
			script: "CREATE TABLE users (id INTEGER);",
			want:   []string{"CREATE TABLE users (id INTEGER)"},
		},
		{
			name:   "two statements",
			script: "CREATE TABLE a (id INTEGER);\n\nCREATE TABLE b (id INTEGER);",
			want: []string{
				"CREATE TABLE a (id INTEGER)",
				"CREATE TABLE b (id INTEGER)",
			},
		},
		{
			name:   "semicolon in string literal",
			script: "CREATE TABLE t (v TEXT DEFAULT 'a;b');",
			want:   []string{"CREATE TABLE t (v TEXT DEFAULT 'a;b')"},
		},
		{
			name:   "semicolon in comment",
			script: "CREATE TABLE t (\n-- not a terminator ;\nid INTEGER);",
			want:   []string{"CREATE TABLE t (\n-- not a terminator ;\nid INTEGER)"},
		},
		{
			name:   "missing final semicolon",
			script: "CREATE TABLE a (id INTEGER);\nCREATE TABLE b (id INTEGER)",
			want: []string{
				"CREATE TABLE a (id INTEGER)",
				"CREATE TABLE b (id INTEGER)",
			},
		},
		{
			name:   "whitespace only chunks dropped",
			script: ";;\n ;\nCREATE TABLE a (id INTEGER);\n",
			want:   []string{"CREATE TABLE a (id INTEGER)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.script)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitStatements() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseSQL(t *testing.T) {
	script := `
-- schema dump
CREATE TABLE users (id INTEGER PRIMARY KEY);

CREATE INDEX idx_users_id ON users (id);

CREATE TABLE posts (
	id INTEGER PRIMARY KEY,
	user_id INTEGER REFERENCES users (id)
);

INSERT INTO users VALUES (1);
`
	stmts, err := ParseSQL(script)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
	if stmts[0].Identity != ident("users") || stmts[1].Identity != ident("posts") {
		t.Errorf("identities = %v, %v", stmts[0].Identity, stmts[1].Identity)
	}
	if !reflect.DeepEqual(stmts[1].DependsOn, []schema.Identity{ident("users")}) {
		t.Errorf("posts dependencies = %v", stmts[1].DependsOn)
	}
}

func TestParseSQLMalformed(t *testing.T) {
	_, err := ParseSQL("CREATE TABLE ;")
	var malformed *MalformedStatementError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want *MalformedStatementError", err)
	}
}

func TestReadFileFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"schema.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY);"),
		},
	}
	SetBaseFS(fsys)
	defer SetBaseFS(nil)

	stmts, err := ReadFile("schema.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].Identity != ident("users") {
		t.Errorf("unexpected statements: %v", stmts)
	}
}

package pg

import (
	"fmt"
	"strings"
)

// Statement: именованный DDL-оператор.
type Statement struct {
	Name string
	SQL  string
}

const defaultSchema = "scoutadmin"

// sqlIdent квотирует идентификатор.
func sqlIdent(s string) string { return `"` + strings.ReplaceAll(strings.ToLower(s), `"`, `""`) + `"` }

func table(schema, name string) string {
	return fmt.Sprintf("%s.%s", sqlIdent(schema), sqlIdent(name))
}

// SessionDDL: схема хранилища сессий консоли.
func SessionDDL(schema string) []Statement {
	if schema == "" {
		schema = defaultSchema
	}
	t := table(schema, "console_sessions")
	return []Statement{
		{Name: "schema", SQL: "CREATE SCHEMA IF NOT EXISTS " + sqlIdent(schema)},
		{Name: "console_sessions", SQL: `CREATE TABLE IF NOT EXISTS ` + t + ` (
  id                   uuid PRIMARY KEY,
  backend_token        text NOT NULL,
  user_json            jsonb NOT NULL,
  must_change_password boolean NOT NULL DEFAULT false,
  created_at           timestamptz NOT NULL DEFAULT now(),
  expires_at           timestamptz NOT NULL
)`},
		{Name: "console_sessions_expires_idx", SQL: "CREATE INDEX IF NOT EXISTS console_sessions_expires_idx ON " + t + " (expires_at)"},
	}
}

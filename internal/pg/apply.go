package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goto/salt/log"
	"github.com/jackc/pgx/v5/pgconn"
)

// коды, означающие «объект уже есть»: duplicate_object, duplicate_table, duplicate_schema
var duplicateCodes = map[string]bool{"42710": true, "42P07": true, "42P06": true}

// ApplyDDL выполняет операторы по порядку. Ожидается идемпотентный DDL (create ... if not exists);
// ошибки «уже существует» пропускаются.
func ApplyDDL(ctx context.Context, db *sql.DB, stmts []Statement, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoop()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, st := range stmts {
		sqlText := strings.TrimSpace(st.SQL)
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && duplicateCodes[pgErr.Code] {
				logger.Info("ddl skipped, already exists", "name", st.Name, "code", pgErr.Code)
				continue
			}
			return fmt.Errorf("ddl %s: %w", st.Name, err)
		}
		logger.Debug("ddl applied", "name", st.Name)
	}
	return nil
}

// isInvalidText: invalid_text_representation (например, не-uuid в uuid-колонке).
func isInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

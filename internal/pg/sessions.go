package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scoutadmin/internal/auth"
	"scoutadmin/internal/backend"
)

// SessionStore: auth.SessionStore поверх Postgres; переживает перезапуск консоли.
type SessionStore struct {
	db    *sql.DB
	table string
	ttl   time.Duration
	now   func() time.Time
}

var (
	_ auth.SessionStore = (*SessionStore)(nil)
	_ auth.Sweeper      = (*SessionStore)(nil)
)

func NewSessionStore(db *sql.DB, schema string, ttl time.Duration) *SessionStore {
	if schema == "" {
		schema = defaultSchema
	}
	return &SessionStore{db: db, table: table(schema, "console_sessions"), ttl: ttl, now: time.Now}
}

func (s *SessionStore) Put(ctx context.Context, sess *auth.Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	q := `INSERT INTO ` + s.table + ` (id, backend_token, user_json, must_change_password, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
  backend_token = EXCLUDED.backend_token,
  user_json = EXCLUDED.user_json,
  must_change_password = EXCLUDED.must_change_password,
  expires_at = EXCLUDED.expires_at`
	_, err = s.db.ExecContext(ctx, q, sess.ID, sess.BackendToken, user, sess.MustChangePassword, sess.CreatedAt, sess.ExpiresAt)
	return err
}

// Get читает живую сессию и продлевает её.
func (s *SessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	now := s.now()
	q := `UPDATE ` + s.table + ` SET expires_at = $3
WHERE id = $1 AND expires_at > $2
RETURNING backend_token, user_json, must_change_password, created_at, expires_at`
	var (
		sess auth.Session
		user []byte
	)
	sess.ID = id
	err := s.db.QueryRowContext(ctx, q, id, now, now.Add(s.ttl)).
		Scan(&sess.BackendToken, &user, &sess.MustChangePassword, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		// id не uuid: такой сессии быть не может
		if isInvalidText(err) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	var u backend.User
	if err := json.Unmarshal(user, &u); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	sess.User = u
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, id)
	if isInvalidText(err) {
		return nil
	}
	return err
}

// SweepExpired удаляет просроченные сессии и возвращает их id.
func (s *SessionStore) SweepExpired(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `DELETE FROM `+s.table+` WHERE expires_at <= $1 RETURNING id::text`, s.now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package pg

import (
	"context"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"scoutadmin/internal/auth"
	"scoutadmin/internal/backend"
)

func TestSessionDDL(t *testing.T) {
	stmts := SessionDDL("")
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0].SQL, `"scoutadmin"`)
	assert.Contains(t, stmts[1].SQL, `"scoutadmin"."console_sessions"`)
	assert.Equal(t, `"we""ird"`, sqlIdent(`We"ird`))
}

func TestSessionStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("scoutadmin"),
		postgres.WithUsername("scout"),
		postgres.WithPassword("scout"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, ApplyDDL(ctx, db, SessionDDL(""), log.NewNoop()))
	// повторное применение идемпотентно
	require.NoError(t, ApplyDDL(ctx, db, SessionDDL(""), log.NewNoop()))

	clock := time.Now().UTC().Truncate(time.Microsecond)
	store := NewSessionStore(db, "", 30*time.Minute)
	store.now = func() time.Time { return clock }

	sess := auth.NewSession(backend.LoginResponse{
		Token: "backend-token",
		User:  backend.User{ID: 4, Email: "kalle@scout.se", Role: backend.RoleSuperAdmin},
	}, 30*time.Minute, clock)
	sess.MustChangePassword = true
	require.NoError(t, store.Put(ctx, sess))

	clock = clock.Add(10 * time.Minute)
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "backend-token", got.BackendToken)
	assert.Equal(t, backend.RoleSuperAdmin, got.User.Role)
	assert.True(t, got.MustChangePassword)
	assert.True(t, clock.Add(30*time.Minute).Equal(got.ExpiresAt))

	got.MustChangePassword = false
	require.NoError(t, store.Put(ctx, got))
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, got.MustChangePassword)

	_, err = store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	clock = clock.Add(31 * time.Minute)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	gone, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sess.ID}, gone)

	require.NoError(t, store.Delete(ctx, sess.ID))
}

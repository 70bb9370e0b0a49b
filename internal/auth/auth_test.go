package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutadmin/internal/backend"
)

func session(role backend.Role, mustChange bool) *Session {
	return &Session{ID: "s", User: backend.User{Role: role}, MustChangePassword: mustChange}
}

func TestAuthorize_Table(t *testing.T) {
	admin := session(backend.RoleAdmin, false)
	super := session(backend.RoleSuperAdmin, false)
	pending := session(backend.RoleSuperAdmin, true)
	nobody := session("", false)

	cases := []struct {
		name string
		s    *Session
		l    Level
		path string
		want Decision
	}{
		{"guest page anonymous", nil, Guest, "/api/auth/login", Allow},
		{"guest page signed in", admin, Guest, "/api/auth/login", AlreadyAuthenticated},
		{"anonymous to admin", nil, Admin, "/api/events", LoginRequired},
		{"admin to admin", admin, Admin, "/api/events", Allow},
		{"admin to superadmin", admin, SuperAdmin, "/api/users", Forbidden},
		{"super to superadmin", super, SuperAdmin, "/api/users", Allow},
		{"super to admin", super, Admin, "/api/events", Allow},
		{"roleless to admin", nobody, Admin, "/api/events", Forbidden},
		{"roleless authenticated", nobody, Authenticated, "/api/auth/me", Allow},
		{"pending to events", pending, Admin, "/api/events", PasswordChangeRequired},
		{"pending to change", pending, Authenticated, "/api/auth/change-password", Allow},
		{"pending to me", pending, Authenticated, "/api/auth/me/", Allow},
		{"pending to logout", pending, Authenticated, "/api/auth/logout", Allow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.s, tc.l, tc.path))
		})
	}
}

func TestDecisionStrings(t *testing.T) {
	assert.Equal(t, "password_change_required", PasswordChangeRequired.String())
	assert.Equal(t, "superadmin", SuperAdmin.String())
}

func TestNewSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession(backend.LoginResponse{
		Token: "tok",
		User:  backend.User{ID: 1, Role: backend.RoleAdmin, MustChangePassword: true},
	}, 30*time.Minute, now)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "tok", s.BackendToken)
	assert.True(t, s.MustChangePassword)
	assert.Equal(t, now.Add(30*time.Minute), s.ExpiresAt)
	assert.NotEqual(t, s.ID, NewSession(backend.LoginResponse{}, time.Minute, now).ID)
}

func TestMemoryStore_SlidingTTL(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore(10 * time.Minute)
	m.now = func() time.Time { return clock }

	s := NewSession(backend.LoginResponse{Token: "t"}, 10*time.Minute, clock)
	require.NoError(t, m.Put(ctx, s))

	clock = clock.Add(9 * time.Minute)
	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.Add(10*time.Minute), got.ExpiresAt)

	// продлённая сессия переживает исходный срок
	clock = clock.Add(9 * time.Minute)
	_, err = m.Get(ctx, s.ID)
	require.NoError(t, err)

	clock = clock.Add(11 * time.Minute)
	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryStore_DeleteAndSweep(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryStore(time.Minute)
	m.now = func() time.Time { return clock }

	a := &Session{ID: "a", ExpiresAt: clock.Add(time.Second)}
	b := &Session{ID: "b", ExpiresAt: clock.Add(time.Hour)}
	require.NoError(t, m.Put(ctx, a))
	require.NoError(t, m.Put(ctx, b))

	clock = clock.Add(time.Minute)
	assert.Equal(t, []string{"a"}, m.Sweep())

	require.NoError(t, m.Delete(ctx, "b"))
	_, err := m.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour)
	s := &Session{ID: "x", MustChangePassword: true, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, m.Put(ctx, s))
	s.MustChangePassword = false

	got, err := m.Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, got.MustChangePassword)
}

package auth

import (
	"strings"

	"scoutadmin/internal/backend"
)

// Level: требование маршрута к сессии.
type Level int

const (
	// Guest: только для неавторизованных (страница входа)
	Guest Level = iota
	Authenticated
	Admin
	SuperAdmin
)

func (l Level) String() string {
	switch l {
	case Guest:
		return "guest"
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	case SuperAdmin:
		return "superadmin"
	}
	return "unknown"
}

type Decision int

const (
	Allow Decision = iota
	LoginRequired
	Forbidden
	PasswordChangeRequired
	AlreadyAuthenticated
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case LoginRequired:
		return "login_required"
	case Forbidden:
		return "forbidden"
	case PasswordChangeRequired:
		return "password_change_required"
	case AlreadyAuthenticated:
		return "already_authenticated"
	}
	return "unknown"
}

// маршруты, доступные сессии с обязательной сменой пароля
var passwordChangeRoutes = []string{
	"/api/auth/me",
	"/api/auth/change-password",
	"/api/auth/logout",
}

func passwordChangeAllowed(path string) bool {
	path = strings.TrimRight(path, "/")
	for _, p := range passwordChangeRoutes {
		if path == p {
			return true
		}
	}
	return false
}

// HasRole сообщает, удовлетворяет ли роль уровню доступа.
func HasRole(role backend.Role, l Level) bool {
	switch l {
	case Guest, Authenticated:
		return true
	case Admin:
		return role == backend.RoleAdmin || role == backend.RoleSuperAdmin
	case SuperAdmin:
		return role == backend.RoleSuperAdmin
	}
	return false
}

// Authorize решает, пускать ли сессию s (nil: нет сессии) на маршрут path уровня l.
func Authorize(s *Session, l Level, path string) Decision {
	if l == Guest {
		if s != nil {
			return AlreadyAuthenticated
		}
		return Allow
	}
	if s == nil {
		return LoginRequired
	}
	if s.MustChangePassword && !passwordChangeAllowed(path) {
		return PasswordChangeRequired
	}
	if !HasRole(s.Role(), l) {
		return Forbidden
	}
	return Allow
}

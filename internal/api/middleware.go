package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/auth"
	"scoutadmin/internal/i18n"
)

// SessionCookie: cookie консоли с id сессии.
const SessionCookie = "scoutadmin_session"

// languageMiddleware выбирает язык ответа; явный ?lang= запоминается в cookie.
func (w *Workspace) languageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tag, persist := w.I18n.ResolveTag(c.Request)
		if persist {
			i18n.SetLanguageCookie(c.Writer, tag, w.CookieSecure)
		}
		c.Set(ctxLang, tag)
		c.Next()
	}
}

// sessionMiddleware подтягивает сессию по cookie. Неизвестная сессия: анонимный запрос.
func (w *Workspace) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			c.Next()
			return
		}
		sess, err := w.Sessions.Get(c.Request.Context(), id)
		switch {
		case errors.Is(err, auth.ErrSessionNotFound):
			// хранилище могло само удалить просроченную сессию; уборщик её уже не увидит
			w.DropSession(id)
			w.clearSessionCookie(c)
		case err != nil:
			w.Logger.Warn("session lookup failed", "error", err)
		default:
			c.Set(ctxSession, sess)
		}
		c.Next()
	}
}

// guard пропускает запрос только при решении Allow.
func (w *Workspace) guard(level auth.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch auth.Authorize(sessionOf(c), level, c.Request.URL.Path) {
		case auth.Allow:
			c.Next()
		case auth.LoginRequired:
			w.abort(c, http.StatusUnauthorized, CodeLoginRequired, i18n.MsgLoginRequired)
		case auth.PasswordChangeRequired:
			w.abort(c, http.StatusForbidden, CodePasswordChangeRequired, i18n.MsgPasswordChangeRequired)
		case auth.AlreadyAuthenticated:
			w.abort(c, http.StatusConflict, CodeAlreadyAuthenticated, i18n.MsgAlreadyAuthenticated)
		default:
			w.abort(c, http.StatusForbidden, CodeForbidden, i18n.MsgForbidden)
		}
	}
}

func (w *Workspace) setSessionCookie(c *gin.Context, s *auth.Session) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(w.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   w.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (w *Workspace) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   w.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

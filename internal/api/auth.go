package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/auth"
	"scoutadmin/internal/backend"
	"scoutadmin/internal/i18n"
)

type sessionView struct {
	User               backend.User `json:"user"`
	MustChangePassword bool         `json:"mustChangePassword"`
	ExpiresAt          time.Time    `json:"expiresAt"`
}

func viewOf(s *auth.Session) sessionView {
	return sessionView{User: s.User, MustChangePassword: s.MustChangePassword, ExpiresAt: s.ExpiresAt}
}

// POST /api/auth/login
func LoginHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in loginInput
		if !w.bind(c, &in) {
			return
		}
		resp, err := w.Backend.Login(c.Request.Context(), backend.LoginRequest{Email: in.Email, Password: in.Password})
		if err != nil {
			if backend.IsUnavailable(err) {
				w.Logger.Error("login failed", "error", err)
				w.abort(c, http.StatusBadGateway, CodeBackend, i18n.MsgServer)
				return
			}
			w.Logger.Info("login rejected", "email", in.Email, "status", backend.Status(err))
			w.abort(c, http.StatusUnauthorized, CodeLoginRequired, i18n.MsgLoginFailed)
			return
		}

		sess := auth.NewSession(resp, w.SessionTTL, w.now())
		if err := w.Sessions.Put(c.Request.Context(), sess); err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		w.setSessionCookie(c, sess)
		w.Logger.Info("console login", "user_id", sess.User.ID, "role", string(sess.Role()))
		c.JSON(http.StatusOK, viewOf(sess))
	}
}

// POST /api/auth/logout
func LogoutHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionOf(c)
		if sess != nil {
			if err := w.Backend.Logout(c.Request.Context(), sess.BackendToken); err != nil {
				w.Logger.Warn("backend logout failed", "error", err)
			}
			if err := w.Sessions.Delete(c.Request.Context(), sess.ID); err != nil {
				w.Logger.Warn("session delete failed", "error", err)
			}
			w.DropSession(sess.ID)
		}
		w.clearSessionCookie(c)
		c.Status(http.StatusNoContent)
	}
}

// GET /api/auth/me: пользователь сессии, обновлённый с бэкенда.
func MeHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionOf(c)
		user, err := w.Backend.Me(c.Request.Context(), sess.BackendToken)
		switch {
		case backend.IsUnauthorized(err):
			// токен бэкенда истёк раньше сессии консоли
			_ = w.Sessions.Delete(c.Request.Context(), sess.ID)
			w.DropSession(sess.ID)
			w.clearSessionCookie(c)
			w.abort(c, http.StatusUnauthorized, CodeLoginRequired, i18n.MsgLoginRequired)
			return
		case err != nil:
			w.fail(c, err, failMsgs{Failed: i18n.MsgUserLoadFailed})
			return
		}
		sess.User = user
		if user.MustChangePassword {
			sess.MustChangePassword = true
		}
		if err := w.Sessions.Put(c.Request.Context(), sess); err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		c.JSON(http.StatusOK, viewOf(sess))
	}
}

// POST /api/auth/change-password
func ChangePasswordHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessionOf(c)
		var in changePasswordInput
		if !w.bind(c, &in) {
			return
		}
		// при принудительной смене текущий пароль не спрашивается
		if !sess.MustChangePassword && (in.CurrentPassword == nil || *in.CurrentPassword == "") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"errors": []FieldError{ferr(ErrRequired, "currentPassword", w.tr(c, i18n.MsgRequired))},
			})
			return
		}
		err := w.Backend.ChangePassword(c.Request.Context(), sess.BackendToken, backend.ChangePasswordRequest{
			CurrentPassword: in.CurrentPassword,
			NewPassword:     in.NewPassword,
		})
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			w.abort(c, http.StatusBadRequest, CodeBadRequest, i18n.MsgPasswordChangeFailed)
			return
		}
		if err != nil {
			w.fail(c, err, failMsgs{Failed: i18n.MsgPasswordChangeFailed})
			return
		}

		sess.MustChangePassword = false
		sess.User.MustChangePassword = false
		if err := w.Sessions.Put(c.Request.Context(), sess); err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": w.tr(c, i18n.MsgPasswordChanged), "session": viewOf(sess)})
	}
}

package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/backend"
	"scoutadmin/internal/i18n"
)

var userMsgs = failMsgs{Failed: i18n.MsgUserLoadFailed}

// GET /api/users
func UserListHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := w.Backend.Users().List(c.Request.Context(), tokenOf(c), nil)
		if err != nil {
			w.fail(c, err, userMsgs)
			return
		}
		respondPage(c, users)
	}
}

// GET /api/users/counts
func UserCountsHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := w.Backend.UserCounts(c.Request.Context(), tokenOf(c))
		if err != nil {
			w.fail(c, err, userMsgs)
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}

func UserGetHandler(w *Workspace) gin.HandlerFunc {
	return getHandler(w, w.Backend.Users(), userMsgs)
}

// POST /api/users: новый администратор; пароль меняется при первом входе.
func UserCreateHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in createUserInput
		if !w.bind(c, &in) {
			return
		}
		u, err := w.Backend.CreateUser(c.Request.Context(), tokenOf(c), backend.CreateUserRequest{
			FirstName:        strings.TrimSpace(in.FirstName),
			LastName:         strings.TrimSpace(in.LastName),
			Email:            strings.TrimSpace(in.Email),
			Password:         in.Password,
			SendNotification: in.SendNotification,
		})
		if err != nil {
			w.fail(c, err, failMsgs{Failed: i18n.MsgUserCreateFailed})
			return
		}
		w.Logger.Info("console user created", "user_id", u.ID, "by", sessionOf(c).User.ID)
		c.JSON(http.StatusCreated, u)
	}
}

// PUT /api/users/:id
func UserUpdateHandler(w *Workspace) gin.HandlerFunc {
	return updateHandler(w, w.Backend.Users(), func(in updateUserInput) backend.User {
		return backend.User{
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Email:     strings.TrimSpace(in.Email),
			Role:      in.Role,
		}
	}, failMsgs{Failed: i18n.MsgUserUpdateFailed})
}

// DELETE /api/users/:id: себя удалить нельзя.
func UserDeleteHandler(w *Workspace) gin.HandlerFunc {
	del := deleteHandler(w, w.Backend.Users(), failMsgs{Failed: i18n.MsgUserUpdateFailed})
	return func(c *gin.Context) {
		if w.isSelf(c) {
			return
		}
		del(c)
	}
}

// PUT /api/users/:id/lock {locked}
func UserLockHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok || w.isSelf(c) {
			return
		}
		var in lockInput
		if !w.bind(c, &in) {
			return
		}
		u, err := w.Backend.LockUser(c.Request.Context(), tokenOf(c), id, in.Locked)
		if err != nil {
			w.fail(c, err, failMsgs{Failed: i18n.MsgUserUpdateFailed})
			return
		}
		w.Logger.Info("console user lock changed", "user_id", id, "locked", in.Locked)
		c.JSON(http.StatusOK, u)
	}
}

// POST /api/users/:id/reset-password: бэкенд возвращает временный пароль.
func UserResetPasswordHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		out, err := w.Backend.ResetPassword(c.Request.Context(), tokenOf(c), id)
		if err != nil {
			w.fail(c, err, failMsgs{Failed: i18n.MsgUserUpdateFailed})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// isSelf отвечает 409, если запрос направлен на пользователя текущей сессии.
func (w *Workspace) isSelf(c *gin.Context) bool {
	id, err := parseID(c.Param("id"))
	if err != nil || sessionOf(c).User.ID != id {
		return false
	}
	w.abort(c, http.StatusConflict, CodeConflict, i18n.MsgForbidden)
	return true
}

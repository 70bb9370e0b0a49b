package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"scoutadmin/internal/auth"
	"scoutadmin/internal/backend"
	"scoutadmin/internal/catalog"
	"scoutadmin/internal/form"
	"scoutadmin/internal/i18n"
)

const (
	ctxLang    = "scoutadmin.lang"
	ctxSession = "scoutadmin.session"
)

// Коды ошибок в теле ответа.
const (
	CodeBadRequest             = "bad_request"
	CodeRowFull                = "row_full"
	CodeSaving                 = "saving"
	CodeLoading                = "loading"
	CodeNotFound               = "not_found"
	CodeConflict               = "conflict"
	CodeLoginRequired          = "login_required"
	CodeForbidden              = "forbidden"
	CodePasswordChangeRequired = "password_change_required"
	CodeAlreadyAuthenticated   = "already_authenticated"
	CodeBackend                = "backend_unavailable"
	CodeInvalidForm            = "invalid_form"
	CodeInternal               = "internal"
)

func langOf(c *gin.Context) language.Tag {
	if v, ok := c.Get(ctxLang); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return language.Swedish
}

func sessionOf(c *gin.Context) *auth.Session {
	if v, ok := c.Get(ctxSession); ok {
		if s, ok := v.(*auth.Session); ok {
			return s
		}
	}
	return nil
}

func (w *Workspace) tr(c *gin.Context, key string, args ...any) string {
	return w.I18n.T(langOf(c), key, args...)
}

func (w *Workspace) abort(c *gin.Context, status int, code, key string) {
	c.AbortWithStatusJSON(status, gin.H{"error": w.tr(c, key), "code": code})
}

// failMsgs: сообщения, зависящие от ресурса. Пустые поля берутся общими.
type failMsgs struct {
	NotFound string
	Conflict string
	Failed   string // ошибка бэкенда или сети
}

// fail переводит ошибку в HTTP-ответ.
func (w *Workspace) fail(c *gin.Context, err error, m failMsgs) {
	var lintErr *form.LintError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &lintErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  w.tr(c, i18n.MsgFormInvalid),
			"code":   CodeInvalidForm,
			"errors": issuesToFieldErrors(lintErr.Issues),
		})
	case errors.Is(err, form.ErrRowFull):
		w.abort(c, http.StatusUnprocessableEntity, CodeRowFull, i18n.MsgRowFull)
	case errors.Is(err, form.ErrSaving):
		w.abort(c, http.StatusConflict, CodeSaving, i18n.MsgSaving)
	case errors.Is(err, form.ErrLoading):
		w.abort(c, http.StatusConflict, CodeLoading, i18n.MsgLoading)
	case errors.Is(err, form.ErrRowNotFound):
		w.abort(c, http.StatusNotFound, "row_not_found", i18n.MsgRowNotFound)
	case errors.Is(err, form.ErrFieldNotFound):
		w.abort(c, http.StatusNotFound, "field_not_found", i18n.MsgFieldNotFound)
	case errors.Is(err, form.ErrIndexOutOfRange):
		w.abort(c, http.StatusBadRequest, "index_out_of_range", i18n.MsgIndexOutOfRange)
	case errors.Is(err, form.ErrNoSelection):
		w.abort(c, http.StatusConflict, "no_selection", i18n.MsgNoSelection)
	case errors.Is(err, form.ErrGroupTemplate), errors.Is(err, form.ErrNotGroup):
		w.abort(c, http.StatusBadRequest, "group_template", i18n.MsgGroupTemplate)
	case errors.Is(err, catalog.ErrUnknownTemplate):
		w.abort(c, http.StatusBadRequest, "template_unknown", i18n.MsgTemplateUnknown)
	case errors.Is(err, form.ErrUnknownIntent):
		w.abort(c, http.StatusBadRequest, CodeBadRequest, i18n.MsgBadRequest)
	case errors.Is(err, auth.ErrSessionNotFound):
		w.abort(c, http.StatusUnauthorized, CodeLoginRequired, i18n.MsgLoginRequired)
	case errors.As(err, &apiErr):
		w.failBackend(c, apiErr, m)
	default:
		w.Logger.Error("request failed", "path", c.FullPath(), "error", err)
		w.abort(c, http.StatusInternalServerError, CodeInternal, i18n.MsgUnexpected)
	}
}

func (w *Workspace) failBackend(c *gin.Context, e *backend.APIError, m failMsgs) {
	switch {
	case e.Status == http.StatusNotFound:
		w.abort(c, http.StatusNotFound, CodeNotFound, or(m.NotFound, i18n.MsgNotFound))
	case e.Status == http.StatusConflict:
		w.abort(c, http.StatusConflict, CodeConflict, or(m.Conflict, i18n.MsgConflict))
	case e.Status == http.StatusUnauthorized:
		w.abort(c, http.StatusUnauthorized, CodeLoginRequired, i18n.MsgLoginRequired)
	case e.Status == http.StatusForbidden:
		w.abort(c, http.StatusForbidden, CodeForbidden, i18n.MsgForbidden)
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		body := gin.H{"error": w.tr(c, i18n.MsgBadRequest), "code": CodeBadRequest}
		if e.Message != "" {
			body["details"] = e.Message
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
	default:
		w.Logger.Error("backend request failed",
			"method", e.Method, "path", e.Path, "status", e.Status, "error", e.Message)
		w.abort(c, http.StatusBadGateway, CodeBackend, or(m.Failed, i18n.MsgServer))
	}
}

func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// idParam читает положительный числовой параметр пути.
func (w *Workspace) idParam(c *gin.Context, name string) (int64, bool) {
	id, err := parseID(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"errors": []FieldError{ferr(ErrTypeMismatch, name, w.tr(c, i18n.MsgBadRequest))},
		})
		return 0, false
	}
	return id, true
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err == nil && id <= 0 {
		err = strconv.ErrRange
	}
	return id, err
}

func issuesToFieldErrors(issues []form.Issue) []FieldError {
	out := make([]FieldError, 0, len(issues))
	for _, is := range issues {
		field := is.Field
		if field == "" {
			field = is.Row
		}
		out = append(out, ferr(is.Code, field, is.Message))
	}
	return out
}

package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError: ответ бэкенда со статусом >= 400.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("backend %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Status возвращает HTTP-статус ошибки бэкенда или 0, если ошибка транспортная.
func Status(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func IsNotFound(err error) bool     { return Status(err) == http.StatusNotFound }
func IsConflict(err error) bool     { return Status(err) == http.StatusConflict }
func IsUnauthorized(err error) bool { return Status(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool    { return Status(err) == http.StatusForbidden }
func IsBadRequest(err error) bool   { return Status(err) == http.StatusBadRequest }

// IsUnavailable: транспортная ошибка или 5xx.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	s := Status(err)
	return s == 0 || s >= 500
}

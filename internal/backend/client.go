package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goto/salt/log"
)

// SessionCookie: cookie, в которой бэкенд ждёт токен сессии.
const SessionCookie = "SESSION_TOKEN"

// максимальный размер тела ответа об ошибке, который мы читаем
const maxErrorBody = 64 << 10

// Client: типизированный клиент REST-бэкенда регистраций.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger log.Logger
}

func New(baseURL string, timeout time.Duration, logger log.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url: unsupported scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = log.NewNoop()
	}
	return &Client{
		base:   u,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, token, method, path string, query url.Values, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, fmt.Errorf("backend %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Method:  req.Method,
			Path:    req.URL.Path,
			Message: errorMessage(io.LimitReader(resp.Body, maxErrorBody)),
		}
		if resp.StatusCode >= 500 {
			c.logger.Error("backend error", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		} else {
			c.logger.Debug("backend rejected request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		}
		return nil, apiErr
	}
	return resp, nil
}

// errorMessage достаёт текст из {"message": ...} или {"error": ...}; иначе отдаёт тело как есть.
func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(r)
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(b))
}

func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, in, out any) error {
	req, err := c.newRequest(ctx, token, method, path, query, in)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func idPath(parts ...any) string {
	ss := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case int64:
			ss[i] = strconv.FormatInt(v, 10)
		case string:
			ss[i] = url.PathEscape(v)
		default:
			ss[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(ss, "/")
}

// ===== Generic CRUD =====

// Resource: стандартный CRUD над одной коллекцией бэкенда.
type Resource[T any] struct {
	c    *Client
	path string
}

func (r Resource[T]) Path() string { return r.path }

func (r Resource[T]) List(ctx context.Context, token string, query url.Values) ([]T, error) {
	var out []T
	if err := r.c.do(ctx, token, http.MethodGet, r.path, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAt: GET по под-пути коллекции (фильтры бэкенда вида /event/{id}, /critical).
func (r Resource[T]) ListAt(ctx context.Context, token string, sub string, query url.Values) ([]T, error) {
	var out []T
	if err := r.c.do(ctx, token, http.MethodGet, r.path+"/"+sub, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r Resource[T]) Get(ctx context.Context, token string, id int64) (T, error) {
	var out T
	err := r.c.do(ctx, token, http.MethodGet, idPath(r.path, id), nil, nil, &out)
	return out, err
}

func (r Resource[T]) Create(ctx context.Context, token string, in T) (T, error) {
	var out T
	err := r.c.do(ctx, token, http.MethodPost, r.path, nil, in, &out)
	return out, err
}

func (r Resource[T]) Update(ctx context.Context, token string, id int64, in T) (T, error) {
	var out T
	err := r.c.do(ctx, token, http.MethodPut, idPath(r.path, id), nil, in, &out)
	return out, err
}

func (r Resource[T]) Delete(ctx context.Context, token string, id int64) error {
	return r.c.do(ctx, token, http.MethodDelete, idPath(r.path, id), nil, nil, nil)
}

func (c *Client) Events() Resource[Event]             { return Resource[Event]{c, "events"} }
func (c *Client) Participants() Resource[Participant] { return Resource[Participant]{c, "participants"} }
func (c *Client) Patrols() Resource[Patrol]           { return Resource[Patrol]{c, "patrols"} }
func (c *Client) Registrations() Resource[Registration] {
	return Resource[Registration]{c, "registrations"}
}
func (c *Client) Allergens() Resource[Allergen]        { return Resource[Allergen]{c, "allergens"} }
func (c *Client) Troops() Resource[Troop]              { return Resource[Troop]{c, "troops"} }
func (c *Client) FoodAllergies() Resource[FoodAllergy] { return Resource[FoodAllergy]{c, "food-allergies"} }
func (c *Client) Users() Resource[User]                { return Resource[User]{c, "users"} }

// ===== Auth =====

// Login возвращает ответ бэкенда; токен берётся из тела, а если его там нет, из Set-Cookie.
func (c *Client) Login(ctx context.Context, in LoginRequest) (LoginResponse, error) {
	var out LoginResponse
	req, err := c.newRequest(ctx, "", http.MethodPost, "auth/login", nil, in)
	if err != nil {
		return out, err
	}
	resp, err := c.send(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode login: %w", err)
	}
	if out.Token == "" {
		for _, ck := range resp.Cookies() {
			if ck.Name == SessionCookie {
				out.Token = ck.Value
			}
		}
	}
	if out.Token == "" {
		return out, &APIError{Status: http.StatusUnauthorized, Method: http.MethodPost, Path: req.URL.Path, Message: "no session token"}
	}
	if out.User.MustChangePassword {
		out.MustChangePassword = true
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, token, http.MethodPost, "auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	err := c.do(ctx, token, http.MethodGet, "auth/me", nil, nil, &out)
	return out, err
}

func (c *Client) ChangePassword(ctx context.Context, token string, in ChangePasswordRequest) error {
	return c.do(ctx, token, http.MethodPost, "auth/change-password", nil, in, nil)
}

// ===== Events / form fields =====

func (c *Client) PatchEvent(ctx context.Context, token string, id int64, patch EventPatch) (Event, error) {
	var out Event
	err := c.do(ctx, token, http.MethodPatch, idPath("events", id), nil, patch, &out)
	return out, err
}

func (c *Client) FormFields(ctx context.Context, token string, eventID int64) ([]FormField, error) {
	var out []FormField
	if err := c.do(ctx, token, http.MethodGet, idPath("events", eventID, "form", "fields"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveFormFields заменяет все поля формы и возвращает сохранённый бэкендом список.
func (c *Client) SaveFormFields(ctx context.Context, token string, eventID int64, fields []FormField) ([]FormField, error) {
	if fields == nil {
		fields = []FormField{}
	}
	var out []FormField
	if err := c.do(ctx, token, http.MethodPut, idPath("events", eventID, "form", "fields"), nil, fields, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ===== Participants / patrols =====

// ParticipantFilter: фильтры списка участников; применяется первый заданный.
type ParticipantFilter struct {
	PatrolID      int64
	EventID       int64
	Name          string
	MinorsOnly    bool
	WithAllergens bool
}

func (c *Client) FindParticipants(ctx context.Context, token string, f ParticipantFilter) ([]Participant, error) {
	r := c.Participants()
	switch {
	case f.PatrolID > 0:
		return r.ListAt(ctx, token, idPath("patrol", f.PatrolID), nil)
	case f.EventID > 0:
		return r.ListAt(ctx, token, idPath("event", f.EventID), nil)
	case f.Name != "":
		return r.ListAt(ctx, token, "search", url.Values{"name": {f.Name}})
	case f.MinorsOnly:
		return r.ListAt(ctx, token, "minors", nil)
	case f.WithAllergens:
		return r.ListAt(ctx, token, "with-allergens", nil)
	default:
		return r.List(ctx, token, nil)
	}
}

func (c *Client) SetParticipantAllergens(ctx context.Context, token string, id int64, allergenIDs []int64) (Participant, error) {
	if allergenIDs == nil {
		allergenIDs = []int64{}
	}
	var out Participant
	err := c.do(ctx, token, http.MethodPut, idPath("participants", id, "allergens"), nil, allergenIDs, &out)
	return out, err
}

func (c *Client) FindPatrols(ctx context.Context, token string, eventID int64, name string) ([]Patrol, error) {
	r := c.Patrols()
	switch {
	case eventID > 0:
		return r.ListAt(ctx, token, idPath("event", eventID), nil)
	case name != "":
		return r.ListAt(ctx, token, "search", url.Values{"name": {name}})
	default:
		return r.List(ctx, token, nil)
	}
}

// ===== Registrations =====

func (c *Client) RegistrationsByEvent(ctx context.Context, token string, eventID int64) ([]Registration, error) {
	return c.Registrations().ListAt(ctx, token, idPath("event", eventID), nil)
}

func (c *Client) RegistrationsByParticipant(ctx context.Context, token string, participantID int64) ([]Registration, error) {
	return c.Registrations().ListAt(ctx, token, idPath("participant", participantID), nil)
}

func (c *Client) ConfirmRegistration(ctx context.Context, token string, id int64) (Registration, error) {
	var out Registration
	err := c.do(ctx, token, http.MethodPut, idPath("registrations", id, "confirm"), nil, nil, &out)
	return out, err
}

func (c *Client) CancelRegistration(ctx context.Context, token string, id int64) (Registration, error) {
	var out Registration
	err := c.do(ctx, token, http.MethodPut, idPath("registrations", id, "cancel"), nil, nil, &out)
	return out, err
}

func (c *Client) UpdateRegistrationNotes(ctx context.Context, token string, id int64, notes string) (Registration, error) {
	var out Registration
	err := c.do(ctx, token, http.MethodPut, idPath("registrations", id, "notes"), nil, map[string]string{"notes": notes}, &out)
	return out, err
}

// ===== Allergens =====

func (c *Client) FindAllergens(ctx context.Context, token string, criticalOnly bool, severity, name string) ([]Allergen, error) {
	r := c.Allergens()
	switch {
	case criticalOnly:
		return r.ListAt(ctx, token, "critical", nil)
	case severity != "":
		return r.ListAt(ctx, token, idPath("severity", strings.ToUpper(severity)), nil)
	case name != "":
		return r.ListAt(ctx, token, "search", url.Values{"name": {name}})
	default:
		return r.List(ctx, token, nil)
	}
}

func (c *Client) AllergyReport(ctx context.Context, token string, eventID int64) (AllergyReport, error) {
	var out AllergyReport
	err := c.do(ctx, token, http.MethodGet, idPath("events", eventID, "allergy-report"), nil, nil, &out)
	return out, err
}

// ===== Users =====

func (c *Client) CreateUser(ctx context.Context, token string, in CreateUserRequest) (User, error) {
	var out User
	err := c.do(ctx, token, http.MethodPost, "users", nil, in, &out)
	return out, err
}

func (c *Client) UserCounts(ctx context.Context, token string) (UserCounts, error) {
	var out UserCounts
	err := c.do(ctx, token, http.MethodGet, "users/counts", nil, nil, &out)
	return out, err
}

func (c *Client) LockUser(ctx context.Context, token string, id int64, locked bool) (User, error) {
	var out User
	q := url.Values{"locked": {strconv.FormatBool(locked)}}
	err := c.do(ctx, token, http.MethodPut, idPath("users", id, "lock"), q, nil, &out)
	return out, err
}

func (c *Client) ResetPassword(ctx context.Context, token string, id int64) (ResetPasswordResponse, error) {
	var out ResetPasswordResponse
	err := c.do(ctx, token, http.MethodPost, idPath("users", id, "reset-password"), nil, nil, &out)
	return out, err
}

// ===== Exports =====

type ExportKind string

const (
	ExportRegistrations ExportKind = "registrations"
	ExportAllergyExcel  ExportKind = "allergy-excel"
	ExportAllergyCSV    ExportKind = "allergy-csv"
)

func (k ExportKind) path(eventID int64) (string, error) {
	switch k {
	case ExportRegistrations:
		return idPath("events", eventID, "registrations", "excel"), nil
	case ExportAllergyExcel:
		return idPath("events", eventID, "allergy-report", "excel"), nil
	case ExportAllergyCSV:
		return idPath("events", eventID, "allergy-report", "csv"), nil
	}
	return "", fmt.Errorf("unknown export %q", k)
}

// Export скачивает готовый файл, отрендеренный бэкендом.
func (c *Client) Export(ctx context.Context, token string, eventID int64, kind ExportKind) (Download, error) {
	path, err := kind.path(eventID)
	if err != nil {
		return Download{}, err
	}
	req, err := c.newRequest(ctx, token, http.MethodGet, path, nil, nil)
	if err != nil {
		return Download{}, err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.send(req)
	if err != nil {
		return Download{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, fmt.Errorf("read export: %w", err)
	}
	d := Download{ContentType: resp.Header.Get("Content-Type"), Body: body}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			d.Filename = params["filename"]
		}
	}
	return d, nil
}

// FormStore: хранилище полей формы от имени одной сессии.
type FormStore struct {
	c     *Client
	token string
}

func (c *Client) FormStore(token string) FormStore { return FormStore{c: c, token: token} }

func (s FormStore) LoadFields(ctx context.Context, eventID int64) ([]FormField, error) {
	return s.c.FormFields(ctx, s.token, eventID)
}

func (s FormStore) SaveFields(ctx context.Context, eventID int64, fields []FormField) ([]FormField, error) {
	return s.c.SaveFormFields(ctx, s.token, eventID, fields)
}

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutadmin/internal/catalog"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", 5*time.Second, log.NewNoop())
	require.NoError(t, err)
	return c
}

func TestFlexTime_BothRepresentations(t *testing.T) {
	cases := map[string]time.Time{
		`"2025-06-01T10:30:00"`:       time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		`"2025-06-01T10:30"`:          time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		`"2025-06-01"`:                time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		`"2025-06-01T10:30:00Z"`:      time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		`[2025,6,1,10,30]`:            time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		`[2025,6,1,10,30,15]`:         time.Date(2025, 6, 1, 10, 30, 15, 0, time.UTC),
		`[2025,6,1]`:                  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		`[2025,6,1,10,30,15,5000000]`: time.Date(2025, 6, 1, 10, 30, 15, 5000000, time.UTC),
	}
	for in, want := range cases {
		var f FlexTime
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.True(t, want.Equal(f.Time), "%s: got %s", in, f.Time)
	}

	var f FlexTime
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.True(t, f.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`[2025,13,1]`), &f))
	assert.Error(t, json.Unmarshal([]byte(`[2025,6]`), &f))
	assert.Error(t, json.Unmarshal([]byte(`[2025,2,31]`), &f))
	assert.Error(t, json.Unmarshal([]byte(`[2025,6,1,24,0]`), &f))
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &f))
	assert.Error(t, json.Unmarshal([]byte(`42`), &f))
}

func TestFlexTime_Marshal(t *testing.T) {
	b, err := json.Marshal(struct {
		At    FlexTime `json:"at"`
		Empty FlexTime `json:"empty"`
	}{At: NewFlexTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2025-01-02T03:04:05","empty":null}`, string(b))
	assert.Equal(t, "2025-01-02", NewFlexTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)).DateOnly())
}

func TestEvent_DecodesArrayDates(t *testing.T) {
	var ev Event
	body := `{"id":7,"name":"Sommarläger","startDate":[2025,7,1,9,0],"endDate":"2025-07-05T15:00:00","active":true,"registrationCount":3}`
	require.NoError(t, json.Unmarshal([]byte(body), &ev))
	assert.Equal(t, 2025, ev.StartDate.Year())
	assert.Equal(t, time.July, ev.StartDate.Month())
	assert.Equal(t, 5, ev.EndDate.Day())
}

func TestClient_ForwardsSessionCookie(t *testing.T) {
	var gotCookie, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if ck, err := r.Cookie(SessionCookie); err == nil {
			gotCookie = ck.Value
		}
		_ = json.NewEncoder(w).Encode(User{ID: 1, Email: "a@b.se", Role: RoleAdmin})
	})
	u, err := c.Me(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotCookie)
	assert.Equal(t, "/api/auth/me", gotPath)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestClient_ErrorMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/troops":
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"Troop already exists"}`)
		case "/api/events/9":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "boom")
		}
	})
	ctx := context.Background()

	_, err := c.Troops().Create(ctx, "t", Troop{Name: "Kåren"})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Troop already exists", ae.Message)

	_, err = c.Events().Get(ctx, "t", 9)
	assert.True(t, IsNotFound(err))

	_, err = c.UserCounts(ctx, "t")
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, http.StatusInternalServerError, Status(err))
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	c, err := New("http://127.0.0.1:1/api", 200*time.Millisecond, nil)
	require.NoError(t, err)
	_, err = c.Events().List(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, 0, Status(err))
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://x", time.Second, nil)
	assert.Error(t, err)
}

func TestClient_LoginTokenFromCookie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "admin@scout.se", in.Email)
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "from-cookie"})
		_, _ = io.WriteString(w, `{"user":{"id":1,"email":"admin@scout.se","role":"SUPERADMIN","mustChangePassword":true}}`)
	})
	resp, err := c.Login(context.Background(), LoginRequest{Email: "admin@scout.se", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", resp.Token)
	assert.True(t, resp.MustChangePassword)
	assert.Equal(t, RoleSuperAdmin, resp.User.Role)
}

func TestClient_SaveFormFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/events/4/form/fields", r.URL.Path)
		var in []FormField
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		for i := range in {
			id := int64(100 + i)
			in[i].ID = &id
		}
		_ = json.NewEncoder(w).Encode(in)
	})
	out, err := c.SaveFormFields(context.Background(), "t", 4, []FormField{
		{Label: "Förnamn", FieldType: catalog.FieldText, RowIndex: 0, ColPosition: 0, SortOrder: 0},
		{Label: "Efternamn", FieldType: catalog.FieldText, RowIndex: 0, ColPosition: 1, SortOrder: 1},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(101), *out[1].ID)
}

func TestClient_ParticipantFilters(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		_, _ = io.WriteString(w, `[]`)
	})
	ctx := context.Background()
	for _, f := range []ParticipantFilter{
		{PatrolID: 2}, {EventID: 3}, {Name: "Anna"}, {MinorsOnly: true}, {WithAllergens: true}, {},
	} {
		_, err := c.FindParticipants(ctx, "t", f)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{
		"/api/participants/patrol/2",
		"/api/participants/event/3",
		"/api/participants/search?name=Anna",
		"/api/participants/minors",
		"/api/participants/with-allergens",
		"/api/participants",
	}, paths)
}

func TestClient_Export(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events/5/allergy-report/csv", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="allergier.csv"`)
		_, _ = io.WriteString(w, "a;b\n")
	})
	d, err := c.Export(context.Background(), "t", 5, ExportAllergyCSV)
	require.NoError(t, err)
	assert.Equal(t, "allergier.csv", d.Filename)
	assert.Equal(t, "text/csv", d.ContentType)
	assert.Equal(t, "a;b\n", string(d.Body))

	_, err = c.Export(context.Background(), "t", 5, ExportKind("pdf"))
	assert.Error(t, err)
}

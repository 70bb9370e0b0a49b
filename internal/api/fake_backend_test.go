package api

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/backend"
)

type fakeAccount struct {
	password string
	user     backend.User
}

// fakeBackend: бэкенд регистраций в памяти; только то, что нужно тестам консоли.
type fakeBackend struct {
	mu         sync.Mutex
	accounts   map[string]fakeAccount
	tokens     map[string]string // token -> email
	events     map[int64]backend.Event
	fields     map[int64][]backend.FormField
	troops     []backend.Troop
	nextID     int64
	patchFails bool
	exportDown bool
	exports    int
	// fieldsGate, если задан, держит GET полей формы до закрытия; fieldsHit сообщает о входе
	fieldsGate chan struct{}
	fieldsHit  chan struct{}
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{
		accounts: map[string]fakeAccount{
			"admin@scout.se": {password: "secret1", user: backend.User{ID: 1, Email: "admin@scout.se", Role: backend.RoleAdmin}},
			"super@scout.se": {password: "secret1", user: backend.User{ID: 2, Email: "super@scout.se", Role: backend.RoleSuperAdmin}},
			"new@scout.se":   {password: "secret1", user: backend.User{ID: 3, Email: "new@scout.se", Role: backend.RoleAdmin, MustChangePassword: true}},
		},
		tokens: map[string]string{},
		events: map[int64]backend.Event{
			1: {ID: 1, Name: "Vårläger", Active: true},
			2: {ID: 2, Name: "Höstläger", Active: false},
			3: {ID: 3, Name: "Sommarläger", Active: true},
		},
		fields: map[int64][]backend.FormField{},
		nextID: 100,
	}
	srv := httptest.NewServer(fb.router())
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")

	api.POST("/auth/login", func(c *gin.Context) {
		var in backend.LoginRequest
		_ = c.ShouldBindJSON(&in)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		acc, ok := fb.accounts[in.Email]
		if !ok || acc.password != in.Password {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "bad credentials"})
			return
		}
		tok := "tok-" + strconv.FormatInt(acc.user.ID, 10) + "-" + strconv.Itoa(len(fb.tokens))
		fb.tokens[tok] = in.Email
		c.JSON(http.StatusOK, backend.LoginResponse{Token: tok, User: acc.user})
	})

	authed := api.Group("", fb.requireToken)
	authed.POST("/auth/logout", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	authed.GET("/auth/me", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		c.JSON(http.StatusOK, fb.accounts[c.GetString("email")].user)
	})
	authed.POST("/auth/change-password", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		email := c.GetString("email")
		acc := fb.accounts[email]
		acc.user.MustChangePassword = false
		fb.accounts[email] = acc
		c.Status(http.StatusNoContent)
	})

	authed.GET("/events", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		out := make([]backend.Event, 0, len(fb.events))
		for id := int64(1); id <= 3; id++ {
			if ev, ok := fb.events[id]; ok {
				out = append(out, ev)
			}
		}
		c.JSON(http.StatusOK, out)
	})
	authed.GET("/events/:id", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		ev, ok := fb.events[fakeID(c)]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "no such event"})
			return
		}
		c.JSON(http.StatusOK, ev)
	})
	authed.PATCH("/events/:id", func(c *gin.Context) {
		var patch backend.EventPatch
		_ = c.ShouldBindJSON(&patch)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if fb.patchFails {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "boom"})
			return
		}
		ev := fb.events[fakeID(c)]
		if patch.Active != nil {
			ev.Active = *patch.Active
		}
		ev.UpdatedAt = backend.FlexTime{Time: time.Now()}
		fb.events[ev.ID] = ev
		c.JSON(http.StatusOK, ev)
	})
	authed.GET("/events/:id/form/fields", func(c *gin.Context) {
		if fb.fieldsGate != nil {
			select {
			case fb.fieldsHit <- struct{}{}:
			default:
			}
			<-fb.fieldsGate
		}
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if _, ok := fb.events[fakeID(c)]; !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "no such event"})
			return
		}
		c.JSON(http.StatusOK, append([]backend.FormField{}, fb.fields[fakeID(c)]...))
	})
	authed.PUT("/events/:id/form/fields", func(c *gin.Context) {
		var in []backend.FormField
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		fb.mu.Lock()
		defer fb.mu.Unlock()
		for i := range in {
			if in[i].ID == nil {
				fb.nextID++
				id := fb.nextID
				in[i].ID = &id
			}
		}
		fb.fields[fakeID(c)] = in
		c.JSON(http.StatusOK, in)
	})
	authed.GET("/events/:id/registrations/excel", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		if fb.exportDown {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "down"})
			return
		}
		fb.exports++
		c.Header("Content-Disposition", `attachment; filename="registrations-1.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("xlsx-bytes"))
	})

	authed.GET("/troops", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		c.JSON(http.StatusOK, append([]backend.Troop{}, fb.troops...))
	})
	authed.POST("/troops", func(c *gin.Context) {
		var in backend.Troop
		_ = c.ShouldBindJSON(&in)
		fb.mu.Lock()
		defer fb.mu.Unlock()
		for _, t := range fb.troops {
			if strings.EqualFold(t.Name, in.Name) {
				c.JSON(http.StatusConflict, gin.H{"message": "exists"})
				return
			}
		}
		fb.nextID++
		in.ID = fb.nextID
		fb.troops = append(fb.troops, in)
		c.JSON(http.StatusCreated, in)
	})
	authed.DELETE("/participants/:id", func(c *gin.Context) {
		if fakeID(c) == 404 {
			c.JSON(http.StatusNotFound, gin.H{"message": "no such participant"})
			return
		}
		c.Status(http.StatusNoContent)
	})
	authed.GET("/users", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		users := make([]backend.User, 0, len(fb.accounts))
		for _, a := range fb.accounts {
			users = append(users, a.user)
		}
		c.JSON(http.StatusOK, users)
	})
	authed.DELETE("/users/:id", func(c *gin.Context) {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		for email, a := range fb.accounts {
			if a.user.ID == fakeID(c) {
				delete(fb.accounts, email)
				c.Status(http.StatusNoContent)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "no such user"})
	})
	return r
}

func (fb *fakeBackend) requireToken(c *gin.Context) {
	tok, err := c.Cookie(backend.SessionCookie)
	fb.mu.Lock()
	email, ok := fb.tokens[tok]
	fb.mu.Unlock()
	if err != nil || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unauthorized"})
		return
	}
	c.Set("email", email)
	c.Next()
}

func fakeID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

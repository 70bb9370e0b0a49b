// api/router.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/auth"
	"scoutadmin/internal/backend"
)

const shutdownTimeout = 10 * time.Second

// NewRouter собирает все маршруты консоли.
func NewRouter(w *Workspace) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(w))
	r.Use(w.languageMiddleware(), w.sessionMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/login", w.guard(auth.Guest), LoginHandler(w))
		authGroup.POST("/logout", w.guard(auth.Authenticated), LogoutHandler(w))
		authGroup.GET("/me", w.guard(auth.Authenticated), MeHandler(w))
		authGroup.POST("/change-password", w.guard(auth.Authenticated), ChangePasswordHandler(w))
	}

	admin := apiGroup.Group("", w.guard(auth.Admin))
	{
		admin.GET("/meta/templates", MetaTemplatesHandler(w))
		admin.GET("/meta/templates/:key", MetaTemplateHandler(w))

		// конструктор формы
		b := admin.Group("/builder/:eventId")
		b.GET("", BuilderOpenHandler(w))
		b.DELETE("", CloseBuilderHandler(w))
		b.GET("/ws", BuilderStreamHandler(w))
		b.POST("/rows", AddRowHandler(w))
		b.POST("/rows/move", MoveRowHandler(w))
		b.DELETE("/rows/:rowId", RemoveRowHandler(w))
		b.DELETE("/rows/:rowId/fields/:fieldKey", DeleteFieldHandler(w))
		b.POST("/drop", DropHandler(w))
		b.POST("/select", SelectHandler(w))
		b.DELETE("/select", ClearSelectionHandler(w))
		b.PATCH("/selected", UpdateSelectedHandler(w))
		b.POST("/selected/options", AddOptionHandler(w))
		b.PATCH("/selected/options/:index", UpdateOptionHandler(w))
		b.DELETE("/selected/options/:index", RemoveOptionHandler(w))
		b.POST("/preview", TogglePreviewHandler(w))
		b.POST("/preview/validate", ValidatePreviewHandler(w))
		b.GET("/lint", LintHandler(w))
		b.POST("/save", SaveHandler(w))
		b.POST("/reload", ReloadBuilderHandler(w))

		// события
		admin.GET("/events", EventListHandler(w))
		admin.POST("/events", EventCreateHandler(w))
		admin.GET("/events/:id", EventGetHandler(w))
		admin.PUT("/events/:id", EventUpdateHandler(w))
		admin.DELETE("/events/:id", EventDeleteHandler(w))
		admin.PATCH("/events/:id/active", EventActiveHandler(w))
		admin.GET("/events/:id/overview", EventOverviewHandler(w))
		admin.GET("/events/:id/registrations", RegistrationListHandler(w))
		admin.GET("/events/:id/allergy-report", AllergyReportHandler(w))
		admin.GET("/events/:id/exports", ExportListHandler(w))
		admin.GET("/events/:id/exports/:file", ExportHandler(w))

		admin.GET("/participants", ParticipantListHandler(w))
		admin.POST("/participants", ParticipantCreateHandler(w))
		admin.POST("/participants/_bulk_delete", ParticipantBulkDeleteHandler(w))
		admin.GET("/participants/:id", ParticipantGetHandler(w))
		admin.PUT("/participants/:id", ParticipantUpdateHandler(w))
		admin.DELETE("/participants/:id", ParticipantDeleteHandler(w))
		admin.PUT("/participants/:id/allergens", ParticipantAllergensHandler(w))
		admin.GET("/participants/:id/registrations", ParticipantRegistrationsHandler(w))

		admin.GET("/patrols", PatrolListHandler(w))
		admin.POST("/patrols", PatrolCreateHandler(w))
		admin.GET("/patrols/:id", PatrolGetHandler(w))
		admin.PUT("/patrols/:id", PatrolUpdateHandler(w))
		admin.DELETE("/patrols/:id", PatrolDeleteHandler(w))

		admin.POST("/registrations", RegistrationCreateHandler(w))
		admin.GET("/registrations/:id", RegistrationGetHandler(w))
		admin.PUT("/registrations/:id/confirm", RegistrationStatusHandler(w, backend.StatusConfirmed))
		admin.PUT("/registrations/:id/cancel", RegistrationStatusHandler(w, backend.StatusCancelled))
		admin.PUT("/registrations/:id/notes", RegistrationNotesHandler(w))
		admin.DELETE("/registrations/:id", RegistrationDeleteHandler(w))

		admin.GET("/allergens", AllergenListHandler(w))
		admin.POST("/allergens", AllergenCreateHandler(w))
		admin.GET("/allergens/:id", AllergenGetHandler(w))
		admin.PUT("/allergens/:id", AllergenUpdateHandler(w))
		admin.DELETE("/allergens/:id", AllergenDeleteHandler(w))

		for path, l := range map[string]interface {
			list(*Workspace) gin.HandlerFunc
			create(*Workspace) gin.HandlerFunc
			rename(*Workspace) gin.HandlerFunc
			remove(*Workspace) gin.HandlerFunc
		}{
			"/troops":         troops(w),
			"/food-allergies": foodAllergies(w),
		} {
			admin.GET(path, l.list(w))
			admin.POST(path, l.create(w))
			admin.PUT(path+"/:id", l.rename(w))
			admin.DELETE(path+"/:id", l.remove(w))
		}
	}

	super := apiGroup.Group("", w.guard(auth.SuperAdmin))
	{
		super.POST("/admin/catalog/reload", AdminReloadHandler(w))

		super.GET("/users", UserListHandler(w))
		super.GET("/users/counts", UserCountsHandler(w))
		super.POST("/users", UserCreateHandler(w))
		super.GET("/users/:id", UserGetHandler(w))
		super.PUT("/users/:id", UserUpdateHandler(w))
		super.DELETE("/users/:id", UserDeleteHandler(w))
		super.PUT("/users/:id/lock", UserLockHandler(w))
		super.POST("/users/:id/reset-password", UserResetPasswordHandler(w))
	}

	return r
}

// requestLogger пишет каждый запрос в логгер консоли.
func requestLogger(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		w.Logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}

// RunServer обслуживает консоль до отмены ctx, затем корректно останавливается.
func RunServer(ctx context.Context, addr string, w *Workspace) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(w),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		w.Logger.Info("console listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

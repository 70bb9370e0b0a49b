package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"scoutadmin/internal/backend"
	"scoutadmin/internal/i18n"
)

// bulkLimit: сколько удалений идёт на бэкенд одновременно.
const bulkLimit = 4

func tokenOf(c *gin.Context) string {
	if s := sessionOf(c); s != nil {
		return s.BackendToken
	}
	return ""
}

// ===== Общие обработчики ресурсов бэкенда =====

func getHandler[T any](w *Workspace, res backend.Resource[T], m failMsgs) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		out, err := res.Get(c.Request.Context(), tokenOf(c), id)
		if err != nil {
			w.fail(c, err, m)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func createHandler[In, T any](w *Workspace, res backend.Resource[T], conv func(In) T, m failMsgs) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if !w.bind(c, &in) {
			return
		}
		out, err := res.Create(c.Request.Context(), tokenOf(c), conv(in))
		if err != nil {
			w.fail(c, err, m)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

func updateHandler[In, T any](w *Workspace, res backend.Resource[T], conv func(In) T, m failMsgs) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		var in In
		if !w.bind(c, &in) {
			return
		}
		out, err := res.Update(c.Request.Context(), tokenOf(c), id, conv(in))
		if err != nil {
			w.fail(c, err, m)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func deleteHandler[T any](w *Workspace, res backend.Resource[T], m failMsgs) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		if err := res.Delete(c.Request.Context(), tokenOf(c), id); err != nil {
			w.fail(c, err, m)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type bulkResult struct {
	ID     int64        `json:"id"`
	Errors []FieldError `json:"errors,omitempty"`
}

// POST .../_bulk_delete {ids:[]}: 207 с результатом по каждому id.
func bulkDeleteHandler[T any](w *Workspace, res backend.Resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in idsInput
		if !w.bind(c, &in) {
			return
		}
		token := tokenOf(c)
		results := make([]bulkResult, len(in.IDs))
		g, ctx := errgroup.WithContext(c.Request.Context())
		g.SetLimit(bulkLimit)
		for i, id := range in.IDs {
			results[i].ID = id
			g.Go(func() error {
				if err := res.Delete(ctx, token, id); err != nil {
					results[i].Errors = []FieldError{bulkError(c, w, err)}
				}
				return nil
			})
		}
		_ = g.Wait()
		c.JSON(http.StatusMultiStatus, results)
	}
}

func bulkError(c *gin.Context, w *Workspace, err error) FieldError {
	switch {
	case backend.IsNotFound(err):
		return ferr(CodeNotFound, "id", w.tr(c, i18n.MsgNotFound))
	case backend.IsConflict(err):
		return ferr(CodeConflict, "id", w.tr(c, i18n.MsgConflict))
	default:
		return ferr(CodeBackend, "id", w.tr(c, i18n.MsgServer))
	}
}

func queryID(c *gin.Context, key string) int64 {
	id, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}

// ===== Events =====

var eventMsgs = failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgEventLoadFailed}

// GET /api/events: список с _sort/_limit/_offset/q. Отдаётся из кэша сессии, пока тот свежий;
// refresh=true идёт на бэкенд.
func EventListHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionOf(c).ID
		events, ok := w.cachedEvents(sid)
		if !ok || queryBool(c, "refresh") {
			var err error
			events, err = w.Backend.Events().List(c.Request.Context(), tokenOf(c), nil)
			if err != nil {
				w.fail(c, err, eventMsgs)
				return
			}
			w.storeEvents(sid, events)
		}
		respondPage(c, events, "refresh")
	}
}

// GET /api/events/:id
func EventGetHandler(w *Workspace) gin.HandlerFunc {
	return getHandler(w, w.Backend.Events(), eventMsgs)
}

// POST /api/events
func EventCreateHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in eventInput
		if !w.bind(c, &in) {
			return
		}
		ev, err := w.Backend.Events().Create(c.Request.Context(), tokenOf(c), in.toEvent())
		if err != nil {
			w.fail(c, err, failMsgs{Failed: i18n.MsgEventUpdateFailed})
			return
		}
		_ = w.EventCache(sessionOf(c).ID).Update(func(evs []backend.Event) ([]backend.Event, error) {
			return append(evs, ev), nil
		})
		c.JSON(http.StatusCreated, ev)
	}
}

// PUT /api/events/:id
func EventUpdateHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		var in eventInput
		if !w.bind(c, &in) {
			return
		}
		ev, err := w.Backend.Events().Update(c.Request.Context(), tokenOf(c), id, in.toEvent())
		if err != nil {
			w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgEventUpdateFailed})
			return
		}
		w.replaceCachedEvent(sessionOf(c).ID, ev)
		c.JSON(http.StatusOK, ev)
	}
}

func (w *Workspace) replaceCachedEvent(sessionID string, ev backend.Event) {
	_ = w.EventCache(sessionID).Update(func(evs []backend.Event) ([]backend.Event, error) {
		for i := range evs {
			if evs[i].ID == ev.ID {
				evs[i] = ev
			}
		}
		return evs, nil
	})
}

// PATCH /api/events/:id/active: переключение активности. Кэш сессии меняется сразу;
// если бэкенд отказал, кэш откатывается.
func EventActiveHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		var in activeInput
		if !w.bind(c, &in) {
			return
		}
		sess := sessionOf(c)
		cache := w.EventCache(sess.ID)
		active := *in.Active

		var (
			updated  backend.Event
			previous = map[int64]bool{}
		)
		err := cache.Optimistic(c.Request.Context(),
			func(evs []backend.Event) []backend.Event {
				for i := range evs {
					if evs[i].ID == id {
						previous[id] = evs[i].Active
						evs[i].Active = active
					}
				}
				return evs
			},
			// откатывается только это событие; остальной кэш не трогаем
			func(evs []backend.Event) []backend.Event {
				for i := range evs {
					if was, ok := previous[evs[i].ID]; ok {
						evs[i].Active = was
					}
				}
				return evs
			},
			func(ctx context.Context) error {
				ev, err := w.Backend.PatchEvent(ctx, sess.BackendToken, id, backend.EventPatch{Active: &active})
				updated = ev
				return err
			})
		if err != nil {
			w.Logger.Warn("event status change rolled back", "event_id", id, "active", active, "error", err)
			w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgEventStatusFailed})
			return
		}
		w.replaceCachedEvent(sess.ID, updated)

		msg := i18n.MsgEventDeactivated
		if updated.Active {
			msg = i18n.MsgEventActivated
		}
		c.JSON(http.StatusOK, gin.H{"message": w.tr(c, msg), "event": updated})
	}
}

// DELETE /api/events/:id: заодно закрывает конструктор формы этого события.
func EventDeleteHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		sess := sessionOf(c)
		if err := w.Backend.Events().Delete(c.Request.Context(), sess.BackendToken, id); err != nil {
			w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgEventDeleteFailed})
			return
		}
		w.CloseBuilder(sess.ID, id)
		_ = w.EventCache(sess.ID).Update(func(evs []backend.Event) ([]backend.Event, error) {
			out := evs[:0]
			for _, ev := range evs {
				if ev.ID != id {
					out = append(out, ev)
				}
			}
			return out, nil
		})
		c.Status(http.StatusNoContent)
	}
}

// eventOverview: сводка события для первой страницы.
type eventOverview struct {
	Event         backend.Event                      `json:"event"`
	Registrations []backend.Registration             `json:"registrations"`
	Patrols       []backend.Patrol                   `json:"patrols"`
	Allergies     backend.AllergyReport              `json:"allergyReport"`
	ByStatus      map[backend.RegistrationStatus]int `json:"registrationsByStatus"`
}

// GET /api/events/:id/overview: четыре запроса к бэкенду параллельно.
func EventOverviewHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		token := tokenOf(c)
		var out eventOverview
		g, ctx := errgroup.WithContext(c.Request.Context())
		g.Go(func() (err error) {
			out.Event, err = w.Backend.Events().Get(ctx, token, id)
			return err
		})
		g.Go(func() (err error) {
			out.Registrations, err = w.Backend.RegistrationsByEvent(ctx, token, id)
			return err
		})
		g.Go(func() (err error) {
			out.Patrols, err = w.Backend.FindPatrols(ctx, token, id, "")
			return err
		})
		g.Go(func() (err error) {
			out.Allergies, err = w.Backend.AllergyReport(ctx, token, id)
			return err
		})
		if err := g.Wait(); err != nil {
			w.fail(c, err, eventMsgs)
			return
		}
		out.ByStatus = map[backend.RegistrationStatus]int{}
		for _, r := range out.Registrations {
			out.ByStatus[r.Status]++
		}
		c.JSON(http.StatusOK, out)
	}
}

// ===== Participants =====

var participantMsgs = failMsgs{Failed: i18n.MsgParticipantLoadFailed}

// GET /api/participants?patrolId=&eventId=&name=&minors=&withAllergens=
func ParticipantListHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := backend.ParticipantFilter{
			PatrolID:      queryID(c, "patrolId"),
			EventID:       queryID(c, "eventId"),
			Name:          strings.TrimSpace(c.Query("name")),
			MinorsOnly:    queryBool(c, "minors"),
			WithAllergens: queryBool(c, "withAllergens"),
		}
		list, err := w.Backend.FindParticipants(c.Request.Context(), tokenOf(c), f)
		if err != nil {
			w.fail(c, err, participantMsgs)
			return
		}
		respondPage(c, list, "patrolId", "eventId", "name", "minors", "withAllergens")
	}
}

func ParticipantGetHandler(w *Workspace) gin.HandlerFunc {
	return getHandler(w, w.Backend.Participants(), participantMsgs)
}

func ParticipantCreateHandler(w *Workspace) gin.HandlerFunc {
	return createHandler(w, w.Backend.Participants(), participantInput.toParticipant, failMsgs{})
}

func ParticipantUpdateHandler(w *Workspace) gin.HandlerFunc {
	return updateHandler(w, w.Backend.Participants(), participantInput.toParticipant, failMsgs{})
}

func ParticipantDeleteHandler(w *Workspace) gin.HandlerFunc {
	return deleteHandler(w, w.Backend.Participants(), failMsgs{})
}

func ParticipantBulkDeleteHandler(w *Workspace) gin.HandlerFunc {
	return bulkDeleteHandler(w, w.Backend.Participants())
}

// PUT /api/participants/:id/allergens {allergenIds:[]}
func ParticipantAllergensHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		var in allergensInput
		if !w.bind(c, &in) {
			return
		}
		p, err := w.Backend.SetParticipantAllergens(c.Request.Context(), tokenOf(c), id, in.AllergenIDs)
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// GET /api/participants/:id/registrations
func ParticipantRegistrationsHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		list, err := w.Backend.RegistrationsByParticipant(c.Request.Context(), tokenOf(c), id)
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		respondPage(c, list)
	}
}

// ===== Patrols =====

// GET /api/patrols?eventId=&name=
func PatrolListHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := w.Backend.FindPatrols(c.Request.Context(), tokenOf(c), queryID(c, "eventId"), strings.TrimSpace(c.Query("name")))
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		respondPage(c, list, "eventId", "name")
	}
}

func PatrolGetHandler(w *Workspace) gin.HandlerFunc {
	return getHandler(w, w.Backend.Patrols(), failMsgs{})
}

func PatrolCreateHandler(w *Workspace) gin.HandlerFunc {
	return createHandler(w, w.Backend.Patrols(), patrolInput.toPatrol, failMsgs{})
}

func PatrolUpdateHandler(w *Workspace) gin.HandlerFunc {
	return updateHandler(w, w.Backend.Patrols(), patrolInput.toPatrol, failMsgs{})
}

func PatrolDeleteHandler(w *Workspace) gin.HandlerFunc {
	return deleteHandler(w, w.Backend.Patrols(), failMsgs{})
}

// ===== Registrations =====

// GET /api/events/:id/registrations
func RegistrationListHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		list, err := w.Backend.RegistrationsByEvent(c.Request.Context(), tokenOf(c), id)
		if err != nil {
			w.fail(c, err, eventMsgs)
			return
		}
		respondPage(c, list)
	}
}

func RegistrationGetHandler(w *Workspace) gin.HandlerFunc {
	return getHandler(w, w.Backend.Registrations(), failMsgs{})
}

// POST /api/registrations
func RegistrationCreateHandler(w *Workspace) gin.HandlerFunc {
	return createHandler(w, w.Backend.Registrations(), func(in registrationInput) backend.Registration {
		return backend.Registration{EventID: in.EventID, ParticipantID: in.ParticipantID, Notes: in.Notes}
	}, failMsgs{})
}

// PUT /api/registrations/:id/confirm, /cancel
func RegistrationStatusHandler(w *Workspace, status backend.RegistrationStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		var (
			reg backend.Registration
			err error
			msg string
		)
		if status == backend.StatusCancelled {
			reg, err = w.Backend.CancelRegistration(c.Request.Context(), tokenOf(c), id)
			msg = i18n.MsgRegistrationCancelled
		} else {
			reg, err = w.Backend.ConfirmRegistration(c.Request.Context(), tokenOf(c), id)
			msg = i18n.MsgRegistrationConfirmed
		}
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": w.tr(c, msg), "registration": reg})
	}
}

// PUT /api/registrations/:id/notes
func RegistrationNotesHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		var in notesInput
		if !w.bind(c, &in) {
			return
		}
		reg, err := w.Backend.UpdateRegistrationNotes(c.Request.Context(), tokenOf(c), id, in.Notes)
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		c.JSON(http.StatusOK, reg)
	}
}

func RegistrationDeleteHandler(w *Workspace) gin.HandlerFunc {
	return deleteHandler(w, w.Backend.Registrations(), failMsgs{})
}

// ===== Allergens =====

// GET /api/allergens?critical=&severity=&name=
func AllergenListHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := w.Backend.FindAllergens(c.Request.Context(), tokenOf(c),
			queryBool(c, "critical"), c.Query("severity"), strings.TrimSpace(c.Query("name")))
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		respondPage(c, list, "critical", "severity", "name")
	}
}

func AllergenGetHandler(w *Workspace) gin.HandlerFunc {
	return getHandler(w, w.Backend.Allergens(), failMsgs{})
}

func AllergenCreateHandler(w *Workspace) gin.HandlerFunc {
	return createHandler(w, w.Backend.Allergens(), allergenInput.toAllergen, failMsgs{})
}

func AllergenUpdateHandler(w *Workspace) gin.HandlerFunc {
	return updateHandler(w, w.Backend.Allergens(), allergenInput.toAllergen, failMsgs{})
}

func AllergenDeleteHandler(w *Workspace) gin.HandlerFunc {
	return deleteHandler(w, w.Backend.Allergens(), failMsgs{})
}

// GET /api/events/:id/allergy-report
func AllergyReportHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		rep, err := w.Backend.AllergyReport(c.Request.Context(), tokenOf(c), id)
		if err != nil {
			w.fail(c, err, eventMsgs)
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

// ===== Справочники: отряды и пищевые аллергии =====

// nameList обслуживает справочник из одних имён: список, создание, переименование, удаление.
// Конфликт имени на бэкенде: «уже существует».
type nameList[T any] struct {
	res  backend.Resource[T]
	conv func(nameInput) T
	msgs failMsgs
}

func (l nameList[T]) list(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := l.res.List(c.Request.Context(), tokenOf(c), nil)
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		respondPage(c, items)
	}
}

func (l nameList[T]) create(w *Workspace) gin.HandlerFunc {
	return createHandler(w, l.res, l.conv, l.msgs)
}

func (l nameList[T]) rename(w *Workspace) gin.HandlerFunc {
	return updateHandler(w, l.res, l.conv, l.msgs)
}

func (l nameList[T]) remove(w *Workspace) gin.HandlerFunc {
	return deleteHandler(w, l.res, failMsgs{})
}

func troops(w *Workspace) nameList[backend.Troop] {
	return nameList[backend.Troop]{
		res: w.Backend.Troops(),
		conv: func(in nameInput) backend.Troop {
			return backend.Troop{Name: strings.TrimSpace(in.Name), SortOrder: in.SortOrder}
		},
		msgs: failMsgs{Conflict: i18n.MsgTroopExists, Failed: i18n.MsgTroopCreateFailed},
	}
}

func foodAllergies(w *Workspace) nameList[backend.FoodAllergy] {
	return nameList[backend.FoodAllergy]{
		res: w.Backend.FoodAllergies(),
		conv: func(in nameInput) backend.FoodAllergy {
			return backend.FoodAllergy{Name: strings.TrimSpace(in.Name), SortOrder: in.SortOrder}
		},
		msgs: failMsgs{Conflict: i18n.MsgFoodAllergyExists, Failed: i18n.MsgFoodAllergyCreateFailed},
	}
}

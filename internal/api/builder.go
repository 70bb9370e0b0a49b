package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/form"
	"scoutadmin/internal/i18n"
)

// openBuilder возвращает конструктор события для сессии; новый загружается с бэкенда.
func (w *Workspace) openBuilder(c *gin.Context) (*form.Builder, bool) {
	eventID, ok := w.idParam(c, "eventId")
	if !ok {
		return nil, false
	}
	sess := sessionOf(c)
	b, _ := w.Builder(sess, eventID)
	if !b.Loaded() {
		// второй запрос той же сессии ждёт ту же загрузку, а не работает с пустым холстом
		if err := w.LoadBuilder(c.Request.Context(), sess.ID, b); err != nil {
			if !b.Loaded() {
				w.discardBuilder(sess.ID, b)
			}
			w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgFieldsLoadFailed})
			return nil, false
		}
	}
	return b, true
}

// GET /api/builder/:eventId: событие и состояние конструктора.
func BuilderOpenHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := w.idParam(c, "eventId")
		if !ok {
			return
		}
		sess := sessionOf(c)
		ev, err := w.Backend.Events().Get(c.Request.Context(), sess.BackendToken, eventID)
		if err != nil {
			w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgEventLoadFailed})
			return
		}
		b, ok := w.openBuilder(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"event": ev, "builder": b.Snapshot()})
	}
}

// builderAction: обработчик поверх открытого конструктора; ответ, свежий снимок.
func builderAction(w *Workspace, status int, fn func(c *gin.Context, b *form.Builder) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := w.openBuilder(c)
		if !ok {
			return
		}
		if err := fn(c, b); err != nil {
			if !c.IsAborted() {
				w.fail(c, err, failMsgs{})
			}
			return
		}
		if !c.IsAborted() {
			c.JSON(status, b.Snapshot())
		}
	}
}

// POST /api/builder/:eventId/rows
func AddRowHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusCreated, func(c *gin.Context, b *form.Builder) error {
		_, err := b.AddRow()
		return err
	})
}

// DELETE /api/builder/:eventId/rows/:rowId
func RemoveRowHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		return b.RemoveRow(c.Param("rowId"))
	})
}

type moveRowReq struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// POST /api/builder/:eventId/rows/move
func MoveRowHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		var req moveRowReq
		if !w.bind(c, &req) {
			return nil
		}
		return b.MoveRow(req.From, req.To)
	})
}

type dropReq struct {
	Kind      form.IntentKind `json:"kind" validate:"required,oneof=reorder transfer instantiate"`
	FromRow   string          `json:"fromRow"`
	FromIndex int             `json:"fromIndex"`
	ToRow     string          `json:"toRow"`
	ToIndex   int             `json:"toIndex"`
	Template  string          `json:"template" validate:"required_if=Kind instantiate"`
}

// POST /api/builder/:eventId/drop: одно перетаскивание.
func DropHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := w.openBuilder(c)
		if !ok {
			return
		}
		var req dropReq
		if !w.bind(c, &req) {
			return
		}
		var (
			out form.Outcome
			err error
		)
		if req.Kind == form.IntentInstantiate {
			out, err = b.DropTemplate(req.Template, req.ToRow, req.ToIndex)
		} else {
			out, err = b.Drop(form.Intent{
				Kind:      req.Kind,
				FromRow:   req.FromRow,
				FromIndex: req.FromIndex,
				ToRow:     req.ToRow,
				ToIndex:   req.ToIndex,
			})
		}
		if err != nil {
			w.fail(c, err, failMsgs{})
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcome": out, "builder": b.Snapshot()})
	}
}

// DELETE /api/builder/:eventId/rows/:rowId/fields/:fieldKey
func DeleteFieldHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		_, err := b.DeleteField(c.Param("rowId"), form.ParseFieldKey(c.Param("fieldKey")))
		return err
	})
}

type selectReq struct {
	RowID string `json:"rowId"`
	Field string `json:"field" validate:"required"`
}

// POST /api/builder/:eventId/select
func SelectHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		var req selectReq
		if !w.bind(c, &req) {
			return nil
		}
		_, err := b.Select(req.RowID, form.ParseFieldKey(req.Field))
		return err
	})
}

// DELETE /api/builder/:eventId/select
func ClearSelectionHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		b.ClearSelection()
		return nil
	})
}

// PATCH /api/builder/:eventId/selected
func UpdateSelectedHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		var p form.Patch
		if !w.bind(c, &p) {
			return nil
		}
		_, err := b.UpdateSelected(p)
		return err
	})
}

// POST /api/builder/:eventId/selected/options
func AddOptionHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusCreated, func(c *gin.Context, b *form.Builder) error {
		_, err := b.AddOption()
		return err
	})
}

func optionIndex(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		return 0, form.ErrIndexOutOfRange
	}
	return i, nil
}

// PATCH /api/builder/:eventId/selected/options/:index
func UpdateOptionHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		i, err := optionIndex(c)
		if err != nil {
			return err
		}
		var p form.OptionPatch
		if !w.bind(c, &p) {
			return nil
		}
		_, err = b.UpdateOption(i, p)
		return err
	})
}

// DELETE /api/builder/:eventId/selected/options/:index
func RemoveOptionHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		i, err := optionIndex(c)
		if err != nil {
			return err
		}
		_, err = b.RemoveOption(i)
		return err
	})
}

// POST /api/builder/:eventId/preview: переключение предпросмотра.
func TogglePreviewHandler(w *Workspace) gin.HandlerFunc {
	return builderAction(w, http.StatusOK, func(c *gin.Context, b *form.Builder) error {
		b.TogglePreview()
		return nil
	})
}

type answersReq struct {
	Answers map[string]any `json:"answers"`
}

// POST /api/builder/:eventId/preview/validate: ответы проверяются локально, на бэкенд не уходят.
func ValidatePreviewHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := w.openBuilder(c)
		if !ok {
			return
		}
		var req answersReq
		if !w.bind(c, &req) {
			return
		}
		errs := ValidateAnswers(b.Snapshot().Rows, req.Answers, func(key string, args ...any) string {
			return w.tr(c, key, args...)
		})
		if len(errs) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GET /api/builder/:eventId/lint
func LintHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := w.openBuilder(c)
		if !ok {
			return
		}
		issues := b.Lint()
		if issues == nil {
			issues = []form.Issue{}
		}
		c.JSON(http.StatusOK, gin.H{"issues": issues, "blocking": len(form.Blocking(issues))})
	}
}

// POST /api/builder/:eventId/save
func SaveHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, ok := w.openBuilder(c)
		if !ok {
			return
		}
		snap, err := b.Save(c.Request.Context())
		if err != nil {
			w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgSaveFailed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": w.tr(c, i18n.MsgFormSaved), "builder": snap})
	}
}

// POST /api/builder/:eventId/reload: отбросить несохранённое и загрузить заново.
func ReloadBuilderHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, created := w.openBuilderFresh(c)
		if b == nil {
			return
		}
		if !created {
			if err := w.LoadBuilder(c.Request.Context(), sessionOf(c).ID, b); err != nil {
				w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgFieldsLoadFailed})
				return
			}
		}
		c.JSON(http.StatusOK, b.Snapshot())
	}
}

// openBuilderFresh: как openBuilder, но сообщает, был ли конструктор только что загружен.
func (w *Workspace) openBuilderFresh(c *gin.Context) (*form.Builder, bool) {
	eventID, ok := w.idParam(c, "eventId")
	if !ok {
		return nil, false
	}
	if b, ok := w.OpenBuilder(sessionOf(c).ID, eventID); ok {
		return b, false
	}
	b, ok := w.openBuilder(c)
	if !ok {
		return nil, false
	}
	return b, true
}

// DELETE /api/builder/:eventId: закрыть конструктор.
func CloseBuilderHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := w.idParam(c, "eventId")
		if !ok {
			return
		}
		w.CloseBuilder(sessionOf(c).ID, eventID)
		c.Status(http.StatusNoContent)
	}
}

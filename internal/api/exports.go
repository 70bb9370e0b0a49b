package api

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/backend"
	"scoutadmin/internal/i18n"
)

// maxExportsPerKind: сколько последних выгрузок одного вида хранится на событие.
const maxExportsPerKind = 5

// ExportEntry: выгрузка, сохранённая в локальном кэше.
type ExportEntry struct {
	Kind        backend.ExportKind `json:"kind"`
	Filename    string             `json:"filename"`
	ContentType string             `json:"contentType"`
	BlobInfo
	CreatedAt time.Time `json:"createdAt"`
}

type exportIndex struct {
	mu      sync.Mutex
	byEvent map[int64][]ExportEntry
}

// add запоминает выгрузку и возвращает вытесненные записи.
func (x *exportIndex) add(eventID int64, e ExportEntry) []ExportEntry {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.byEvent == nil {
		x.byEvent = map[int64][]ExportEntry{}
	}
	list := append([]ExportEntry{e}, x.byEvent[eventID]...)
	var kept, evicted []ExportEntry
	perKind := map[backend.ExportKind]int{}
	for _, it := range list {
		perKind[it.Kind]++
		if perKind[it.Kind] > maxExportsPerKind {
			evicted = append(evicted, it)
			continue
		}
		kept = append(kept, it)
	}
	x.byEvent[eventID] = kept
	return evicted
}

// latest: последняя выгрузка вида kind.
func (x *exportIndex) latest(eventID int64, kind backend.ExportKind) (ExportEntry, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, it := range x.byEvent[eventID] {
		if it.Kind == kind {
			return it, true
		}
	}
	return ExportEntry{}, false
}

func (x *exportIndex) list(eventID int64) []ExportEntry {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := append([]ExportEntry{}, x.byEvent[eventID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// exportKindOf: registrations.xlsx, allergy-report.xlsx, allergy-report.csv.
func exportKindOf(file string) (backend.ExportKind, bool) {
	switch strings.ToLower(file) {
	case "registrations.xlsx":
		return backend.ExportRegistrations, true
	case "allergy-report.xlsx":
		return backend.ExportAllergyExcel, true
	case "allergy-report.csv":
		return backend.ExportAllergyCSV, true
	}
	return "", false
}

// GET /api/events/:id/exports/:file
// Выгрузка скачивается с бэкенда и кладётся в кэш. Если бэкенд недоступен,
// отдаётся последняя сохранённая копия с заголовком X-Export-Cached.
func ExportHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		kind, ok := exportKindOf(c.Param("file"))
		if !ok {
			w.abort(c, http.StatusNotFound, CodeNotFound, i18n.MsgNotFound)
			return
		}
		sess := sessionOf(c)

		dl, err := w.Backend.Export(c.Request.Context(), sess.BackendToken, eventID, kind)
		if err != nil {
			if backend.IsUnavailable(err) && w.serveCachedExport(c, eventID, kind) {
				w.Logger.Warn("export served from cache", "event_id", eventID, "kind", string(kind), "error", err)
				return
			}
			w.fail(c, err, failMsgs{NotFound: i18n.MsgEventNotFound, Failed: i18n.MsgExportFailed})
			return
		}

		if w.Blob != nil {
			now := w.now().UTC()
			key := fmt.Sprintf("events/%d/%s-%s", eventID, now.Format("20060102T150405.000"), dl.Filename)
			info, err := w.Blob.Put(key, bytes.NewReader(dl.Body))
			if err != nil {
				// кэш не обязателен для ответа
				w.Logger.Warn("export cache write failed", "event_id", eventID, "error", err)
			} else {
				evicted := w.exports.add(eventID, ExportEntry{
					Kind: kind, Filename: dl.Filename, ContentType: dl.ContentType, BlobInfo: info, CreatedAt: now,
				})
				for _, old := range evicted {
					if err := w.Blob.Delete(old.Key); err != nil {
						w.Logger.Warn("export cache evict failed", "key", old.Key, "error", err)
					}
				}
				c.Header("X-Content-SHA256", info.SHA256)
			}
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dl.Filename))
		c.Data(http.StatusOK, contentTypeOr(dl.ContentType), dl.Body)
	}
}

func (w *Workspace) serveCachedExport(c *gin.Context, eventID int64, kind backend.ExportKind) bool {
	if w.Blob == nil {
		return false
	}
	e, ok := w.exports.latest(eventID, kind)
	if !ok {
		return false
	}
	p, err := w.Blob.Path(e.Key)
	if err != nil {
		return false
	}
	c.Header("X-Export-Cached", "true")
	c.Header("X-Content-SHA256", e.SHA256)
	c.Header("Content-Type", contentTypeOr(e.ContentType))
	c.FileAttachment(p, e.Filename)
	return true
}

// GET /api/events/:id/exports
func ExportListHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := w.idParam(c, "id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, w.exports.list(eventID))
	}
}

func contentTypeOr(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

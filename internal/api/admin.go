package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/catalog"
	"scoutadmin/internal/i18n"
)

type reloadReq struct {
	TemplatesDir string `json:"templatesDir"` // каталог с *.yaml; пусто, настроенный или встроенный
}

// POST /api/admin/catalog/reload
// Новый каталог проверяется линтером и подменяется целиком. Уже открытые конструкторы
// продолжают работать со старым каталогом до повторного открытия.
func AdminReloadHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reloadReq
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				w.abort(c, http.StatusBadRequest, CodeBadRequest, i18n.MsgBadRequest)
				return
			}
		}

		dir := strings.TrimSpace(req.TemplatesDir)
		if dir == "" {
			dir = w.TemplatesDir
		}

		// 1) читаем новый каталог
		var (
			next *catalog.Catalog
			err  error
		)
		if dir == "" {
			next = catalog.Default()
		} else if next, err = catalog.Load(dir); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": w.tr(c, i18n.MsgCatalogInvalid), "details": err.Error()})
			return
		}

		// 2) линтер
		if issues := next.Lint(); len(issues) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        w.tr(c, i18n.MsgCatalogInvalid),
				"issues":       issues,
				"templatesDir": dir,
			})
			return
		}

		// 3) атомарная замена
		w.swapCatalog(next)
		w.Logger.Info("template catalog reloaded", "dir", dir, "templates", len(next.Templates()))

		c.JSON(http.StatusOK, gin.H{
			"ok":           true,
			"message":      w.tr(c, i18n.MsgCatalogReloaded),
			"templatesDir": dir,
			"base":         len(next.Base),
			"predefined":   len(next.Predefined),
		})
	}
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scoutadmin/internal/catalog"
	"scoutadmin/internal/form"
	"scoutadmin/internal/i18n"
)

// ===== META HANDLERS =====

type metaCatalog struct {
	Name       string                `json:"name"`
	Predefined []catalog.Description `json:"predefined"`
	Base       []catalog.Description `json:"base"`
}

// GET /api/meta/templates: библиотека полей: две вкладки, предопределённые первыми.
func MetaTemplatesHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat := w.Catalog()
		out := metaCatalog{
			Name:       cat.Name,
			Predefined: make([]catalog.Description, 0, len(cat.Predefined)),
			Base:       make([]catalog.Description, 0, len(cat.Base)),
		}
		for _, t := range cat.Templates() {
			d := t.Describe()
			if d.Predefined {
				out.Predefined = append(out.Predefined, d)
			} else {
				out.Base = append(out.Base, d)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaTemplate struct {
	catalog.Description
	Pattern string           `json:"validationPattern,omitempty"`
	Options []catalog.Option `json:"options,omitempty"`
	// Layout: строки группы с подписями полей.
	Layout [][]layoutField `json:"layout,omitempty"`
}

type layoutField struct {
	form.Field
	Icon string `json:"icon"`
}

// GET /api/meta/templates/:key
func MetaTemplateHandler(w *Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		tpl, err := w.Catalog().Lookup(c.Param("key"))
		if err != nil {
			w.abort(c, http.StatusNotFound, CodeNotFound, i18n.MsgTemplateUnknown)
			return
		}
		out := metaTemplate{Description: tpl.Describe()}
		if p, ok := tpl.(catalog.PredefinedTemplate); ok {
			out.Pattern = p.Pattern
			out.Options = p.Options
			if p.IsGroup() {
				rows, err := form.NewFactory(nil).ExpandGroup(p.Type)
				if err != nil {
					w.fail(c, err, failMsgs{})
					return
				}
				cat := w.Catalog()
				for _, row := range rows {
					line := make([]layoutField, 0, len(row))
					for _, f := range row {
						line = append(line, layoutField{Field: f, Icon: cat.Icon(f.Type, f.Predefined)})
					}
					out.Layout = append(out.Layout, line)
				}
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

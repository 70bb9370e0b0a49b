package form

import (
	"fmt"
	"regexp"
	"strings"

	"scoutadmin/internal/catalog"
)

type Issue struct {
	Row      string `json:"rowId"`
	Field    string `json:"field,omitempty"` // ключ поля
	Code     string `json:"code"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

// Lint проверяет холст перед сохранением. Блокирующие проблемы запрещают сохранение.
func Lint(rows []Row) []Issue {
	var issues []Issue
	for _, r := range rows {
		if r.Empty() {
			// пустые строки не сохраняются, но и не мешают
			issues = append(issues, Issue{Row: r.ID, Code: "row_empty", Message: "empty row is not persisted"})
			continue
		}
		if len(r.Fields) > MaxFieldsPerRow {
			issues = append(issues, Issue{
				Row:      r.ID,
				Code:     "row_over_capacity",
				Message:  fmt.Sprintf("row holds %d fields, max %d", len(r.Fields), MaxFieldsPerRow),
				Blocking: true,
			})
		}
		for _, f := range r.Fields {
			issues = append(issues, lintField(r.ID, f)...)
		}
	}
	return issues
}

func lintField(rowID string, f Field) []Issue {
	var issues []Issue
	add := func(code, msg string) {
		issues = append(issues, Issue{Row: rowID, Field: f.Key(), Code: code, Message: msg, Blocking: true})
	}

	if strings.TrimSpace(f.Label) == "" {
		add("label_empty", "field label is empty")
	}
	if !f.Type.Valid() {
		add("field_type_unknown", fmt.Sprintf("unknown field type %q", f.Type))
	}
	// выпадающий список без вариантов; Kår заполняется из справочника
	if f.Type.HasOptions() && len(f.Options) == 0 && f.Predefined != catalog.PredefinedTroop {
		add("options_empty", "select field has no options")
	}
	seen := map[string]bool{}
	for _, o := range f.Options {
		v := strings.TrimSpace(o.Value)
		if v == "" {
			add("option_value_empty", "option value is empty")
			continue
		}
		if seen[v] {
			add("option_value_duplicate", fmt.Sprintf("option value %q is used twice", v))
		}
		seen[v] = true
	}
	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			add("pattern_invalid", err.Error())
		}
	}
	if f.MaxLength < 0 {
		add("max_length_negative", "maxLength must be positive")
	}
	return issues
}

// Blocking отбирает блокирующие проблемы.
func Blocking(issues []Issue) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Blocking {
			out = append(out, is)
		}
	}
	return out
}

// catalog/lint.go
package catalog

import (
	"fmt"
	"regexp"
)

type Issue struct {
	Template string `json:"template"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Lint проверяет базовые противоречия в наборе шаблонов. Любая найденная проблема блокирующая.
func (c *Catalog) Lint() []Issue {
	var issues []Issue

	seenBase := map[FieldType]bool{}
	for _, b := range c.Base {
		if !b.Type.Valid() {
			issues = append(issues, Issue{
				Template: string(b.Type),
				Field:    "type",
				Code:     "field_type_unknown",
				Message:  fmt.Sprintf("unknown field type %q", b.Type),
			})
		}
		if seenBase[b.Type] {
			issues = append(issues, Issue{
				Template: string(b.Type),
				Field:    "type",
				Code:     "duplicate_template",
				Message:  "base template defined more than once",
			})
		}
		seenBase[b.Type] = true
	}

	seenPredef := map[PredefinedType]bool{}
	for _, p := range c.Predefined {
		key := string(p.Type)
		if p.Type == "" {
			issues = append(issues, Issue{Template: key, Field: "type", Code: "type_empty", Message: "predefined template has empty type"})
			continue
		}
		if seenPredef[p.Type] {
			issues = append(issues, Issue{
				Template: key,
				Field:    "type",
				Code:     "duplicate_template",
				Message:  "predefined template defined more than once",
			})
		}
		seenPredef[p.Type] = true

		if !p.FieldType.Valid() {
			issues = append(issues, Issue{
				Template: key,
				Field:    "fieldType",
				Code:     "field_type_unknown",
				Message:  fmt.Sprintf("unknown field type %q", p.FieldType),
			})
		}
		// группа без рецепта раскладки не может быть раскрыта
		if p.FieldGroup && !HasGroupLayout(p.Type) {
			issues = append(issues, Issue{
				Template: key,
				Field:    "fieldGroup",
				Code:     "group_layout_unknown",
				Message:  "fieldGroup is set but no layout recipe exists for this type",
			})
		}
		if p.HasSettings {
			if _, ok := SettingsResource(p.Type); !ok {
				issues = append(issues, Issue{
					Template: key,
					Field:    "hasSettings",
					Code:     "settings_resource_unknown",
					Message:  "hasSettings is set but no managed resource exists for this type",
				})
			}
		}
		if p.Pattern != "" {
			if _, err := regexp.Compile(p.Pattern); err != nil {
				issues = append(issues, Issue{
					Template: key,
					Field:    "validationPattern",
					Code:     "pattern_invalid",
					Message:  err.Error(),
				})
			}
		}
		if p.MaxLength < 0 {
			issues = append(issues, Issue{Template: key, Field: "maxLength", Code: "max_length_negative", Message: "maxLength must be >= 0"})
		}
	}
	return issues
}

// Package form is the form-builder core: field factory, row layout engine,
// group expansion, drag-and-drop coordinator, selection/properties editor
// and the flat persistence mapping.
package form

import (
	"strconv"
	"strings"

	"scoutadmin/internal/catalog"
)

// MaxFieldsPerRow: ёмкость строки.
const MaxFieldsPerRow = 3

// WidthFor возвращает ширину колонки в процентах для строки из n полей.
func WidthFor(n int) int {
	switch {
	case n >= 3:
		return 33
	case n == 2:
		return 50
	default:
		return 100
	}
}

type Option struct {
	ID        int64  `json:"id,omitempty"`
	Value     string `json:"value"`
	Label     string `json:"label"`
	SortOrder int    `json:"sortOrder"`
}

// Field: поле на холсте. ID > 0 у сохранённых полей, TempID, у ещё не сохранённых.
type Field struct {
	ID          int64                  `json:"id,omitempty"`
	TempID      string                 `json:"tempId,omitempty"`
	Label       string                 `json:"label"`
	Type        catalog.FieldType      `json:"fieldType"`
	Predefined  catalog.PredefinedType `json:"predefinedType,omitempty"`
	Required    bool                   `json:"required"`
	Visible     bool                   `json:"visible"`
	Placeholder string                 `json:"placeholder,omitempty"`
	MaxLength   int                    `json:"maxLength,omitempty"`
	Pattern     string                 `json:"validationPattern,omitempty"`
	Options     []Option               `json:"options"`
	RowIndex    int                    `json:"rowIndex"`
	ColPosition int                    `json:"colPosition"`
	ColWidth    int                    `json:"colWidth"`
}

func (f Field) IsPredefined() bool { return f.Predefined != "" }

// Ref: ссылка на поле, по которой его можно найти в строке.
func (f Field) Ref() FieldRef { return FieldRef{ID: f.ID, TempID: f.TempID} }

// Key возвращает стабильный ключ поля для URL и ответов (id или temp-id).
func (f Field) Key() string { return f.Ref().String() }

func (f Field) Clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]Option(nil), f.Options...)
	}
	return out
}

// FieldRef идентифицирует поле: по сохранённому ID, если он есть, иначе по TempID.
// Пустая ссылка не совпадает ни с чем.
type FieldRef struct {
	ID     int64  `json:"id,omitempty"`
	TempID string `json:"tempId,omitempty"`
}

func (r FieldRef) IsZero() bool { return r.ID <= 0 && r.TempID == "" }

func (r FieldRef) Matches(f Field) bool {
	if r.ID > 0 {
		return f.ID == r.ID
	}
	return r.TempID != "" && f.ID <= 0 && f.TempID == r.TempID
}

func (r FieldRef) String() string {
	if r.ID > 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.TempID
}

// ParseFieldKey разбирает ключ, выданный Field.Key.
func ParseFieldKey(key string) FieldRef {
	key = strings.TrimSpace(key)
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return FieldRef{ID: id}
	}
	return FieldRef{TempID: key}
}

// Row: группировка полей на холсте; бэкенд о строках не знает.
type Row struct {
	ID     string  `json:"id"`
	Fields []Field `json:"fields"`
}

func (r Row) Full() bool  { return len(r.Fields) >= MaxFieldsPerRow }
func (r Row) Empty() bool { return len(r.Fields) == 0 }

func (r Row) Clone() Row {
	out := Row{ID: r.ID, Fields: make([]Field, len(r.Fields))}
	for i, f := range r.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}

// indexOf: позиция поля в строке или -1.
func (r Row) indexOf(ref FieldRef) int {
	for i, f := range r.Fields {
		if ref.Matches(f) {
			return i
		}
	}
	return -1
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

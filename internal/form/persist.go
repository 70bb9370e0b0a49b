package form

import (
	"sort"

	"scoutadmin/internal/backend"
)

// Flatten разворачивает строки в плоский список для бэкенда: rowIndex (позиция строки),
// colPosition (позиция в строке), sortOrder (сквозной счётчик). Временные id не отправляются,
// так что бэкенд создаёт такие поля заново.
func Flatten(eventID int64, rows []Row) []backend.FormField {
	out := make([]backend.FormField, 0)
	for ri, r := range rows {
		for ci, f := range r.Fields {
			w := toWire(f)
			if eventID > 0 {
				id := eventID
				w.EventID = &id
			}
			w.RowIndex = ri
			w.ColPosition = ci
			w.ColWidth = WidthFor(len(r.Fields))
			w.SortOrder = len(out)
			out = append(out, w)
		}
	}
	return out
}

// Rebuild собирает строки из плоского списка: группировка по rowIndex по возрастанию,
// внутри: по colPosition. Идентификаторы строк генерируются заново. Пустой список даёт одну пустую строку.
func Rebuild(ids *IDSource, fields []backend.FormField) []Row {
	if ids == nil {
		ids = NewIDSource()
	}
	if len(fields) == 0 {
		return []Row{{ID: ids.RowID(), Fields: []Field{}}}
	}

	byRow := map[int][]backend.FormField{}
	for _, f := range fields {
		byRow[f.RowIndex] = append(byRow[f.RowIndex], f)
	}
	keys := make([]int, 0, len(byRow))
	for k := range byRow {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	rows := make([]Row, 0, len(keys))
	for ri, k := range keys {
		group := byRow[k]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].ColPosition != group[j].ColPosition {
				return group[i].ColPosition < group[j].ColPosition
			}
			return group[i].SortOrder < group[j].SortOrder
		})
		row := Row{ID: ids.RowID(), Fields: make([]Field, len(group))}
		width := WidthFor(len(group))
		for ci, w := range group {
			f := fromWire(w)
			if f.ID <= 0 {
				f.TempID = ids.TempID()
			}
			f.RowIndex = ri
			f.ColPosition = ci
			f.ColWidth = width
			row.Fields[ci] = f
		}
		rows = append(rows, row)
	}
	return rows
}

func toWire(f Field) backend.FormField {
	w := backend.FormField{
		Label:             f.Label,
		FieldType:         f.Type,
		PredefinedType:    f.Predefined,
		IsPredefined:      f.IsPredefined(),
		Required:          f.Required,
		Visible:           f.Visible,
		Placeholder:       f.Placeholder,
		ValidationPattern: f.Pattern,
		Options:           make([]backend.FieldOption, len(f.Options)),
	}
	if f.ID > 0 {
		id := f.ID
		w.ID = &id
	}
	if f.MaxLength > 0 {
		ml := f.MaxLength
		w.MaxLength = &ml
	}
	for i, o := range f.Options {
		wo := backend.FieldOption{Value: o.Value, Label: o.Label, SortOrder: i}
		if o.ID > 0 {
			id := o.ID
			wo.ID = &id
		}
		w.Options[i] = wo
	}
	return w
}

func fromWire(w backend.FormField) Field {
	f := Field{
		Label:       w.Label,
		Type:        w.FieldType,
		Predefined:  w.PredefinedType,
		Required:    w.Required,
		Visible:     w.Visible,
		Placeholder: w.Placeholder,
		Pattern:     w.ValidationPattern,
		Options:     make([]Option, 0, len(w.Options)),
	}
	if w.ID != nil {
		f.ID = *w.ID
	}
	if w.MaxLength != nil {
		f.MaxLength = *w.MaxLength
	}
	opts := append([]backend.FieldOption(nil), w.Options...)
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].SortOrder < opts[j].SortOrder })
	for i, o := range opts {
		opt := Option{Value: o.Value, Label: o.Label, SortOrder: i}
		if o.ID != nil {
			opt.ID = *o.ID
		}
		f.Options = append(f.Options, opt)
	}
	return f
}

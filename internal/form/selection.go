package form

import (
	"fmt"
	"strconv"
)

// Selection: выделенное поле и его строка. Нулевое значение, ничего не выделено.
type Selection struct {
	Field FieldRef `json:"field"`
	RowID string   `json:"rowId,omitempty"`
}

func (s Selection) IsZero() bool { return s.Field.IsZero() && s.RowID == "" }

// Patch: правка свойств выделенного поля; nil, не менять.
type Patch struct {
	Label       *string `json:"label"`
	Placeholder *string `json:"placeholder"`
	Required    *bool   `json:"required"`
}

func (p Patch) Empty() bool { return p.Label == nil && p.Placeholder == nil && p.Required == nil }

// OptionPatch: правка варианта по индексу.
type OptionPatch struct {
	Value *string `json:"value"`
	Label *string `json:"label"`
}

// Editor держит выделение и рабочую копию поля. Каноническое состояние: строки холста,
// рабочая копия после каждой правки записывается обратно в строку.
type Editor struct {
	canvas  *Canvas
	sel     Selection
	working Field
}

func NewEditor(c *Canvas) *Editor { return &Editor{canvas: c} }

func (e *Editor) Selection() Selection { return e.sel }

// Selected возвращает рабочую копию выделенного поля.
func (e *Editor) Selected() (Field, bool) {
	if e.sel.IsZero() {
		return Field{}, false
	}
	return e.working.Clone(), true
}

// Select заменяет выделение. Пустой rowID: найти строку по полю.
func (e *Editor) Select(rowID string, ref FieldRef) (Field, error) {
	if ref.IsZero() {
		return Field{}, fmt.Errorf("%w: empty reference", ErrFieldNotFound)
	}
	var (
		field Field
		ok    bool
	)
	if rowID == "" {
		rowID, field, ok = e.canvas.FindField(ref)
		if !ok {
			return Field{}, fmt.Errorf("%w: %s", ErrFieldNotFound, ref)
		}
	} else {
		row, found := e.canvas.Row(rowID)
		if !found {
			return Field{}, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
		}
		field, ok = row.fieldBy(ref)
		if !ok {
			return Field{}, fmt.Errorf("%w: %s", ErrFieldNotFound, ref)
		}
	}
	e.sel = Selection{Field: field.Ref(), RowID: rowID}
	e.working = field
	return field.Clone(), nil
}

func (e *Editor) Clear() {
	e.sel = Selection{}
	e.working = Field{}
}

// Sync приводит выделение в соответствие с холстом после структурных изменений:
// поле перенесено: обновить строку; поле исчезло, снять выделение.
func (e *Editor) Sync() {
	if e.sel.IsZero() {
		return
	}
	rowID, field, ok := e.canvas.FindField(e.sel.Field)
	if !ok {
		e.Clear()
		return
	}
	e.sel.RowID = rowID
	e.working = field
}

// Edit применяет fn к рабочей копии и записывает её в строку.
func (e *Editor) Edit(fn func(*Field) error) (Field, error) {
	if e.sel.IsZero() {
		return Field{}, ErrNoSelection
	}
	next := e.working.Clone()
	if err := fn(&next); err != nil {
		return Field{}, err
	}
	if err := e.canvas.UpdateField(e.sel.RowID, next); err != nil {
		return Field{}, err
	}
	e.Sync()
	return e.working.Clone(), nil
}

func (e *Editor) Apply(p Patch) (Field, error) {
	return e.Edit(func(f *Field) error {
		if p.Label != nil {
			f.Label = *p.Label
		}
		if p.Placeholder != nil {
			f.Placeholder = *p.Placeholder
		}
		if p.Required != nil {
			f.Required = *p.Required
		}
		return nil
	})
}

// AddOption добавляет вариант с автоматическими значением и подписью.
func (e *Editor) AddOption() (Field, error) {
	return e.Edit(func(f *Field) error {
		n := len(f.Options) + 1
		f.Options = append(f.Options, Option{
			Value:     "option" + strconv.Itoa(n),
			Label:     "Alternativ " + strconv.Itoa(n),
			SortOrder: n - 1,
		})
		return nil
	})
}

func (e *Editor) RemoveOption(i int) (Field, error) {
	return e.Edit(func(f *Field) error {
		if i < 0 || i >= len(f.Options) {
			return fmt.Errorf("%w: option %d", ErrIndexOutOfRange, i)
		}
		f.Options = append(f.Options[:i:i], f.Options[i+1:]...)
		for j := range f.Options {
			f.Options[j].SortOrder = j
		}
		return nil
	})
}

func (e *Editor) UpdateOption(i int, p OptionPatch) (Field, error) {
	return e.Edit(func(f *Field) error {
		if i < 0 || i >= len(f.Options) {
			return fmt.Errorf("%w: option %d", ErrIndexOutOfRange, i)
		}
		if p.Value != nil {
			f.Options[i].Value = *p.Value
		}
		if p.Label != nil {
			f.Options[i].Label = *p.Label
		}
		return nil
	})
}

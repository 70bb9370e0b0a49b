package form

import (
	"fmt"

	"scoutadmin/internal/catalog"
)

// вариант по умолчанию для нового выпадающего списка
var defaultOption = Option{Value: "option1", Label: "Alternativ 1"}

// Factory превращает шаблон каталога в новое поле со свежим временным идентификатором.
type Factory struct {
	ids *IDSource
}

func NewFactory(ids *IDSource) *Factory {
	if ids == nil {
		ids = NewIDSource()
	}
	return &Factory{ids: ids}
}

// NewField создаёт одиночное поле. Шаблоны-группы сюда не попадают: их раскрывает холст.
func (f *Factory) NewField(tpl catalog.Template) (Field, error) {
	if tpl.IsGroup() {
		return Field{}, fmt.Errorf("%w: %s", ErrGroupTemplate, tpl.Key())
	}
	field := Field{
		TempID:   f.ids.TempID(),
		Visible:  true,
		ColWidth: 100,
		Options:  []Option{},
	}
	switch t := tpl.(type) {
	case catalog.BaseTemplate:
		field.Label = t.Label
		field.Type = t.Type
	case catalog.PredefinedTemplate:
		field.Label = t.Label
		field.Type = t.FieldType
		field.Predefined = t.Type
		field.Required = t.Required
		field.Placeholder = t.Placeholder
		field.MaxLength = t.MaxLength
		field.Pattern = t.Pattern
		for i, o := range t.Options {
			field.Options = append(field.Options, Option{Value: o.Value, Label: o.Label, SortOrder: i})
		}
	default:
		d := tpl.Describe()
		field.Label = d.Label
		field.Type = d.Kind
		field.Required = d.Required
		field.Placeholder = d.Placeholder
		field.MaxLength = d.MaxLength
	}
	if field.Type.HasOptions() && len(field.Options) == 0 {
		field.Options = append(field.Options, defaultOption)
	}
	return field, nil
}

package form

import (
	"fmt"

	"scoutadmin/internal/catalog"
)

type groupField struct {
	label       string
	kind        catalog.FieldType
	placeholder string
	required    bool
	maxLength   int
}

// Рецепты раскладки групп. Внешний срез задаёт строки, внутренний поля строки.
// Раскладка фиксирована и пользователем не настраивается.
var groupRecipes = map[catalog.PredefinedType][][]groupField{
	catalog.PredefinedGuardian: {
		{
			{label: "Målsman förnamn", kind: catalog.FieldText, placeholder: "Förnamn"},
			{label: "Målsman efternamn", kind: catalog.FieldText, placeholder: "Efternamn"},
		},
		{
			{label: "Målsman telefon", kind: catalog.FieldPhone, placeholder: "07X-XXX XX XX"},
			{label: "Målsman e-post", kind: catalog.FieldEmail, placeholder: "E-postadress"},
		},
	},
	catalog.PredefinedAddress: {
		{
			{label: "Gatuadress", kind: catalog.FieldText, placeholder: "Gatuadress"},
		},
		{
			{label: "Postnummer", kind: catalog.FieldText, placeholder: "XXX XX", maxLength: 6},
			{label: "Ort", kind: catalog.FieldText, placeholder: "Ort"},
		},
	},
	catalog.PredefinedEmail: {
		{
			{label: "E-post", kind: catalog.FieldEmail, placeholder: "E-postadress", required: true},
			{label: "Bekräfta e-post", kind: catalog.FieldEmail, placeholder: "Bekräfta e-postadress", required: true},
		},
	},
}

// ExpandGroup раскрывает шаблон-группу в строки полей по рецепту.
// Ширины и позиции уже проставлены.
func (f *Factory) ExpandGroup(t catalog.PredefinedType) ([][]Field, error) {
	recipe, ok := groupRecipes[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, t)
	}
	out := make([][]Field, len(recipe))
	for i, row := range recipe {
		width := WidthFor(len(row))
		fields := make([]Field, len(row))
		for j, g := range row {
			fields[j] = Field{
				TempID:      f.ids.TempID(),
				Label:       g.label,
				Type:        g.kind,
				Predefined:  t,
				Required:    g.required,
				Visible:     true,
				Placeholder: g.placeholder,
				MaxLength:   g.maxLength,
				Options:     []Option{},
				ColPosition: j,
				ColWidth:    width,
			}
		}
		out[i] = fields
	}
	return out, nil
}

// ConfirmationPair возвращает пары (поле, подтверждение) группы проверки e-post в порядке строк.
func ConfirmationPair(rows []Row) [][2]Field {
	var out [][2]Field
	for _, r := range rows {
		var primary *Field
		for i := range r.Fields {
			fd := r.Fields[i]
			if fd.Predefined != catalog.PredefinedEmail || fd.Type != catalog.FieldEmail {
				continue
			}
			if primary == nil {
				primary = &r.Fields[i]
				continue
			}
			out = append(out, [2]Field{*primary, fd})
			primary = nil
		}
	}
	return out
}

package form

import (
	"fmt"

	"scoutadmin/internal/catalog"
)

type IntentKind string

const (
	IntentReorder     IntentKind = "reorder"
	IntentTransfer    IntentKind = "transfer"
	IntentInstantiate IntentKind = "instantiate"
)

// Intent: одно перетаскивание. Для instantiate заполняется Template, для остальных, FromRow/FromIndex.
type Intent struct {
	Kind      IntentKind
	FromRow   string
	FromIndex int
	ToRow     string
	ToIndex   int
	Template  catalog.Template
}

// Outcome: что изменилось после перетаскивания. Select, новое одиночное поле из каталога,
// которое нужно выделить.
type Outcome struct {
	Touched  []string
	Select   *FieldRef
	SelectIn string
}

// Apply выполняет перетаскивание целиком или не выполняет вовсе.
func (c *Canvas) Apply(in Intent) (Outcome, error) {
	switch in.Kind {
	case IntentReorder:
		row := in.ToRow
		if row == "" {
			row = in.FromRow
		}
		if err := c.MoveFieldWithinRow(row, in.FromIndex, in.ToIndex); err != nil {
			return Outcome{}, err
		}
		return Outcome{Touched: []string{row}}, nil

	case IntentTransfer:
		if err := c.MoveFieldAcrossRows(in.FromRow, in.FromIndex, in.ToRow, in.ToIndex); err != nil {
			return Outcome{}, err
		}
		if in.FromRow == in.ToRow {
			return Outcome{Touched: []string{in.ToRow}}, nil
		}
		return Outcome{Touched: []string{in.FromRow, in.ToRow}}, nil

	case IntentInstantiate:
		if in.Template == nil {
			return Outcome{}, fmt.Errorf("%w: template is required", catalog.ErrUnknownTemplate)
		}
		p, err := c.InsertField(in.Template, in.ToRow, in.ToIndex)
		if err != nil {
			return Outcome{}, err
		}
		out := Outcome{Touched: p.Rows}
		if !p.Group && len(p.Fields) == 1 {
			ref := p.Fields[0].Ref()
			out.Select = &ref
			out.SelectIn = p.Rows[0]
		}
		return out, nil
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownIntent, in.Kind)
}

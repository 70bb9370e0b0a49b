package form

import (
	"fmt"

	"scoutadmin/internal/catalog"
)

// Canvas: упорядоченный набор строк с полями. Не потокобезопасен, владелец (Builder) сериализует доступ.
type Canvas struct {
	rows    []Row
	ids     *IDSource
	factory *Factory
}

// NewCanvas создаёт холст с одной пустой строкой.
func NewCanvas(ids *IDSource) *Canvas {
	if ids == nil {
		ids = NewIDSource()
	}
	c := &Canvas{ids: ids, factory: NewFactory(ids)}
	c.rows = []Row{c.newRow()}
	return c
}

func (c *Canvas) newRow(fields ...Field) Row {
	if fields == nil {
		fields = []Field{}
	}
	return Row{ID: c.ids.RowID(), Fields: fields}
}

// Rows возвращает копию строк с проставленными RowIndex.
func (c *Canvas) Rows() []Row {
	out := cloneRows(c.rows)
	for i := range out {
		for j := range out[i].Fields {
			out[i].Fields[j].RowIndex = i
		}
	}
	return out
}

func (c *Canvas) Len() int { return len(c.rows) }

// FieldCount: общее число полей на холсте.
func (c *Canvas) FieldCount() int {
	n := 0
	for _, r := range c.rows {
		n += len(r.Fields)
	}
	return n
}

// Replace полностью заменяет строки (после загрузки или сохранения). Пустой набор превращается в одну пустую строку.
func (c *Canvas) Replace(rows []Row) {
	if len(rows) == 0 {
		c.rows = []Row{c.newRow()}
		return
	}
	c.rows = cloneRows(rows)
}

func (c *Canvas) rowIndex(rowID string) int {
	for i, r := range c.rows {
		if r.ID == rowID {
			return i
		}
	}
	return -1
}

func (c *Canvas) mustRow(rowID string) (int, error) {
	i := c.rowIndex(rowID)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	return i, nil
}

func (c *Canvas) Row(rowID string) (Row, bool) {
	i := c.rowIndex(rowID)
	if i < 0 {
		return Row{}, false
	}
	return c.rows[i].Clone(), true
}

// FindField ищет поле на всём холсте и возвращает id его строки.
func (c *Canvas) FindField(ref FieldRef) (string, Field, bool) {
	if ref.IsZero() {
		return "", Field{}, false
	}
	for _, r := range c.rows {
		if i := r.indexOf(ref); i >= 0 {
			return r.ID, r.Fields[i].Clone(), true
		}
	}
	return "", Field{}, false
}

// AddRow добавляет пустую строку в конец.
func (c *Canvas) AddRow() Row {
	r := c.newRow()
	c.rows = append(c.rows, r)
	return r.Clone()
}

// RemoveRow удаляет строку вместе с полями и возвращает удалённую строку.
func (c *Canvas) RemoveRow(rowID string) (Row, error) {
	i, err := c.mustRow(rowID)
	if err != nil {
		return Row{}, err
	}
	removed := c.rows[i]
	c.rows = append(c.rows[:i:i], c.rows[i+1:]...)
	return removed, nil
}

// MoveRow переставляет строку с позиции from на позицию to.
func (c *Canvas) MoveRow(from, to int) error {
	if from < 0 || from >= len(c.rows) {
		return fmt.Errorf("%w: row %d", ErrIndexOutOfRange, from)
	}
	to = clampIndex(to, len(c.rows)-1)
	c.rows = moveItem(c.rows, from, to)
	return nil
}

// RecomputeRowWidths пересчитывает ширины (100/50/33) и позиции колонок строки.
func (c *Canvas) RecomputeRowWidths(rowID string) error {
	i, err := c.mustRow(rowID)
	if err != nil {
		return err
	}
	c.recompute(i)
	return nil
}

func (c *Canvas) recompute(i int) {
	fields := c.rows[i].Fields
	w := WidthFor(len(fields))
	for j := range fields {
		fields[j].ColWidth = w
		fields[j].ColPosition = j
	}
}

// Placement: результат вставки шаблона на холст.
// Group: шаблон раскрыт в группу; такие поля не выделяются.
type Placement struct {
	Fields []Field  `json:"fields"`
	Rows   []string `json:"rows"`
	Group  bool     `json:"group"`
}

// InsertField создаёт поле из шаблона и ставит его в строку rowID на позицию at
// (отрицательная или слишком большая позиция: в конец). Шаблоны-группы раскладываются по рецепту.
func (c *Canvas) InsertField(tpl catalog.Template, rowID string, at int) (Placement, error) {
	ri, err := c.mustRow(rowID)
	if err != nil {
		return Placement{}, err
	}
	if tpl.IsGroup() {
		return c.insertGroup(tpl, ri)
	}
	if c.rows[ri].Full() {
		return Placement{}, ErrRowFull
	}
	field, err := c.factory.NewField(tpl)
	if err != nil {
		return Placement{}, err
	}
	c.rows[ri].Fields = insertItem(c.rows[ri].Fields, insertIndex(at, len(c.rows[ri].Fields)), field)
	c.recompute(ri)
	placed, _ := c.rows[ri].fieldBy(field.Ref())
	return Placement{Fields: []Field{placed}, Rows: []string{rowID}}, nil
}

func (c *Canvas) insertGroup(tpl catalog.Template, ri int) (Placement, error) {
	p, ok := tpl.(catalog.PredefinedTemplate)
	if !ok {
		return Placement{}, fmt.Errorf("%w: %s", ErrNotGroup, tpl.Key())
	}
	chunks, err := c.factory.ExpandGroup(p.Type)
	if err != nil {
		return Placement{}, err
	}
	out := Placement{Group: true}
	for _, ch := range chunks {
		out.Fields = append(out.Fields, ch...)
	}

	// пустая целевая строка получает первую часть, остальные строки встают сразу за ней;
	// иначе все строки группы добавляются в конец
	if c.rows[ri].Empty() {
		c.rows[ri].Fields = chunks[0]
		out.Rows = append(out.Rows, c.rows[ri].ID)
		extra := make([]Row, 0, len(chunks)-1)
		for _, ch := range chunks[1:] {
			r := c.newRow(ch...)
			extra = append(extra, r)
			out.Rows = append(out.Rows, r.ID)
		}
		rows := make([]Row, 0, len(c.rows)+len(extra))
		rows = append(rows, c.rows[:ri+1]...)
		rows = append(rows, extra...)
		rows = append(rows, c.rows[ri+1:]...)
		c.rows = rows
		return out, nil
	}
	for _, ch := range chunks {
		r := c.newRow(ch...)
		c.rows = append(c.rows, r)
		out.Rows = append(out.Rows, r.ID)
	}
	return out, nil
}

// MoveFieldWithinRow переставляет поле внутри строки.
func (c *Canvas) MoveFieldWithinRow(rowID string, from, to int) error {
	ri, err := c.mustRow(rowID)
	if err != nil {
		return err
	}
	fields := c.rows[ri].Fields
	if from < 0 || from >= len(fields) {
		return fmt.Errorf("%w: field %d in %s", ErrIndexOutOfRange, from, rowID)
	}
	c.rows[ri].Fields = moveItem(fields, from, clampIndex(to, len(fields)-1))
	c.recompute(ri)
	return nil
}

// MoveFieldAcrossRows переносит поле из одной строки в другую. Проверки выполняются до изменений.
func (c *Canvas) MoveFieldAcrossRows(fromRowID string, from int, toRowID string, to int) error {
	if fromRowID == toRowID {
		return c.MoveFieldWithinRow(fromRowID, from, to)
	}
	si, err := c.mustRow(fromRowID)
	if err != nil {
		return err
	}
	ti, err := c.mustRow(toRowID)
	if err != nil {
		return err
	}
	src := c.rows[si].Fields
	if from < 0 || from >= len(src) {
		return fmt.Errorf("%w: field %d in %s", ErrIndexOutOfRange, from, fromRowID)
	}
	if c.rows[ti].Full() {
		return ErrRowFull
	}

	field := src[from]
	c.rows[si].Fields = append(src[:from:from], src[from+1:]...)
	c.rows[ti].Fields = insertItem(c.rows[ti].Fields, insertIndex(to, len(c.rows[ti].Fields)), field)
	c.recompute(si)
	c.recompute(ti)
	return nil
}

// DeleteField убирает поле из строки и пересчитывает ширины.
func (c *Canvas) DeleteField(rowID string, ref FieldRef) (Field, error) {
	ri, err := c.mustRow(rowID)
	if err != nil {
		return Field{}, err
	}
	fi := c.rows[ri].indexOf(ref)
	if fi < 0 {
		return Field{}, fmt.Errorf("%w: %s", ErrFieldNotFound, ref)
	}
	fields := c.rows[ri].Fields
	removed := fields[fi]
	c.rows[ri].Fields = append(fields[:fi:fi], fields[fi+1:]...)
	c.recompute(ri)
	return removed, nil
}

// UpdateField записывает копию поля обратно в строку, сохраняя раскладку.
func (c *Canvas) UpdateField(rowID string, f Field) error {
	ri, err := c.mustRow(rowID)
	if err != nil {
		return err
	}
	fi := c.rows[ri].indexOf(f.Ref())
	if fi < 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotFound, f.Ref())
	}
	cur := c.rows[ri].Fields[fi]
	next := f.Clone()
	next.ColPosition = cur.ColPosition
	next.ColWidth = cur.ColWidth
	next.RowIndex = cur.RowIndex
	c.rows[ri].Fields[fi] = next
	return nil
}

func (r Row) fieldBy(ref FieldRef) (Field, bool) {
	if i := r.indexOf(ref); i >= 0 {
		return r.Fields[i].Clone(), true
	}
	return Field{}, false
}

// ===== slice helpers =====

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

// insertIndex: отрицательная или слишком большая позиция означает «в конец».
func insertIndex(at, n int) int {
	if at < 0 || at > n {
		return n
	}
	return at
}

func insertItem[T any](s []T, at int, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, s[:at]...)
	out = append(out, v)
	return append(out, s[at:]...)
}

func moveItem[T any](s []T, from, to int) []T {
	if from == to {
		return s
	}
	v := s[from]
	rest := append(append(make([]T, 0, len(s)-1), s[:from]...), s[from+1:]...)
	return insertItem(rest, to, v)
}

package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutadmin/internal/catalog"
)

func tpl(t *testing.T, key string) catalog.Template {
	t.Helper()
	tp, err := catalog.Default().Lookup(key)
	require.NoError(t, err)
	return tp
}

// layout: ширины полей по строкам, для компактного сравнения
func layout(rows []Row) [][]int {
	out := make([][]int, len(rows))
	for i, r := range rows {
		out[i] = []int{}
		for _, f := range r.Fields {
			out[i] = append(out[i], f.ColWidth)
		}
	}
	return out
}

func labels(r Row) []string {
	out := []string{}
	for _, f := range r.Fields {
		out = append(out, f.Label)
	}
	return out
}

func TestWidthFor(t *testing.T) {
	assert.Equal(t, 100, WidthFor(0))
	assert.Equal(t, 100, WidthFor(1))
	assert.Equal(t, 50, WidthFor(2))
	assert.Equal(t, 33, WidthFor(3))
}

func TestRecomputeRowWidths(t *testing.T) {
	for n, want := range map[int]int{1: 100, 2: 50, 3: 33} {
		c := NewCanvas(nil)
		row := c.Rows()[0].ID
		fields := make([]Field, n)
		for i := range fields {
			fields[i] = Field{TempID: "temp-" + string(rune('a'+i)), ColWidth: 7, ColPosition: 9}
		}
		c.rows[0].Fields = fields
		require.NoError(t, c.RecomputeRowWidths(row))
		for i, f := range c.Rows()[0].Fields {
			assert.Equal(t, want, f.ColWidth)
			assert.Equal(t, i, f.ColPosition)
		}
	}
	c := NewCanvas(nil)
	assert.ErrorIs(t, c.RecomputeRowWidths("row-missing"), ErrRowNotFound)
}

func TestInsertField_ThreeThenRejected(t *testing.T) {
	c := NewCanvas(nil)
	row := c.Rows()[0].ID
	for i := 0; i < 3; i++ {
		_, err := c.InsertField(tpl(t, "TEXT"), row, -1)
		require.NoError(t, err)
	}
	before := c.Rows()
	assert.Equal(t, [][]int{{33, 33, 33}}, layout(before))

	_, err := c.InsertField(tpl(t, "TEXT"), row, 0)
	assert.ErrorIs(t, err, ErrRowFull)
	if diff := cmp.Diff(before, c.Rows()); diff != "" {
		t.Fatalf("rejected insert changed the row (-before +after):\n%s", diff)
	}

	// повторный отказ ничего не меняет
	_, err = c.InsertField(tpl(t, "TEXT"), row, 1)
	assert.ErrorIs(t, err, ErrRowFull)
	assert.Len(t, c.Rows()[0].Fields, 3)
}

func TestInsertField_AtIndex(t *testing.T) {
	c := NewCanvas(nil)
	row := c.Rows()[0].ID
	_, err := c.InsertField(tpl(t, "FIRST_NAME"), row, 0)
	require.NoError(t, err)
	p, err := c.InsertField(tpl(t, "LAST_NAME"), row, 0)
	require.NoError(t, err)
	require.Len(t, p.Fields, 1)
	assert.Equal(t, 0, p.Fields[0].ColPosition)
	assert.Equal(t, 50, p.Fields[0].ColWidth)
	assert.Equal(t, []string{"Efternamn", "Förnamn"}, labels(c.Rows()[0]))

	_, err = c.InsertField(tpl(t, "TEXT"), "row-x", 0)
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestGuardianGroup_EmptyTarget(t *testing.T) {
	c := NewCanvas(nil)
	first := c.Rows()[0].ID
	tail := c.AddRow()
	_, err := c.InsertField(tpl(t, "TEXT"), tail.ID, 0)
	require.NoError(t, err)

	p, err := c.InsertField(tpl(t, "guardian"), first, 0)
	require.NoError(t, err)
	assert.True(t, p.Group)
	require.Len(t, p.Fields, 4)

	rows := c.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, first, rows[0].ID, "empty target reused")
	assert.Equal(t, []string{"Målsman förnamn", "Målsman efternamn"}, labels(rows[0]))
	assert.Equal(t, []string{"Målsman telefon", "Målsman e-post"}, labels(rows[1]))
	assert.Equal(t, tail.ID, rows[2].ID, "second pair inserted right after the target")
	assert.Equal(t, [][]int{{50, 50}, {50, 50}, {100}}, layout(rows))
	assert.Equal(t, catalog.FieldPhone, rows[1].Fields[0].Type)
	assert.Equal(t, catalog.FieldEmail, rows[1].Fields[1].Type)
	for _, f := range p.Fields {
		assert.Equal(t, catalog.PredefinedGuardian, f.Predefined)
		assert.False(t, f.Required)
		assert.True(t, f.Visible)
	}
}

func TestGuardianGroup_NonEmptyTargetAppends(t *testing.T) {
	c := NewCanvas(nil)
	target := c.Rows()[0].ID
	_, err := c.InsertField(tpl(t, "TEXT"), target, 0)
	require.NoError(t, err)
	_, err = c.InsertField(tpl(t, "TEXT"), target, 0)
	require.NoError(t, err)
	_, err = c.InsertField(tpl(t, "TEXT"), target, 0)
	require.NoError(t, err)

	// полная строка не мешает группе: она всегда добавляется новыми строками
	_, err = c.InsertField(tpl(t, "GUARDIAN"), target, 0)
	require.NoError(t, err)
	rows := c.Rows()
	require.Len(t, rows, 3)
	assert.Len(t, rows[0].Fields, 3)
	assert.Equal(t, [][]int{{33, 33, 33}, {50, 50}, {50, 50}}, layout(rows))
}

func TestAddressGroup(t *testing.T) {
	c := NewCanvas(nil)
	target := c.Rows()[0].ID
	_, err := c.InsertField(tpl(t, "ADDRESS"), target, 0)
	require.NoError(t, err)
	rows := c.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, [][]int{{100}, {50, 50}}, layout(rows))
	assert.Equal(t, []string{"Gatuadress"}, labels(rows[0]))
	assert.Equal(t, []string{"Postnummer", "Ort"}, labels(rows[1]))
	assert.Equal(t, 6, rows[1].Fields[0].MaxLength)
	assert.Equal(t, "XXX XX", rows[1].Fields[0].Placeholder)

	// непустая цель: две новые строки в конец
	_, err = c.InsertField(tpl(t, "ADDRESS"), target, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{100}, {50, 50}, {100}, {50, 50}}, layout(c.Rows()))
}

func TestEmailGroup(t *testing.T) {
	c := NewCanvas(nil)
	target := c.Rows()[0].ID
	_, err := c.InsertField(tpl(t, "predefined:email"), target, 0)
	require.NoError(t, err)
	rows := c.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"E-post", "Bekräfta e-post"}, labels(rows[0]))
	assert.Equal(t, [][]int{{50, 50}}, layout(rows))
	assert.True(t, rows[0].Fields[0].Required)
	assert.True(t, rows[0].Fields[1].Required)

	_, err = c.InsertField(tpl(t, "predefined:email"), target, 0)
	require.NoError(t, err)
	assert.Len(t, c.Rows(), 2)

	pairs := ConfirmationPair(c.Rows())
	require.Len(t, pairs, 2)
	assert.Equal(t, "Bekräfta e-post", pairs[0][1].Label)
}

func TestPredefinedPhoneIsSingleField(t *testing.T) {
	c := NewCanvas(nil)
	target := c.Rows()[0].ID
	p, err := c.InsertField(tpl(t, "PHONE"), target, 0)
	require.NoError(t, err)
	assert.False(t, p.Group)
	assert.Len(t, c.Rows(), 1)
	assert.Equal(t, catalog.FieldPhone, c.Rows()[0].Fields[0].Type)
}

func TestMoveFieldAcrossRows(t *testing.T) {
	c := NewCanvas(nil)
	a := c.Rows()[0].ID
	b := c.AddRow().ID
	_, err := c.InsertField(tpl(t, "FIRST_NAME"), a, -1)
	require.NoError(t, err)
	_, err = c.InsertField(tpl(t, "LAST_NAME"), a, -1)
	require.NoError(t, err)
	_, err = c.InsertField(tpl(t, "TEXT"), b, -1)
	require.NoError(t, err)

	require.NoError(t, c.MoveFieldAcrossRows(a, 1, b, 0))
	rows := c.Rows()
	assert.Equal(t, [][]int{{100}, {50, 50}}, layout(rows))
	assert.Equal(t, "Efternamn", rows[1].Fields[0].Label)
	assert.Equal(t, 0, rows[1].Fields[0].ColPosition)
	assert.Equal(t, 1, rows[1].Fields[1].ColPosition)
	assert.Equal(t, 0, rows[0].Fields[0].ColPosition)
}

func TestMoveFieldAcrossRows_FullTargetIsAtomic(t *testing.T) {
	c := NewCanvas(nil)
	a := c.Rows()[0].ID
	b := c.AddRow().ID
	_, err := c.InsertField(tpl(t, "TEXT"), a, -1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = c.InsertField(tpl(t, "TEXT"), b, -1)
		require.NoError(t, err)
	}
	before := c.Rows()
	assert.ErrorIs(t, c.MoveFieldAcrossRows(a, 0, b, 0), ErrRowFull)
	assert.Empty(t, cmp.Diff(before, c.Rows()))

	assert.ErrorIs(t, c.MoveFieldAcrossRows(a, 5, b, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.MoveFieldAcrossRows("row-x", 0, b, 0), ErrRowNotFound)
	assert.ErrorIs(t, c.MoveFieldAcrossRows(a, 0, "row-x", 0), ErrRowNotFound)
	assert.Empty(t, cmp.Diff(before, c.Rows()))
}

func TestMoveFieldWithinRow(t *testing.T) {
	c := NewCanvas(nil)
	a := c.Rows()[0].ID
	for _, k := range []string{"FIRST_NAME", "LAST_NAME", "PHONE"} {
		_, err := c.InsertField(tpl(t, k), a, -1)
		require.NoError(t, err)
	}
	require.NoError(t, c.MoveFieldWithinRow(a, 0, 2))
	assert.Equal(t, []string{"Efternamn", "Mobilnummer", "Förnamn"}, labels(c.Rows()[0]))
	for i, f := range c.Rows()[0].Fields {
		assert.Equal(t, i, f.ColPosition)
	}
	// позиция назначения зажимается
	require.NoError(t, c.MoveFieldWithinRow(a, 2, 99))
	assert.Equal(t, "Förnamn", c.Rows()[0].Fields[2].Label)
	assert.ErrorIs(t, c.MoveFieldWithinRow(a, -1, 0), ErrIndexOutOfRange)
}

func TestRemoveAndMoveRow(t *testing.T) {
	c := NewCanvas(nil)
	first := c.Rows()[0].ID
	second := c.AddRow().ID
	third := c.AddRow().ID

	require.NoError(t, c.MoveRow(2, 0))
	ids := []string{}
	for _, r := range c.Rows() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{third, first, second}, ids)
	assert.ErrorIs(t, c.MoveRow(3, 0), ErrIndexOutOfRange)

	_, err := c.RemoveRow(first)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	_, err = c.RemoveRow(first)
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestDeleteField_RecomputesWidths(t *testing.T) {
	c := NewCanvas(nil)
	a := c.Rows()[0].ID
	p, err := c.InsertField(tpl(t, "TEXT"), a, -1)
	require.NoError(t, err)
	_, err = c.InsertField(tpl(t, "TEXT"), a, -1)
	require.NoError(t, err)

	removed, err := c.DeleteField(a, p.Fields[0].Ref())
	require.NoError(t, err)
	assert.Equal(t, p.Fields[0].TempID, removed.TempID)
	assert.Equal(t, [][]int{{100}}, layout(c.Rows()))
	assert.Equal(t, 0, c.Rows()[0].Fields[0].ColPosition)

	_, err = c.DeleteField(a, p.Fields[0].Ref())
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestFieldRef_Matching(t *testing.T) {
	saved := Field{ID: 5}
	fresh := Field{TempID: "temp-1"}
	other := Field{TempID: "temp-2"}

	assert.True(t, FieldRef{ID: 5}.Matches(saved))
	assert.False(t, FieldRef{ID: 5}.Matches(fresh))
	assert.True(t, FieldRef{TempID: "temp-1"}.Matches(fresh))
	assert.False(t, FieldRef{TempID: "temp-1"}.Matches(other))
	// пустая ссылка ни с чем не совпадает, даже с полем без идентификаторов
	assert.False(t, FieldRef{}.Matches(Field{}))

	assert.Equal(t, FieldRef{ID: 5}, ParseFieldKey(saved.Key()))
	assert.Equal(t, FieldRef{TempID: "temp-1"}, ParseFieldKey(fresh.Key()))
}

func TestFactory(t *testing.T) {
	f := NewFactory(nil)

	sel, err := f.NewField(tpl(t, "SELECT"))
	require.NoError(t, err)
	assert.Equal(t, []Option{{Value: "option1", Label: "Alternativ 1"}}, sel.Options)
	assert.False(t, sel.Required)
	assert.True(t, sel.Visible)
	assert.Equal(t, 100, sel.ColWidth)
	assert.Contains(t, sel.TempID, "temp-")

	pn, err := f.NewField(tpl(t, "PERSONAL_NUMBER"))
	require.NoError(t, err)
	assert.True(t, pn.Required)
	assert.Equal(t, 13, pn.MaxLength)
	assert.NotEmpty(t, pn.Pattern)
	assert.Equal(t, catalog.PredefinedPersonalNumber, pn.Predefined)

	troop, err := f.NewField(tpl(t, "TROOP"))
	require.NoError(t, err)
	assert.Len(t, troop.Options, 1, "predefined select gets a default option")

	_, err = f.NewField(tpl(t, "GUARDIAN"))
	assert.ErrorIs(t, err, ErrGroupTemplate)

	other, err := f.NewField(tpl(t, "TEXT"))
	require.NoError(t, err)
	assert.NotEqual(t, sel.TempID, other.TempID)
}

func TestIDSource_Unique(t *testing.T) {
	ids := NewIDSource()
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := ids.TempID()
		require.False(t, seen[id])
		seen[id] = true
	}
	assert.Contains(t, ids.RowID(), "row-")
}

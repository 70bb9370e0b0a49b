package form

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoutadmin/internal/backend"
	"scoutadmin/internal/catalog"
)

func i64(v int64) *int64 { return &v }

func TestRebuild_EmptyYieldsOneRow(t *testing.T) {
	rows := Rebuild(nil, nil)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Fields)
	assert.NotEmpty(t, rows[0].ID)
}

func TestRebuild_GroupsAndSorts(t *testing.T) {
	in := []backend.FormField{
		{ID: i64(3), Label: "c", FieldType: catalog.FieldText, RowIndex: 4, ColPosition: 1},
		{ID: i64(1), Label: "a", FieldType: catalog.FieldText, RowIndex: 0, ColPosition: 0},
		{ID: i64(2), Label: "b", FieldType: catalog.FieldText, RowIndex: 4, ColPosition: 0},
		{ID: i64(4), Label: "d", FieldType: catalog.FieldSelect, RowIndex: 4, ColPosition: 2,
			Options: []backend.FieldOption{{Value: "y", Label: "Y", SortOrder: 1}, {ID: i64(9), Value: "x", Label: "X", SortOrder: 0}}},
	}
	rows := Rebuild(NewIDSource(), in)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a"}, labels(rows[0]))
	assert.Equal(t, []string{"b", "c", "d"}, labels(rows[1]))
	assert.Equal(t, [][]int{{100}, {33, 33, 33}}, layout(rows))
	assert.Equal(t, 1, rows[1].Fields[0].RowIndex, "row index compacted")
	assert.Equal(t, []Option{{ID: 9, Value: "x", Label: "X", SortOrder: 0}, {Value: "y", Label: "Y", SortOrder: 1}},
		rows[1].Fields[2].Options)
}

func TestFlatten(t *testing.T) {
	rows := []Row{
		{ID: "row-1", Fields: []Field{
			{ID: 11, Label: "Förnamn", Type: catalog.FieldText, Predefined: catalog.PredefinedFirstName, Required: true, Visible: true, MaxLength: 50},
			{TempID: "temp-x", Label: "Val", Type: catalog.FieldSelect, Visible: true, Options: []Option{{Value: "a", Label: "A"}}},
		}},
		{ID: "row-2", Fields: []Field{}},
		{ID: "row-3", Fields: []Field{{TempID: "temp-y", Label: "Övrigt", Type: catalog.FieldTextarea, Visible: true}}},
	}
	flat := Flatten(5, rows)
	require.Len(t, flat, 3)

	want := []struct {
		id        *int64
		row, col  int
		sort      int
		width     int
		predef    bool
		maxLength *int
	}{
		{i64(11), 0, 0, 0, 50, true, func() *int { v := 50; return &v }()},
		{nil, 0, 1, 1, 50, false, nil},
		{nil, 2, 0, 2, 100, false, nil},
	}
	for i, w := range want {
		got := flat[i]
		assert.Equal(t, w.id, got.ID, i)
		assert.Equal(t, w.row, got.RowIndex, i)
		assert.Equal(t, w.col, got.ColPosition, i)
		assert.Equal(t, w.sort, got.SortOrder, i)
		assert.Equal(t, w.width, got.ColWidth, i)
		assert.Equal(t, w.predef, got.IsPredefined, i)
		assert.Equal(t, w.maxLength, got.MaxLength, i)
		require.NotNil(t, got.EventID)
		assert.Equal(t, int64(5), *got.EventID)
	}
	assert.Equal(t, []backend.FieldOption{{Value: "a", Label: "A", SortOrder: 0}}, flat[1].Options)
	assert.Equal(t, []backend.FieldOption{}, flat[2].Options)
}

func TestFlattenRebuild_PreservesShape(t *testing.T) {
	c := NewCanvas(nil)
	r0 := c.Rows()[0].ID
	_, err := c.InsertField(tpl(t, "GUARDIAN"), r0, 0)
	require.NoError(t, err)
	r2 := c.AddRow().ID
	for _, k := range []string{"FIRST_NAME", "SELECT", "DATE"} {
		_, err = c.InsertField(tpl(t, k), r2, -1)
		require.NoError(t, err)
	}
	before := c.Rows()

	flat := Flatten(1, before)
	for i := range flat {
		flat[i].ID = i64(int64(100 + i))
	}
	after := Rebuild(nil, flat)

	shape := func(rows []Row) [][]string {
		out := [][]string{}
		for _, r := range rows {
			out = append(out, labels(r))
		}
		return out
	}
	if diff := cmp.Diff(shape(before), shape(after)); diff != "" {
		t.Fatalf("round trip changed the layout (-before +after):\n%s", diff)
	}
	assert.Equal(t, layout(before), layout(after))
}

func TestLint(t *testing.T) {
	rows := []Row{
		{ID: "row-1"},
		{ID: "row-2", Fields: []Field{
			{TempID: "temp-a", Label: "", Type: catalog.FieldText},
			{TempID: "temp-b", Label: "Val", Type: catalog.FieldSelect},
			{TempID: "temp-c", Label: "Val", Type: catalog.FieldSelect, Options: []Option{{Value: "a"}, {Value: "a"}, {Value: ""}}},
		}},
		{ID: "row-3", Fields: []Field{
			{TempID: "temp-d", Label: "Kår", Type: catalog.FieldSelect, Predefined: catalog.PredefinedTroop},
			{TempID: "temp-e", Label: "Pnr", Type: catalog.FieldText, Pattern: "(["},
		}},
	}
	issues := Lint(rows)
	codes := map[string]int{}
	for _, is := range issues {
		codes[is.Code]++
	}
	assert.Equal(t, map[string]int{
		"row_empty":              1,
		"label_empty":            1,
		"options_empty":          1,
		"option_value_duplicate": 1,
		"option_value_empty":     1,
		"pattern_invalid":        1,
	}, codes)
	assert.Len(t, Blocking(issues), 5)
}

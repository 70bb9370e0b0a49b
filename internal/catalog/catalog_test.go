package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Contents(t *testing.T) {
	c := Default()
	require.Len(t, c.Base, 5)
	require.Len(t, c.Predefined, 10)
	assert.Empty(t, c.Lint())

	guardian, ok := c.PredefinedByType(PredefinedGuardian)
	require.True(t, ok)
	assert.True(t, guardian.IsGroup())
	assert.Equal(t, "Målsman", guardian.Label)

	email, ok := c.PredefinedByType(PredefinedEmail)
	require.True(t, ok)
	assert.True(t, email.IsGroup(), "email verification expands to two fields")

	pn, ok := c.PredefinedByType(PredefinedPersonalNumber)
	require.True(t, ok)
	assert.Equal(t, 13, pn.MaxLength)
	assert.True(t, pn.Required)
}

func TestLookup_CaseInsensitive(t *testing.T) {
	c := Default()

	for _, key := range []string{"guardian", "Guardian", " GUARDIAN ", "predefined:guardian"} {
		tpl, err := c.Lookup(key)
		require.NoError(t, err, key)
		assert.Equal(t, "GUARDIAN", tpl.Key())
	}

	tpl, err := c.Lookup("first-name")
	require.NoError(t, err)
	assert.Equal(t, FieldText, tpl.Kind())

	tpl, err = c.Lookup("textarea")
	require.NoError(t, err)
	_, isBase := tpl.(BaseTemplate)
	assert.True(t, isBase)

	_, err = c.Lookup("base:guardian")
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = c.Lookup("")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestDescribe_Settings(t *testing.T) {
	c := Default()
	tpl, err := c.Lookup("TROOP")
	require.NoError(t, err)
	d := tpl.Describe()
	assert.True(t, d.HasSettings)
	assert.Equal(t, "troops", d.Settings)
	assert.Equal(t, FieldSelect, d.Kind)

	tpl, err = c.Lookup("FOOD_ALLERGY")
	require.NoError(t, err)
	assert.Equal(t, "food-allergies", tpl.Describe().Settings)
}

func TestTemplates_PredefinedFirst(t *testing.T) {
	all := Default().Templates()
	require.Len(t, all, 15)
	_, first := all[0].(PredefinedTemplate)
	assert.True(t, first)
	_, last := all[len(all)-1].(BaseTemplate)
	assert.True(t, last)
}

func TestLoad_MergesFilesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("a.yaml", "name: scouts\nbase:\n  - type: text\n    label: Text\n")
	write("b.yml", "predefined:\n  - type: first_name\n    label: Förnamn\n    fieldType: text\n")
	write("notes.txt", "ignored")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "scouts", c.Name)
	require.Len(t, c.Base, 1)
	assert.Equal(t, FieldText, c.Base[0].Type)
	require.Len(t, c.Predefined, 1)
	assert.Equal(t, PredefinedFirstName, c.Predefined[0].Type)
}

func TestLoad_EmptyDir(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLint_Issues(t *testing.T) {
	c := &Catalog{
		Base: []BaseTemplate{{Type: FieldText}, {Type: FieldText}, {Type: "SLIDER"}},
		Predefined: []PredefinedTemplate{
			{Type: PredefinedFirstName, FieldType: FieldText, FieldGroup: true},
			{Type: PredefinedOtherInfo, FieldType: FieldTextarea, HasSettings: true},
			{Type: PredefinedPhone, FieldType: FieldPhone, Pattern: "(["},
		},
	}
	codes := map[string]int{}
	for _, is := range c.Lint() {
		codes[is.Code]++
	}
	assert.Equal(t, 1, codes["duplicate_template"])
	assert.Equal(t, 1, codes["field_type_unknown"])
	assert.Equal(t, 1, codes["group_layout_unknown"])
	assert.Equal(t, 1, codes["settings_resource_unknown"])
	assert.Equal(t, 1, codes["pattern_invalid"])
}

func TestIcon(t *testing.T) {
	c := Default()
	assert.Equal(t, "restaurant", c.Icon(FieldCheckbox, PredefinedFoodAllergy))
	assert.Equal(t, "notes", c.Icon(FieldTextarea, ""))
	assert.Equal(t, "text_fields", c.Icon(FieldNumber, ""))
}

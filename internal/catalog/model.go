package catalog

// FieldType: примитивный вид поля формы.
type FieldType string

const (
	FieldText     FieldType = "TEXT"
	FieldTextarea FieldType = "TEXTAREA"
	FieldSelect   FieldType = "SELECT"
	FieldCheckbox FieldType = "CHECKBOX"
	FieldDate     FieldType = "DATE"
	FieldEmail    FieldType = "EMAIL"
	FieldPhone    FieldType = "PHONE"
	FieldNumber   FieldType = "NUMBER"
)

var fieldTypes = []FieldType{
	FieldText, FieldTextarea, FieldSelect, FieldCheckbox,
	FieldDate, FieldEmail, FieldPhone, FieldNumber,
}

// Valid сообщает, известен ли вид поля.
func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// HasOptions: виды полей, которые рендерятся списком вариантов.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect
}

// PredefinedType: предопределённые поля шведских скаутских форм.
type PredefinedType string

const (
	PredefinedFirstName      PredefinedType = "FIRST_NAME"
	PredefinedLastName       PredefinedType = "LAST_NAME"
	PredefinedGuardian       PredefinedType = "GUARDIAN"
	PredefinedAddress        PredefinedType = "ADDRESS"
	PredefinedPersonalNumber PredefinedType = "PERSONAL_NUMBER"
	PredefinedPhone          PredefinedType = "PHONE"
	PredefinedEmail          PredefinedType = "EMAIL"
	PredefinedFoodAllergy    PredefinedType = "FOOD_ALLERGY"
	PredefinedTroop          PredefinedType = "TROOP"
	PredefinedOtherInfo      PredefinedType = "OTHER_INFO"
)

// группы, для которых есть фиксированный рецепт раскладки (см. form/groups.go)
var groupLayouts = map[PredefinedType]struct{}{
	PredefinedGuardian: {},
	PredefinedAddress:  {},
	PredefinedEmail:    {},
}

// HasGroupLayout сообщает, умеет ли конструктор раскрывать этот тип в группу полей.
func HasGroupLayout(t PredefinedType) bool {
	_, ok := groupLayouts[t]
	return ok
}

// ресурсы, которыми управляет диалог настроек шаблона
var settingsResources = map[PredefinedType]string{
	PredefinedTroop:       "troops",
	PredefinedFoodAllergy: "food-allergies",
}

// SettingsResource возвращает имя управляемого ресурса для шаблона с настройками.
func SettingsResource(t PredefinedType) (string, bool) {
	r, ok := settingsResources[t]
	return r, ok
}

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Description: то, что показывает библиотека полей.
type Description struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	Kind        FieldType `json:"fieldType"`
	Predefined  bool      `json:"predefined"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	MaxLength   int       `json:"maxLength,omitempty"`
	Group       bool      `json:"fieldGroup"`
	HasSettings bool      `json:"hasSettings"`
	Settings    string    `json:"settingsResource,omitempty"`
}

// Template описывает общий контракт шаблонов; из него можно создать поле и его можно описать.
type Template interface {
	Key() string
	Kind() FieldType
	Describe() Description
	IsGroup() bool
}

// BaseTemplate: примитивный вид поля.
type BaseTemplate struct {
	Type        FieldType `yaml:"type" json:"type"`
	Label       string    `yaml:"label" json:"label"`
	Icon        string    `yaml:"icon" json:"icon"`
	Description string    `yaml:"description" json:"description"`
}

func (t BaseTemplate) Key() string     { return string(t.Type) }
func (t BaseTemplate) Kind() FieldType { return t.Type }
func (t BaseTemplate) IsGroup() bool   { return false }

func (t BaseTemplate) Describe() Description {
	return Description{
		Key:         t.Key(),
		Label:       t.Label,
		Icon:        t.Icon,
		Description: t.Description,
		Kind:        t.Type,
	}
}

// PredefinedTemplate: доменный шаблон (имя, личный номер, группа опекуна и т.д.).
type PredefinedTemplate struct {
	Type        PredefinedType `yaml:"type" json:"type"`
	Label       string         `yaml:"label" json:"label"`
	Icon        string         `yaml:"icon" json:"icon"`
	FieldType   FieldType      `yaml:"fieldType" json:"fieldType"`
	Required    bool           `yaml:"required" json:"required"`
	Placeholder string         `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	MaxLength   int            `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Pattern     string         `yaml:"validationPattern,omitempty" json:"validationPattern,omitempty"`
	Options     []Option       `yaml:"options,omitempty" json:"options,omitempty"`
	Description string         `yaml:"description" json:"description"`
	FieldGroup  bool           `yaml:"fieldGroup" json:"fieldGroup"`
	HasSettings bool           `yaml:"hasSettings" json:"hasSettings"`
}

func (t PredefinedTemplate) Key() string     { return string(t.Type) }
func (t PredefinedTemplate) Kind() FieldType { return t.FieldType }
func (t PredefinedTemplate) IsGroup() bool   { return t.FieldGroup }

func (t PredefinedTemplate) Describe() Description {
	d := Description{
		Key:         t.Key(),
		Label:       t.Label,
		Icon:        t.Icon,
		Description: t.Description,
		Kind:        t.FieldType,
		Predefined:  true,
		Required:    t.Required,
		Placeholder: t.Placeholder,
		MaxLength:   t.MaxLength,
		Group:       t.FieldGroup,
		HasSettings: t.HasSettings,
	}
	if t.HasSettings {
		d.Settings, _ = SettingsResource(t.Type)
	}
	return d
}

// Catalog: неизменяемый после загрузки набор шаблонов.
type Catalog struct {
	Name       string               `yaml:"name" json:"name"`
	Base       []BaseTemplate       `yaml:"base" json:"base"`
	Predefined []PredefinedTemplate `yaml:"predefined" json:"predefined"`
}

// Templates: все шаблоны, предопределённые первыми (вкладка по умолчанию).
func (c *Catalog) Templates() []Template {
	out := make([]Template, 0, len(c.Base)+len(c.Predefined))
	for _, p := range c.Predefined {
		out = append(out, p)
	}
	for _, b := range c.Base {
		out = append(out, b)
	}
	return out
}

// Icon возвращает иконку для поля: по предопределённому типу, иначе по виду.
func (c *Catalog) Icon(kind FieldType, predefined PredefinedType) string {
	if predefined != "" {
		for _, p := range c.Predefined {
			if p.Type == predefined {
				return p.Icon
			}
		}
	}
	for _, b := range c.Base {
		if b.Type == kind {
			return b.Icon
		}
	}
	return "text_fields"
}

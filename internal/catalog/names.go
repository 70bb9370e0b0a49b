// catalog/names.go
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTemplate = errors.New("unknown field template")

const (
	prefixBase       = "base:"
	prefixPredefined = "predefined:"
)

// normalizeKey приводит "guardian", "Guardian", "first-name" к виду FIRST_NAME.
func normalizeKey(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// Lookup ищет шаблон по ключу без учёта регистра.
// Ключ без префикса сначала ищется среди предопределённых (PHONE и EMAIL есть в обоих
// пространствах), затем среди базовых. Префиксы "base:" / "predefined:" снимают неоднозначность.
func (c *Catalog) Lookup(raw string) (Template, error) {
	name := strings.TrimSpace(raw)
	lower := strings.ToLower(name)
	wantBase, wantPredef := true, true
	switch {
	case strings.HasPrefix(lower, prefixBase):
		name = name[len(prefixBase):]
		wantPredef = false
	case strings.HasPrefix(lower, prefixPredefined):
		name = name[len(prefixPredefined):]
		wantBase = false
	}
	key := normalizeKey(name)
	if key == "" {
		return nil, ErrUnknownTemplate
	}

	if wantPredef {
		for _, p := range c.Predefined {
			if string(p.Type) == key {
				return p, nil
			}
		}
	}
	if wantBase {
		for _, b := range c.Base {
			if string(b.Type) == key {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, raw)
}

// PredefinedByType ищет предопределённый шаблон по типу.
func (c *Catalog) PredefinedByType(t PredefinedType) (PredefinedTemplate, bool) {
	for _, p := range c.Predefined {
		if p.Type == t {
			return p, true
		}
	}
	return PredefinedTemplate{}, false
}

// Package i18n держит каталоги сообщений консоли (sv по умолчанию, en)
// и выбирает язык запроса.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale: язык, в котором обязаны быть все ключи.
const BaseLocale = "sv"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle: все сообщения, по локалям.
type Bundle struct {
	locales map[string]map[string]string
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

// LoadEmbedded читает каталоги, вшитые в бинарь.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS читает locales/<locale>/<namespace>.yaml.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.addFile(p, f); err != nil {
			return nil, err
		}
	}
	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return b, nil
}

func (b *Bundle) addFile(p string, f catalogFile) error {
	dirLocale := path.Base(path.Dir(p))
	locale := strings.TrimSpace(f.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if locale != dirLocale {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, dirLocale)
	}
	if len(f.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", p)
	}
	msgs, ok := b.locales[locale]
	if !ok {
		msgs = map[string]string{}
		b.locales[locale] = msgs
	}
	for k, v := range f.Messages {
		key := strings.TrimSpace(k)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if _, dup := msgs[key]; dup {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", p, key, locale)
		}
		msgs[key] = v
	}
	return nil
}

// Register регистрирует сообщения в x/text/message.
func (b *Bundle) Register() error {
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		msgs := b.locales[locale]
		keys := make([]string, 0, len(msgs))
		for k := range msgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := message.SetString(tag, k, msgs[k]); err != nil {
				return fmt.Errorf("register %s/%s: %w", locale, k, err)
			}
		}
	}
	return nil
}

func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for l := range b.locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Message: сырая строка; при отсутствии ключа берётся базовая локаль.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if msgs, ok := b.locales[locale]; ok {
		if v, ok := msgs[key]; ok {
			return v, true
		}
	}
	v, ok := b.locales[BaseLocale][key]
	return v, ok
}

// Missing возвращает ключи базовой локали, которых нет в locale.
func (b *Bundle) Missing(locale string) []string {
	var out []string
	msgs := b.locales[locale]
	for k := range b.locales[BaseLocale] {
		if _, ok := msgs[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

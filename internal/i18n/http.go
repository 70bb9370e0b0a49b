package i18n

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam: query-параметр выбора языка.
	LangParam = "lang"
	// LangCookieName хранит выбранный язык.
	LangCookieName = "scoutadmin_lang"
)

// Localizer выбирает язык запроса и переводит ключи.
type Localizer struct {
	bundle    *Bundle
	supported []language.Tag
	matcher   language.Matcher
}

// New загружает вшитые каталоги, регистрирует их и ставит defaultLocale первым
// (matcher возвращает первый тег при отсутствии совпадений).
func New(defaultLocale string) (*Localizer, error) {
	b, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}
	return NewWithBundle(b, defaultLocale)
}

func NewWithBundle(b *Bundle, defaultLocale string) (*Localizer, error) {
	if err := b.Register(); err != nil {
		return nil, err
	}
	if defaultLocale == "" {
		defaultLocale = BaseLocale
	}
	if _, ok := b.locales[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q has no catalog", defaultLocale)
	}
	tags := []language.Tag{language.Make(defaultLocale)}
	for _, l := range b.Locales() {
		if l != defaultLocale {
			tags = append(tags, language.Make(l))
		}
	}
	return &Localizer{bundle: b, supported: tags, matcher: language.NewMatcher(tags)}, nil
}

func (l *Localizer) Supported() []language.Tag { return append([]language.Tag(nil), l.supported...) }

func (l *Localizer) Default() language.Tag { return l.supported[0] }

// Match сводит произвольные теги к поддерживаемому.
func (l *Localizer) Match(tags ...language.Tag) language.Tag {
	_, idx, conf := l.matcher.Match(tags...)
	if conf == language.No {
		return l.Default()
	}
	return l.supported[idx]
}

// ParseTag принимает только поддерживаемые языки.
func (l *Localizer) ParseTag(raw string) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(raw))
	if err != nil {
		return language.Und, false
	}
	_, idx, conf := l.matcher.Match(tag)
	if conf < language.High {
		return language.Und, false
	}
	return l.supported[idx], true
}

// ResolveTag: ?lang=, затем cookie, затем Accept-Language, затем язык по умолчанию.
// bool: нужно ли сохранить выбор в cookie.
func (l *Localizer) ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return l.Default(), false
	}
	if v := strings.TrimSpace(r.URL.Query().Get(LangParam)); v != "" {
		if tag, ok := l.ParseTag(v); ok {
			return tag, true
		}
	}
	if c, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := l.ParseTag(c.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return l.Match(tags...), false
		}
	}
	return l.Default(), false
}

// SetLanguageCookie сохраняет выбранный язык на год.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag, secure bool) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// T переводит ключ; неизвестный ключ возвращается как есть.
func (l *Localizer) T(tag language.Tag, key string, args ...any) string {
	return Printer(tag).Sprintf(key, args...)
}

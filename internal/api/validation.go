package api

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"scoutadmin/internal/catalog"
	"scoutadmin/internal/form"
	"scoutadmin/internal/i18n"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок полей
const (
	ErrRequired        = "required"
	ErrTypeMismatch    = "type_mismatch"
	ErrEnumInvalid     = "enum_invalid"
	ErrTooLong         = "too_long"
	ErrPatternMismatch = "pattern_mismatch"
	ErrEmailInvalid    = "email_invalid"
	ErrEmailMismatch   = "email_mismatch"
	ErrPhoneInvalid    = "phone_invalid"
	ErrPersonalNumber  = "personal_number_invalid"
	ErrDateInvalid     = "date_invalid"
	ErrNumberInvalid   = "number_invalid"
	ErrDateOrder       = "date_order"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,18}[0-9]$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`) // YYYY-MM-DD
	// ÅÅÅÅMMDD-NNNN или ÅÅMMDD-NNNN, дефис или плюс необязателен
	personalNumberRe = regexp.MustCompile(`^(\d{2})?(\d{6})[-+]?(\d{4})$`)
)

// translator: перевод ключа на язык запроса.
type translator func(key string, args ...any) string

// ValidateAnswers проверяет ответы предпросмотра против текущего холста.
// Ответы адресуются ключом поля (id или temp-id). Скрытые поля не проверяются.
func ValidateAnswers(rows []form.Row, answers map[string]any, t translator) []FieldError {
	var errs []FieldError
	for _, r := range rows {
		for _, f := range r.Fields {
			if !f.Visible {
				continue
			}
			errs = append(errs, validateAnswer(f, answers[f.Key()], t)...)
		}
	}

	// подтверждение e-post должно совпадать с адресом
	for _, pair := range form.ConfirmationPair(rows) {
		a, b := pair[0], pair[1]
		if !a.Visible || !b.Visible {
			continue
		}
		av, _ := answerString(answers[a.Key()])
		bv, _ := answerString(answers[b.Key()])
		if strings.TrimSpace(av) != "" && !strings.EqualFold(strings.TrimSpace(av), strings.TrimSpace(bv)) {
			errs = append(errs, ferr(ErrEmailMismatch, b.Key(), t(i18n.MsgEmailMismatch)))
		}
	}
	return errs
}

func validateAnswer(f form.Field, raw any, t translator) []FieldError {
	key := f.Key()

	// список чекбоксов; варианты FOOD_ALLERGY приходят из справочника бэкенда
	if f.Type == catalog.FieldCheckbox && (len(f.Options) > 0 || f.Predefined == catalog.PredefinedFoodAllergy) {
		vals, ok := answerList(raw)
		if !ok {
			return []FieldError{ferr(ErrTypeMismatch, key, t(i18n.MsgOption))}
		}
		if f.Required && len(vals) == 0 {
			return []FieldError{ferr(ErrRequired, key, t(i18n.MsgRequired))}
		}
		for _, v := range vals {
			if len(f.Options) > 0 && !hasOption(f, v) {
				return []FieldError{ferr(ErrEnumInvalid, key, t(i18n.MsgOption))}
			}
		}
		return nil
	}

	// одиночный чекбокс (ja/nej): обязательный значит отмеченный
	if f.Type == catalog.FieldCheckbox {
		b, ok := answerBool(raw)
		if !ok {
			return []FieldError{ferr(ErrTypeMismatch, key, t(i18n.MsgRequired))}
		}
		if f.Required && !b {
			return []FieldError{ferr(ErrRequired, key, t(i18n.MsgRequired))}
		}
		return nil
	}

	s, ok := answerString(raw)
	if !ok {
		return []FieldError{ferr(ErrTypeMismatch, key, t(i18n.MsgBadRequest))}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if f.Required {
			return []FieldError{ferr(ErrRequired, key, t(i18n.MsgRequired))}
		}
		return nil
	}

	if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
		return []FieldError{ferr(ErrTooLong, key, t(i18n.MsgTooLong, f.MaxLength))}
	}

	switch f.Type {
	case catalog.FieldEmail:
		if !emailRe.MatchString(s) {
			return []FieldError{ferr(ErrEmailInvalid, key, t(i18n.MsgEmail))}
		}
	case catalog.FieldPhone:
		if !phoneRe.MatchString(s) {
			return []FieldError{ferr(ErrPhoneInvalid, key, t(i18n.MsgPhone))}
		}
	case catalog.FieldNumber:
		if _, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err != nil {
			return []FieldError{ferr(ErrNumberInvalid, key, t(i18n.MsgNumber))}
		}
	case catalog.FieldDate:
		if !validDate(s) {
			return []FieldError{ferr(ErrDateInvalid, key, t(i18n.MsgDate))}
		}
	case catalog.FieldSelect:
		// варианты TROOP приходят из справочника бэкенда
		if f.Predefined != catalog.PredefinedTroop && len(f.Options) > 0 && !hasOption(f, s) {
			return []FieldError{ferr(ErrEnumInvalid, key, t(i18n.MsgOption))}
		}
	}

	if f.Predefined == catalog.PredefinedPersonalNumber && !ValidPersonalNumber(s) {
		return []FieldError{ferr(ErrPersonalNumber, key, t(i18n.MsgPersonalNumber))}
	}

	if f.Pattern != "" {
		re, err := regexp.Compile(anchored(f.Pattern))
		// некорректный шаблон ловит линтер формы
		if err == nil && !re.MatchString(s) {
			return []FieldError{ferr(ErrPatternMismatch, key, t(i18n.MsgPattern))}
		}
	}
	return nil
}

// anchored: шаблон применяется ко всему значению.
func anchored(p string) string {
	if !strings.HasPrefix(p, "^") {
		p = "^(?:" + p + ")"
	}
	if !strings.HasSuffix(p, "$") {
		p += "$"
	}
	return p
}

func validDate(s string) bool {
	if dateRe.MatchString(s) {
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

func hasOption(f form.Field, v string) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// ValidPersonalNumber проверяет формат и контрольную цифру (Luhn по 10 последним цифрам).
func ValidPersonalNumber(s string) bool {
	m := personalNumberRe.FindStringSubmatch(strings.ReplaceAll(s, " ", ""))
	if m == nil {
		return false
	}
	digits := m[2] + m[3] // ÅÅMMDDNNNN
	month, _ := strconv.Atoi(digits[2:4])
	day, _ := strconv.Atoi(digits[4:6])
	// samordningsnummer: день + 60
	if day > 60 {
		day -= 60
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	sum := 0
	for i, r := range digits {
		d := int(r - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

func answerString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func answerBool(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, true
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "ja", "on":
			return true, true
		case "", "false", "0", "no", "nej", "off":
			return false, true
		}
	}
	return false, false
}

func answerList(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		if t == "" {
			return nil, true
		}
		return []string{t}, true
	default:
		return nil, false
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translation "github.com/go-playground/validator/v10/translations/en"

	"scoutadmin/internal/backend"
	"scoutadmin/internal/i18n"
)

// inputValidator проверяет тела запросов по тегам validate; имена полей, из json-тегов.
type inputValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newInputValidator() (*inputValidator, error) {
	uni := ut.New(en.New(), en.New())
	translator, _ := uni.GetTranslator("en")
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := en_translation.RegisterDefaultTranslations(v, translator); err != nil {
		return nil, err
	}
	v.RegisterStructValidation(eventInputRules, eventInput{})
	return &inputValidator{validate: v, translator: translator}, nil
}

// Struct возвращает ошибки по полям; nil, всё в порядке.
func (iv *inputValidator) Struct(s any) []FieldError {
	err := iv.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{ferr(ErrTypeMismatch, "", err.Error())}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		code := fe.Tag()
		if code == "required" {
			code = ErrRequired
		}
		out = append(out, ferr(code, field, fe.Translate(iv.translator)))
	}
	return out
}

// bind разбирает JSON и проверяет его; при ошибке отвечает 400 сам.
func (w *Workspace) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": w.tr(c, i18n.MsgBadRequest), "code": CodeBadRequest})
		return false
	}
	if errs := w.input.Struct(dst); len(errs) > 0 {
		w.localizeFieldErrors(c, errs)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": errs})
		return false
	}
	return true
}

// localizeFieldErrors подменяет сообщения, для которых есть перевод консоли.
func (w *Workspace) localizeFieldErrors(c *gin.Context, errs []FieldError) {
	for i := range errs {
		switch errs[i].Code {
		case ErrRequired:
			errs[i].Message = w.tr(c, i18n.MsgRequired)
		case "email":
			errs[i].Message = w.tr(c, i18n.MsgEmail)
		case ErrDateOrder:
			errs[i].Message = w.tr(c, i18n.MsgDateOrder)
		}
	}
}

// ===== DTO =====

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type changePasswordInput struct {
	CurrentPassword *string `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string  `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type eventInput struct {
	Name          string           `json:"name" validate:"required,max=200"`
	Description   string           `json:"description" validate:"max=2000"`
	StartDate     backend.FlexTime `json:"startDate"`
	EndDate       backend.FlexTime `json:"endDate"`
	StreetAddress string           `json:"streetAddress" validate:"max=200"`
	PostalCode    string           `json:"postalCode" validate:"max=10"`
	City          string           `json:"city" validate:"max=100"`
	Capacity      *int             `json:"capacity" validate:"omitempty,min=0"`
	Active        bool             `json:"active"`
}

func eventInputRules(sl validator.StructLevel) {
	in := sl.Current().Interface().(eventInput)
	if in.StartDate.IsZero() {
		sl.ReportError(in.StartDate, "startDate", "StartDate", "required", "")
	}
	if in.EndDate.IsZero() {
		sl.ReportError(in.EndDate, "endDate", "EndDate", "required", "")
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && !in.EndDate.After(in.StartDate.Time) {
		sl.ReportError(in.EndDate, "endDate", "EndDate", ErrDateOrder, "")
	}
}

func (in eventInput) toEvent() backend.Event {
	return backend.Event{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		StreetAddress: in.StreetAddress,
		PostalCode:    in.PostalCode,
		City:          in.City,
		Capacity:      in.Capacity,
		Active:        in.Active,
	}
}

type participantInput struct {
	FirstName      string           `json:"firstName" validate:"required,max=100"`
	LastName       string           `json:"lastName" validate:"required,max=100"`
	Email          string           `json:"email" validate:"omitempty,email"`
	Phone          string           `json:"phone" validate:"max=30"`
	BirthDate      backend.FlexTime `json:"birthDate"`
	PersonalNumber string           `json:"personalNumber" validate:"max=13"`
	StreetAddress  string           `json:"streetAddress" validate:"max=200"`
	PostalCode     string           `json:"postalCode" validate:"max=10"`
	City           string           `json:"city" validate:"max=100"`
	GuardianName   string           `json:"guardianName" validate:"max=200"`
	GuardianEmail  string           `json:"guardianEmail" validate:"omitempty,email"`
	GuardianPhone  string           `json:"guardianPhone" validate:"max=30"`
	PatrolID       *int64           `json:"patrolId" validate:"omitempty,gt=0"`
}

func (in participantInput) toParticipant() backend.Participant {
	return backend.Participant{
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          in.Email,
		Phone:          in.Phone,
		BirthDate:      in.BirthDate,
		PersonalNumber: in.PersonalNumber,
		StreetAddress:  in.StreetAddress,
		PostalCode:     in.PostalCode,
		City:           in.City,
		GuardianName:   in.GuardianName,
		GuardianEmail:  in.GuardianEmail,
		GuardianPhone:  in.GuardianPhone,
		PatrolID:       in.PatrolID,
	}
}

type patrolInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=1000"`
	ContactPerson string `json:"contactPerson" validate:"max=200"`
	ContactEmail  string `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone  string `json:"contactPhone" validate:"max=30"`
	EventID       *int64 `json:"eventId" validate:"omitempty,gt=0"`
}

func (in patrolInput) toPatrol() backend.Patrol {
	return backend.Patrol{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		ContactPerson: in.ContactPerson,
		ContactEmail:  in.ContactEmail,
		ContactPhone:  in.ContactPhone,
		EventID:       in.EventID,
	}
}

type registrationInput struct {
	EventID       int64  `json:"eventId" validate:"required,gt=0"`
	ParticipantID int64  `json:"participantId" validate:"required,gt=0"`
	Notes         string `json:"notes" validate:"max=2000"`
}

type allergenInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Severity    string `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	EventID     *int64 `json:"eventId" validate:"omitempty,gt=0"`
	IsGlobal    bool   `json:"isGlobal"`
}

func (in allergenInput) toAllergen() backend.Allergen {
	return backend.Allergen{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Severity:    in.Severity,
		EventID:     in.EventID,
		IsGlobal:    in.IsGlobal,
	}
}

// nameInput: справочники из одного имени (troops, food-allergies).
type nameInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	SortOrder int    `json:"sortOrder" validate:"min=0"`
}

type allergensInput struct {
	AllergenIDs []int64 `json:"allergenIds" validate:"dive,gt=0"`
}

type notesInput struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type createUserInput struct {
	FirstName        string `json:"firstName" validate:"max=100"`
	LastName         string `json:"lastName" validate:"max=100"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	SendNotification bool   `json:"sendNotification"`
}

type updateUserInput struct {
	FirstName string       `json:"firstName" validate:"max=100"`
	LastName  string       `json:"lastName" validate:"max=100"`
	Email     string       `json:"email" validate:"required,email"`
	Role      backend.Role `json:"role" validate:"required,oneof=ADMIN SUPERADMIN"`
}

type lockInput struct {
	Locked bool `json:"locked"`
}

type activeInput struct {
	Active *bool `json:"active" validate:"required"`
}

type idsInput struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=200,dive,gt=0"`
}

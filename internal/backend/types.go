package backend

import "scoutadmin/internal/catalog"

// ===== Auth =====

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

type User struct {
	ID                 int64    `json:"id"`
	Email              string   `json:"email"`
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	Role               Role     `json:"role"`
	Locked             bool     `json:"locked"`
	MustChangePassword bool     `json:"mustChangePassword"`
	CreatedAt          FlexTime `json:"createdAt,omitempty"`
	LastLogin          FlexTime `json:"lastLogin,omitempty"`
}

func (u User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token              string `json:"token"`
	User               User   `json:"user"`
	MustChangePassword bool   `json:"mustChangePassword"`
	Message            string `json:"message,omitempty"`
	ExpiresIn          int64  `json:"expiresIn,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword *string `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

type CreateUserRequest struct {
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	SendNotification bool   `json:"sendNotification"`
}

type UserCounts struct {
	Total       int `json:"total"`
	Admins      int `json:"admins"`
	SuperAdmins int `json:"superadmins"`
}

type ResetPasswordResponse struct {
	Message     string `json:"message"`
	NewPassword string `json:"newPassword"`
}

// ===== Events =====

type Event struct {
	ID                int64    `json:"id,omitempty"`
	Name              string   `json:"name"`
	Slug              string   `json:"slug,omitempty"`
	Description       string   `json:"description,omitempty"`
	StartDate         FlexTime `json:"startDate"`
	EndDate           FlexTime `json:"endDate"`
	StreetAddress     string   `json:"streetAddress,omitempty"`
	PostalCode        string   `json:"postalCode,omitempty"`
	City              string   `json:"city,omitempty"`
	Capacity          *int     `json:"capacity,omitempty"`
	Active            bool     `json:"active"`
	CreatedAt         FlexTime `json:"createdAt,omitempty"`
	UpdatedAt         FlexTime `json:"updatedAt,omitempty"`
	RegistrationCount int      `json:"registrationCount"`
	RemainingSpots    *int     `json:"remainingSpots,omitempty"`
}

type EventPatch struct {
	Active      *bool   `json:"active,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ===== Participants / patrols =====

type Allergen struct {
	ID                       int64  `json:"id,omitempty"`
	Name                     string `json:"name"`
	Description              string `json:"description,omitempty"`
	Severity                 string `json:"severity"`
	EventID                  *int64 `json:"eventId,omitempty"`
	IsGlobal                 bool   `json:"isGlobal,omitempty"`
	IsCritical               bool   `json:"isCritical,omitempty"`
	AffectedParticipantCount int    `json:"affectedParticipantCount,omitempty"`
}

type Participant struct {
	ID             int64      `json:"id,omitempty"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	BirthDate      FlexTime   `json:"birthDate,omitempty"`
	PersonalNumber string     `json:"personalNumber,omitempty"`
	StreetAddress  string     `json:"streetAddress,omitempty"`
	PostalCode     string     `json:"postalCode,omitempty"`
	City           string     `json:"city,omitempty"`
	GuardianName   string     `json:"guardianName,omitempty"`
	GuardianEmail  string     `json:"guardianEmail,omitempty"`
	GuardianPhone  string     `json:"guardianPhone,omitempty"`
	PatrolID       *int64     `json:"patrolId,omitempty"`
	PatrolName     string     `json:"patrolName,omitempty"`
	FullName       string     `json:"fullName,omitempty"`
	Age            *int       `json:"age,omitempty"`
	IsMinor        bool       `json:"isMinor,omitempty"`
	HasAllergens   bool       `json:"hasAllergens,omitempty"`
	Allergens      []Allergen `json:"allergens,omitempty"`
	CreatedAt      FlexTime   `json:"createdAt,omitempty"`
	UpdatedAt      FlexTime   `json:"updatedAt,omitempty"`
}

type Patrol struct {
	ID               int64  `json:"id,omitempty"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	ContactPerson    string `json:"contactPerson,omitempty"`
	ContactEmail     string `json:"contactEmail,omitempty"`
	ContactPhone     string `json:"contactPhone,omitempty"`
	EventID          *int64 `json:"eventId,omitempty"`
	EventName        string `json:"eventName,omitempty"`
	ParticipantCount int    `json:"participantCount,omitempty"`
}

// ===== Registrations =====

type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "PENDING"
	StatusConfirmed RegistrationStatus = "CONFIRMED"
	StatusCancelled RegistrationStatus = "CANCELLED"
	StatusWaitlist  RegistrationStatus = "WAITLIST"
)

type RegistrationAllergy struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Severity string `json:"severity,omitempty"`
}

type Registration struct {
	ID               int64                 `json:"id,omitempty"`
	EventID          int64                 `json:"eventId"`
	EventName        string                `json:"eventName,omitempty"`
	ParticipantID    int64                 `json:"participantId"`
	Status           RegistrationStatus    `json:"status,omitempty"`
	RegistrationDate FlexTime              `json:"registrationDate,omitempty"`
	ConfirmationDate FlexTime              `json:"confirmationDate,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	FirstName        string                `json:"firstName,omitempty"`
	LastName         string                `json:"lastName,omitempty"`
	Email            string                `json:"email,omitempty"`
	Phone            string                `json:"phone,omitempty"`
	PatrolName       string                `json:"patrolName,omitempty"`
	GuardianName     string                `json:"guardianName,omitempty"`
	GuardianEmail    string                `json:"guardianEmail,omitempty"`
	GuardianPhone    string                `json:"guardianPhone,omitempty"`
	Allergies        []RegistrationAllergy `json:"allergies,omitempty"`
}

// ===== Global lists managed from the form builder =====

type Troop struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder,omitempty"`
}

type FoodAllergy struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder,omitempty"`
}

// ===== Allergy report =====

type AllergyParticipant struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullName"`
	Patrol    string `json:"patrol,omitempty"`
	OtherInfo string `json:"otherInfo,omitempty"`
}

type AllergyGroup struct {
	AllergyName  string               `json:"allergyName"`
	Count        int                  `json:"count"`
	Participants []AllergyParticipant `json:"participants"`
}

type AllergyReport struct {
	EventID                        int64          `json:"eventId"`
	EventName                      string         `json:"eventName"`
	Allergies                      []AllergyGroup `json:"allergies"`
	TotalParticipantsWithAllergies int            `json:"totalParticipantsWithAllergies"`
	GeneratedAt                    FlexTime       `json:"generatedAt"`
}

// ===== Form fields =====

type FieldOption struct {
	ID        *int64 `json:"id,omitempty"`
	Value     string `json:"value"`
	Label     string `json:"label"`
	SortOrder int    `json:"sortOrder,omitempty"`
}

// FormField: плоское представление поля формы, как его принимает и отдаёт бэкенд.
// ID == nil означает «создать».
type FormField struct {
	ID                *int64                 `json:"id,omitempty"`
	EventID           *int64                 `json:"eventId,omitempty"`
	Label             string                 `json:"label"`
	FieldType         catalog.FieldType      `json:"fieldType"`
	PredefinedType    catalog.PredefinedType `json:"predefinedType,omitempty"`
	IsPredefined      bool                   `json:"isPredefined"`
	Required          bool                   `json:"required"`
	Visible           bool                   `json:"visible"`
	Placeholder       string                 `json:"placeholder,omitempty"`
	MaxLength         *int                   `json:"maxLength,omitempty"`
	ValidationPattern string                 `json:"validationPattern,omitempty"`
	Options           []FieldOption          `json:"options"`
	RowIndex          int                    `json:"rowIndex"`
	ColPosition       int                    `json:"colPosition"`
	ColWidth          int                    `json:"colWidth,omitempty"`
	SortOrder         int                    `json:"sortOrder"`
}

// Download: файл экспорта, отданный бэкендом.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

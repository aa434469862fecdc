package models

import (
	"time"

	"gorm.io/datatypes"
)

// Identity is the authenticated principal owned by the auth backend.
type Identity struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string            `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string            `json:"-"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb" json:"user_metadata,omitempty"`
	ConfirmationHash string            `gorm:"index" json:"-"`
	EmailConfirmedAt *time.Time        `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SignupType returns the role hint declared at sign-up, or "" when absent.
func (i *Identity) SignupType() string {
	if i == nil || i.Metadata == nil {
		return ""
	}
	s, _ := i.Metadata[SignupTypeKey].(string)
	return s
}

type RefreshToken struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID string    `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	TokenHash  string    `gorm:"not null;uniqueIndex" json:"-"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Revoked    bool      `gorm:"default:false" json:"revoked"`
}

type TrainerProfile struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID       string         `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	Email            string         `gorm:"uniqueIndex;not null" json:"email"`
	FullName         string         `gorm:"not null" json:"full_name"`
	PhoneNumber      string         `json:"phone_number"`
	GovernmentID     string         `json:"government_id"`
	Bio              string         `gorm:"type:text" json:"bio"`
	Experience       string         `json:"experience"`
	CareerMotivation string         `gorm:"type:text" json:"career_motivation"`
	Certifications   datatypes.JSON `gorm:"type:jsonb" json:"certifications"`
	Specializations  datatypes.JSON `gorm:"type:jsonb" json:"specializations"`
	HourlyRate       *float64       `json:"hourly_rate"`
	ProfileImageURL  string         `json:"profile_image_url"`
	Status           TrainerStatus  `gorm:"type:text;default:pending;index" json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type AdminProfile struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID string    `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName   string    `gorm:"not null" json:"full_name"`
	Status     string    `gorm:"type:text;default:active" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type UserProfile struct {
	ID                    string         `gorm:"type:uuid;primaryKey" json:"id"`
	IdentityID            string         `gorm:"type:uuid;index;column:user_id" json:"user_id"`
	Email                 string         `gorm:"uniqueIndex;not null" json:"email"`
	FullName              string         `gorm:"not null" json:"full_name"`
	Age                   *int           `json:"age"`
	Gender                string         `json:"gender"`
	PhoneNumber           string         `json:"phone_number"`
	ExperienceLevel       string         `json:"experience_level"`
	FitnessGoals          datatypes.JSON `gorm:"type:jsonb" json:"fitness_goals"`
	PreferredWorkoutTypes datatypes.JSON `gorm:"type:jsonb" json:"preferred_workout_types"`
	HealthConditions      string         `gorm:"type:text" json:"health_conditions"`
	AvatarURL             string         `json:"avatar_url"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// TrainerTimeSlots holds a trainer's weekly availability as a JSON document.
type TrainerTimeSlots struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	TrainerID string         `gorm:"type:uuid;uniqueIndex" json:"trainer_id"`
	TimeSlots datatypes.JSON `gorm:"type:jsonb;not null" json:"time_slots"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type TrainerSession struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	TrainerID   string    `gorm:"type:uuid;index;not null" json:"trainer_id"`
	ClientName  string    `gorm:"not null" json:"client_name"`
	SessionDate time.Time `gorm:"type:date;index;not null" json:"session_date"`
	StartTime   string    `gorm:"not null" json:"start_time"`
	EndTime     string    `gorm:"not null" json:"end_time"`
	SessionType string    `gorm:"not null" json:"session_type"`
	Status      string    `gorm:"type:text;default:scheduled" json:"status"`
	Earnings    *float64  `json:"earnings"`
	Rating      *int      `json:"rating"`
	Feedback    string    `gorm:"type:text" json:"feedback"`
	CreatedAt   time.Time `json:"created_at"`
}

type TrainerDocument struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TrainerID string    `gorm:"type:uuid;index;not null" json:"trainer_id"`
	Kind      string    `gorm:"not null" json:"kind"`
	Filename  string    `json:"filename"`
	URLSuffix string    `gorm:"not null" json:"url_suffix"`
	CreatedAt time.Time `json:"created_at"`
}

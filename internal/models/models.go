package models

import "time"

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Role is derived per query from which profile row exists for an email. It is never stored.
type Role string

const (
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleNone    Role = "none"
)

// TrainerStatus is the review state of a trainer profile. The zero value means no status.
type TrainerStatus string

const (
	TrainerPending  TrainerStatus = "pending"
	TrainerApproved TrainerStatus = "approved"
	TrainerRejected TrainerStatus = "rejected"
)

// SignupTypeKey is the metadata key holding the role hint declared at sign-up.
const SignupTypeKey = "signup_type"

// Session is what the auth backend hands out on sign-in and refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *Identity `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// TrainerApplication is what an applicant submits to become a trainer.
type TrainerApplication struct {
	FullName         string   `json:"full_name"`
	PhoneNumber      string   `json:"phone_number"`
	GovernmentID     string   `json:"government_id"`
	Bio              string   `json:"bio"`
	Experience       string   `json:"experience"`
	CareerMotivation string   `json:"career_motivation"`
	Certifications   []string `json:"certifications"`
	Specializations  []string `json:"specializations"`
	HourlyRate       *float64 `json:"hourly_rate"`
}

type UserProfileInput struct {
	FullName              string   `json:"full_name"`
	Age                   *int     `json:"age"`
	Gender                string   `json:"gender"`
	PhoneNumber           string   `json:"phone_number"`
	ExperienceLevel       string   `json:"experience_level"`
	FitnessGoals          []string `json:"fitness_goals"`
	PreferredWorkoutTypes []string `json:"preferred_workout_types"`
	HealthConditions      string   `json:"health_conditions"`
}

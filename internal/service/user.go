package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

var (
	// ErrAlreadyApplied is returned for a second application while one is pending or approved.
	ErrAlreadyApplied = errors.New("trainer application already submitted")
	// ErrHasProfile is returned when the email already holds a profile of another kind.
	ErrHasProfile   = errors.New("email already has a profile")
	ErrInvalidInput = errors.New("invalid input")
)

// ProfileStore is the persistence ProfileService needs.
type ProfileStore interface {
	CreateTrainerProfile(ctx context.Context, p *models.TrainerProfile) error
	GetTrainerProfileByIdentity(ctx context.Context, identityID string) (*models.TrainerProfile, error)
	UpdateTrainerProfileFields(ctx context.Context, id string, fields map[string]interface{}) error
	CreateUserProfile(ctx context.Context, p *models.UserProfile) error
}

// ProfileService writes the profile rows roles are derived from.
type ProfileService struct {
	store ProfileStore
}

func NewProfileService(s ProfileStore) *ProfileService {
	return &ProfileService{store: s}
}

// Apply files a trainer application for id. A rejected applicant may apply
// again, which puts the existing profile back to pending.
func (p *ProfileService) Apply(ctx context.Context, id *models.Identity, app models.TrainerApplication) (*models.TrainerProfile, error) {
	if strings.TrimSpace(app.FullName) == "" {
		return nil, ErrInvalidInput
	}

	existing, err := p.store.GetTrainerProfileByIdentity(ctx, id.ID)
	switch {
	case err == nil && existing.Status != models.TrainerRejected:
		return nil, ErrAlreadyApplied
	case err == nil:
		fields := map[string]interface{}{
			"full_name":         app.FullName,
			"phone_number":      app.PhoneNumber,
			"government_id":     app.GovernmentID,
			"bio":               app.Bio,
			"experience":        app.Experience,
			"career_motivation": app.CareerMotivation,
			"certifications":    utils.DatatypesJSONFromStrings(app.Certifications),
			"specializations":   utils.DatatypesJSONFromStrings(app.Specializations),
			"hourly_rate":       app.HourlyRate,
			"status":            models.TrainerPending,
		}
		if err := p.store.UpdateTrainerProfileFields(ctx, existing.ID, fields); err != nil {
			return nil, err
		}
		return p.store.GetTrainerProfileByIdentity(ctx, id.ID)
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	now := time.Now()
	profile := &models.TrainerProfile{
		ID:               utils.GenerateID(),
		IdentityID:       id.ID,
		Email:            id.Email,
		FullName:         app.FullName,
		PhoneNumber:      app.PhoneNumber,
		GovernmentID:     app.GovernmentID,
		Bio:              app.Bio,
		Experience:       app.Experience,
		CareerMotivation: app.CareerMotivation,
		Certifications:   utils.DatatypesJSONFromStrings(app.Certifications),
		Specializations:  utils.DatatypesJSONFromStrings(app.Specializations),
		HourlyRate:       app.HourlyRate,
		Status:           models.TrainerPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := p.store.CreateTrainerProfile(ctx, profile); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrHasProfile
		}
		return nil, err
	}
	return profile, nil
}

// ApplicationStatus reports the caller's application state and where the
// application flow should send them next. Status is empty when they never applied.
func (p *ProfileService) ApplicationStatus(ctx context.Context, id *models.Identity) (models.TrainerStatus, string, error) {
	profile, err := p.store.GetTrainerProfileByIdentity(ctx, id.ID)
	if errors.Is(err, store.ErrNotFound) {
		return "", roles.ApplicationPath(""), nil
	}
	if err != nil {
		return "", "", err
	}
	return profile.Status, roles.ApplicationPath(profile.Status), nil
}

// CreateUserProfile makes id a member. It fails with ErrHasProfile when the
// email is already a trainer, admin or member.
func (p *ProfileService) CreateUserProfile(ctx context.Context, id *models.Identity, in models.UserProfileInput) (*models.UserProfile, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return nil, ErrInvalidInput
	}
	if in.Age != nil && (*in.Age < 1 || *in.Age > 120) {
		return nil, ErrInvalidInput
	}
	now := time.Now()
	profile := &models.UserProfile{
		ID:                    utils.GenerateID(),
		IdentityID:            id.ID,
		Email:                 id.Email,
		FullName:              in.FullName,
		Age:                   in.Age,
		Gender:                in.Gender,
		PhoneNumber:           in.PhoneNumber,
		ExperienceLevel:       in.ExperienceLevel,
		FitnessGoals:          utils.DatatypesJSONFromStrings(in.FitnessGoals),
		PreferredWorkoutTypes: utils.DatatypesJSONFromStrings(in.PreferredWorkoutTypes),
		HealthConditions:      in.HealthConditions,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := p.store.CreateUserProfile(ctx, profile); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrHasProfile
		}
		return nil, err
	}
	return profile, nil
}

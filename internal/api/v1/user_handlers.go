package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/service"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

type UserHandler struct {
	store    serviceStore
	profiles *service.ProfileService
	log      logging.Logger
}

func NewUserHandler(store serviceStore, profiles *service.ProfileService, log logging.Logger) *UserHandler {
	return &UserHandler{store: store, profiles: profiles, log: log}
}

// POST /users/profile - member sign-up completes here
func (h *UserHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.UserProfileInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid request", nil, err.Error())
		return
	}

	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	profile, err := h.profiles.CreateUserProfile(ctx, current, in)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "full_name is required and age must be between 1 and 120", nil, nil)
		return
	case errors.Is(err, service.ErrHasProfile):
		utils.WriteJSONResponse(w, http.StatusConflict, false, err.Error(), nil, nil)
		return
	case err != nil:
		internalError(w, r, h.log, "error creating profile", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "profile created", map[string]interface{}{
		"profile":       profile,
		"redirect_path": roles.UserDashboardPath,
	}, nil)
}

// GET /users/me
func (h *UserHandler) GetSelfProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	u, err := h.store.GetUserProfileByIdentity(ctx, current.ID)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "not found", nil, nil)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", u, nil)
}

// PUT /users/me - profile fields only; email and identity are fixed
func (h *UserHandler) UpdateSelfProfile(w http.ResponseWriter, r *http.Request) {
	// payload with pointers to detect omitted fields
	var payload struct {
		FullName              *string   `json:"full_name,omitempty"`
		Age                   *int      `json:"age,omitempty"`
		Gender                *string   `json:"gender,omitempty"`
		PhoneNumber           *string   `json:"phone_number,omitempty"`
		ExperienceLevel       *string   `json:"experience_level,omitempty"`
		FitnessGoals          *[]string `json:"fitness_goals,omitempty"`
		PreferredWorkoutTypes *[]string `json:"preferred_workout_types,omitempty"`
		HealthConditions      *string   `json:"health_conditions,omitempty"`
		AvatarURL             *string   `json:"avatar_url,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "bad request", nil, err.Error())
		return
	}

	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	updates := map[string]interface{}{}
	if payload.FullName != nil {
		if *payload.FullName == "" {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "full_name cannot be empty", nil, nil)
			return
		}
		updates["full_name"] = *payload.FullName
	}
	if payload.Age != nil {
		if *payload.Age < 1 || *payload.Age > 120 {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "age must be between 1 and 120", nil, nil)
			return
		}
		updates["age"] = *payload.Age
	}
	if payload.Gender != nil {
		updates["gender"] = *payload.Gender
	}
	if payload.PhoneNumber != nil {
		updates["phone_number"] = *payload.PhoneNumber
	}
	if payload.ExperienceLevel != nil {
		updates["experience_level"] = *payload.ExperienceLevel
	}
	if payload.FitnessGoals != nil {
		updates["fitness_goals"] = utils.DatatypesJSONFromStrings(*payload.FitnessGoals)
	}
	if payload.PreferredWorkoutTypes != nil {
		updates["preferred_workout_types"] = utils.DatatypesJSONFromStrings(*payload.PreferredWorkoutTypes)
	}
	if payload.HealthConditions != nil {
		updates["health_conditions"] = *payload.HealthConditions
	}
	if payload.AvatarURL != nil {
		updates["avatar_url"] = *payload.AvatarURL
	}
	if len(updates) == 0 {
		utils.WriteJSONResponse(w, http.StatusOK, true, "nothing to update", nil, nil)
		return
	}

	err := h.store.UpdateUserProfileFields(ctx, current.ID, updates)
	if errors.Is(err, store.ErrNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "profile not found", nil, nil)
		return
	}
	if err != nil {
		internalError(w, r, h.log, "update failed", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "updated", nil, nil)
}

package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/datatypes"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/service"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

// TrainerDirectory lists the trainers members can browse.
type TrainerDirectory interface {
	ListApprovedTrainers(ctx context.Context, specialization string) ([]*models.TrainerProfile, error)
}

type TrainerHandler struct {
	store     serviceStore
	directory TrainerDirectory
	profiles  *service.ProfileService
	log       logging.Logger
}

func NewTrainerHandler(store serviceStore, profiles *service.ProfileService, log logging.Logger) *TrainerHandler {
	return &TrainerHandler{store: store, directory: store, profiles: profiles, log: log}
}

// currentTrainer loads the caller's trainer profile, writing the error response itself
// when there is none.
func currentTrainer(w http.ResponseWriter, r *http.Request, s serviceStore, log logging.Logger) (*models.TrainerProfile, bool) {
	current := auth.GetIdentityFromCtx(r.Context())
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return nil, false
	}
	t, err := s.GetTrainerProfileByIdentity(r.Context(), current.ID)
	if errors.Is(err, store.ErrNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "trainer profile not found", nil, nil)
		return nil, false
	}
	if err != nil {
		internalError(w, r, log, "error loading trainer profile", err)
		return nil, false
	}
	return t, true
}

// GET /trainers?specialization=yoga - approved trainers for members to browse
func (h *TrainerHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	spec := strings.TrimSpace(r.URL.Query().Get("specialization"))
	trainers, err := h.directory.ListApprovedTrainers(r.Context(), spec)
	if err != nil {
		internalError(w, r, h.log, "error fetching trainers", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", trainers, nil)
}

// POST /trainers/application
func (h *TrainerHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var app models.TrainerApplication
	if err := json.NewDecoder(r.Body).Decode(&app); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid request", nil, err.Error())
		return
	}

	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	profile, err := h.profiles.Apply(ctx, current, app)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "full_name is required", nil, nil)
		return
	case errors.Is(err, service.ErrAlreadyApplied), errors.Is(err, service.ErrHasProfile):
		utils.WriteJSONResponse(w, http.StatusConflict, false, err.Error(), nil, nil)
		return
	case err != nil:
		internalError(w, r, h.log, "error submitting application", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "application submitted", map[string]interface{}{
		"profile":       profile,
		"redirect_path": roles.ApplicationPath(profile.Status),
	}, nil)
}

// GET /trainers/application
func (h *TrainerHandler) ApplicationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}
	status, path, err := h.profiles.ApplicationStatus(ctx, current)
	if err != nil {
		internalError(w, r, h.log, "error fetching application", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", map[string]interface{}{
		"status":        status,
		"redirect_path": path,
	}, nil)
}

// GET /trainers/me/time-slots
func (h *TrainerHandler) GetTimeSlots(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}
	slots, err := h.store.GetTimeSlots(r.Context(), t.ID)
	if errors.Is(err, store.ErrNotFound) {
		utils.WriteJSONResponse(w, http.StatusOK, true, "success", map[string]interface{}{
			"trainer_id": t.ID,
			"time_slots": map[string]interface{}{},
		}, nil)
		return
	}
	if err != nil {
		internalError(w, r, h.log, "error fetching time slots", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", slots, nil)
}

// PUT /trainers/me/time-slots - replaces the whole availability document
func (h *TrainerHandler) PutTimeSlots(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TimeSlots json.RawMessage `json:"time_slots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid request", nil, err.Error())
		return
	}
	if len(payload.TimeSlots) == 0 || payload.TimeSlots[0] != '{' {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "time_slots must be an object", nil, nil)
		return
	}

	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}
	slots := &models.TrainerTimeSlots{
		ID:        utils.GenerateID(),
		TrainerID: t.ID,
		TimeSlots: datatypes.JSON(payload.TimeSlots),
	}
	if err := h.store.UpsertTimeSlots(r.Context(), slots); err != nil {
		internalError(w, r, h.log, "error saving time slots", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "updated", slots, nil)
}

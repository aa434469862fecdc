package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

// TrainerReviewStore is what trainer review reads and writes.
type TrainerReviewStore interface {
	ListTrainersByStatus(ctx context.Context, status models.TrainerStatus) ([]*models.TrainerProfile, error)
	SetTrainerStatus(ctx context.Context, trainerID string, status models.TrainerStatus) error
	GetTrainerProfileByID(ctx context.Context, id string) (*models.TrainerProfile, error)
}

type AdminHandler struct {
	store TrainerReviewStore
	log   logging.Logger
}

func NewAdminHandler(store TrainerReviewStore, log logging.Logger) *AdminHandler {
	return &AdminHandler{store: store, log: log}
}

// PendingTrainers returns trainer applications awaiting review
func (h *AdminHandler) PendingTrainers(w http.ResponseWriter, r *http.Request) {
	trainers, err := h.store.ListTrainersByStatus(r.Context(), models.TrainerPending)
	if err != nil {
		internalError(w, r, h.log, "error fetching pending trainers", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", trainers, nil)
}

// ApproveTrainer approves a trainer application
func (h *AdminHandler) ApproveTrainer(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, models.TrainerApproved)
}

// RejectTrainer rejects a trainer application. The trainer may apply again.
func (h *AdminHandler) RejectTrainer(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, models.TrainerRejected)
}

func (h *AdminHandler) review(w http.ResponseWriter, r *http.Request, status models.TrainerStatus) {
	trainerID := chi.URLParam(r, "id")
	if trainerID == "" {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "missing trainer id", nil, nil)
		return
	}

	ctx := r.Context()
	err := h.store.SetTrainerStatus(ctx, trainerID, status)
	if errors.Is(err, store.ErrNotFound) {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "trainer not found", nil, nil)
		return
	}
	if err != nil {
		internalError(w, r, h.log, "error updating trainer", err)
		return
	}

	var reviewer string
	if id := auth.GetIdentityFromCtx(ctx); id != nil {
		reviewer = id.Email
	}
	h.log.Info(ctx, "trainer reviewed", "trainer_id", trainerID, "status", status, "reviewer", reviewer)

	profile, err := h.store.GetTrainerProfileByID(ctx, trainerID)
	if err != nil {
		// status is already written; the caller can refetch
		utils.WriteJSONResponse(w, http.StatusOK, true, "trainer "+string(status), nil, nil)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "trainer "+string(status), profile, nil)
}

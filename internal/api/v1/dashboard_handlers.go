package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/service"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

const recentSessions = 10

// DashboardHandler serves one payload per dashboard view. Access is decided
// by RoleMiddleware before any of these run.
type DashboardHandler struct {
	store    serviceStore
	profiles *service.ProfileService
	log      logging.Logger
}

func NewDashboardHandler(store serviceStore, profiles *service.ProfileService, log logging.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, profiles: profiles, log: log}
}

// GET /dashboards/trainer
func (h *DashboardHandler) Trainer(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTrainer(w, r, h.store, h.log)
	if !ok {
		return
	}
	sessions, err := h.store.ListTrainerSessions(r.Context(), store.TrainerSessionFilter{TrainerID: t.ID})
	if err != nil {
		internalError(w, r, h.log, "error fetching sessions", err)
		return
	}

	recent := sessions
	if len(recent) > recentSessions {
		recent = recent[:recentSessions]
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", map[string]interface{}{
		"profile":         t,
		"stats":           store.SummarizeSessions(sessions, time.Now()),
		"recent_sessions": recent,
	}, nil)
}

// GET /dashboards/pending-trainer
func (h *DashboardHandler) PendingTrainer(w http.ResponseWriter, r *http.Request) {
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

// GET /dashboards/admin
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}
	profile, err := h.store.GetAdminProfileByIdentity(ctx, current.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		internalError(w, r, h.log, "error fetching profile", err)
		return
	}
	counts, err := h.store.CountPlatform(ctx)
	if err != nil {
		internalError(w, r, h.log, "error fetching counts", err)
		return
	}
	pending, err := h.store.ListTrainersByStatus(ctx, models.TrainerPending)
	if err != nil {
		internalError(w, r, h.log, "error fetching pending trainers", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", map[string]interface{}{
		"profile":          profile,
		"counts":           counts,
		"pending_trainers": pending,
	}, nil)
}

// GET /dashboards/user
func (h *DashboardHandler) User(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}
	profile, err := h.store.GetUserProfileByIdentity(ctx, current.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		internalError(w, r, h.log, "error fetching profile", err)
		return
	}
	trainers, err := h.store.ListApprovedTrainers(ctx, "")
	if err != nil {
		internalError(w, r, h.log, "error fetching trainers", err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", map[string]interface{}{
		"profile":  profile,
		"trainers": trainers,
	}, nil)
}

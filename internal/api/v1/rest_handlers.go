package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/guard"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

// RestHandler serves the profile lookups role resolution runs on.
type RestHandler struct {
	lookup   backend.ProfileLookup
	resolver guard.RoleResolver
	log      logging.Logger
}

func NewRestHandler(lookup backend.ProfileLookup, resolver guard.RoleResolver, log logging.Logger) *RestHandler {
	return &RestHandler{lookup: lookup, resolver: resolver, log: log}
}

// GET /rest/{collection}?email= - exact-match lookup of the caller's own row
func (h *RestHandler) FindByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	c := backend.Collection(chi.URLParam(r, "collection"))
	if !c.Valid() {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "unknown collection", nil, nil)
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "email is required", nil, nil)
		return
	}
	if !strings.EqualFold(email, current.Email) {
		utils.WriteJSONResponse(w, http.StatusForbidden, false, "forbidden", nil, nil)
		return
	}

	// the stored address, not the query's casing
	row, err := h.lookup.FindByEmail(ctx, c, current.Email)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "not found", nil, nil)
	case errors.Is(err, backend.ErrUnavailable):
		h.log.Error(ctx, "profile lookup unavailable", "collection", c, "err", err)
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, false, "lookup unavailable", nil, nil)
	case err != nil:
		internalError(w, r, h.log, "lookup failed", err)
	default:
		utils.WriteJSONResponse(w, http.StatusOK, true, "success", row, nil)
	}
}

// GET /me/role
func (h *RestHandler) CurrentRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetIdentityFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}
	res, err := h.resolver.Resolve(ctx, current.Email)
	if err != nil {
		h.log.Error(ctx, "role lookup failed", "identity_id", current.ID, "err", err)
		utils.WriteJSONResponse(w, http.StatusServiceUnavailable, false, "role lookup failed", res, nil)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

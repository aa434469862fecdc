package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/service"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

const refreshCookie = "refresh_token"

type AuthHandler struct {
	cfg      *config.Config
	accounts *service.AccountService
	log      logging.Logger
}

type credentialsReq struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func NewAuthHandler(cfg *config.Config, accounts *service.AccountService, log logging.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, accounts: accounts, log: log}
}

// authStatus maps an auth failure to its HTTP status.
func authStatus(code backend.AuthErrorCode) int {
	switch code {
	case backend.CodeInvalidCredentials, backend.CodeSessionMissing:
		return http.StatusUnauthorized
	case backend.CodeEmailNotConfirmed:
		return http.StatusForbidden
	case backend.CodeRateLimited:
		return http.StatusTooManyRequests
	case backend.CodeUserAlreadyExists:
		return http.StatusConflict
	case backend.CodeWeakPassword:
		return http.StatusUnprocessableEntity
	case backend.CodeInvalidRequest:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *backend.AuthError
	if !errors.As(err, &ae) {
		h.log.Error(r.Context(), "auth request failed", "path", r.URL.Path, "err", err)
		utils.WriteJSONResponse(w, http.StatusInternalServerError, false, "internal error", nil, backend.CodeUnexpected)
		return
	}
	utils.WriteJSONResponse(w, authStatus(ae.Code), false, ae.Message, nil, ae.Code)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, r *http.Request, s *models.Session) {
	host := r.Host
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    s.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Domain:   host,
		Expires:  time.Now().Add(h.cfg.RefreshTokenTTL),
	})
}

// refreshTokenFrom reads the refresh token from the body, falling back to the cookie.
func refreshTokenFrom(r *http.Request) string {
	var req refreshReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	if c, err := r.Cookie(refreshCookie); err == nil {
		return c.Value
	}
	return ""
}

// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "Invalid Request body", nil, backend.CodeInvalidRequest)
		return
	}
	res, err := h.accounts.SignUp(r.Context(), req.Email, req.Password, req.Data)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	if res.Session == nil {
		utils.WriteJSONResponse(w, http.StatusCreated, true, "confirmation required", map[string]interface{}{"user": res.Identity}, nil)
		return
	}
	h.setRefreshCookie(w, r, res.Session)
	utils.WriteJSONResponse(w, http.StatusCreated, true, "user created", map[string]interface{}{
		"user":    res.Identity,
		"session": res.Session,
	}, nil)
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "Invalid request", nil, backend.CodeInvalidRequest)
		return
	}
	s, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.setRefreshCookie(w, r, s)
	utils.WriteJSONResponse(w, http.StatusOK, true, "login successful", s, nil)
}

// POST /auth/logout?scope=local|global
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := auth.GetIdentityFromCtx(r.Context())
	if id == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, backend.CodeSessionMissing)
		return
	}
	scope := backend.Scope(r.URL.Query().Get("scope"))
	if err := h.accounts.SignOut(r.Context(), id.ID, refreshTokenFrom(r), scope); err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	utils.WriteJSONResponse(w, http.StatusOK, true, "logged out", nil, nil)
}

// POST /auth/refresh rotates the refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.accounts.Refresh(ctx, refreshTokenFrom(r))
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.setRefreshCookie(w, r, s)
	utils.WriteJSONResponse(w, http.StatusOK, true, "refresh successful", s, nil)
}

// GET /auth/confirm?token=
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := h.accounts.Confirm(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "email confirmed", id, nil)
}

// GET /auth/user returns the identity behind the bearer token.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id := auth.GetIdentityFromCtx(r.Context())
	if id == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, backend.CodeSessionMissing)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", id, nil)
}

// POST /auth/google exchanges an authorization code for a session.
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "bad request", nil, backend.CodeInvalidRequest)
		return
	}
	if h.cfg.GoogleClientID == "" {
		utils.WriteJSONResponse(w, http.StatusNotImplemented, false, "google sign-in is not configured", nil, nil)
		return
	}

	ctx := r.Context()
	oauthCfg := &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.GoogleRedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}

	token, err := oauthCfg.Exchange(ctx, req.Code)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "code exchange failed", nil, backend.CodeInvalidCredentials)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "id_token not present in token response", nil, backend.CodeInvalidCredentials)
		return
	}
	payload, err := idtoken.Validate(ctx, rawIDToken, h.cfg.GoogleClientID)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "invalid id token", nil, backend.CodeInvalidCredentials)
		return
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "email not present in token", nil, backend.CodeInvalidRequest)
		return
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	s, err := h.accounts.SignInExternal(ctx, email, map[string]interface{}{
		"full_name":  name,
		"avatar_url": picture,
		"provider":   "google",
	})
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	h.setRefreshCookie(w, r, s)
	utils.WriteJSONResponse(w, http.StatusOK, true, "login successful", s, nil)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

// MinPasswordLength matches the hosted auth default the web client was built against.
const MinPasswordLength = 6

// AccountStore is the persistence AccountService needs.
type AccountStore interface {
	CreateIdentity(ctx context.Context, id *models.Identity) error
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetIdentityByID(ctx context.Context, id string) (*models.Identity, error)
	ConfirmIdentity(ctx context.Context, tokenHash string) (*models.Identity, error)
	SaveRefreshToken(ctx context.Context, identityID, plainToken string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, plainToken string) error
	RevokeAllRefreshTokens(ctx context.Context, identityID string) error
	RotateRefreshToken(ctx context.Context, oldPlain, newPlain string, newExpiry time.Time) (string, error)
}

// AccountService owns identities and sessions. User-facing failures are
// *backend.AuthError values.
type AccountService struct {
	store   AccountStore
	cfg     *config.Config
	limiter auth.Limiter
	log     logging.Logger
}

func NewAccountService(s AccountStore, cfg *config.Config, limiter auth.Limiter, log logging.Logger) *AccountService {
	return &AccountService{store: s, cfg: cfg, limiter: limiter, log: log.With("component", "accounts")}
}

// SignUpResult is what a sign-up produces. Session is nil and
// ConfirmationToken set when the email must be confirmed first.
type SignUpResult struct {
	Identity          *models.Identity
	Session           *models.Session
	ConfirmationToken string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return backend.NewAuthError(backend.CodeInvalidRequest, "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return backend.NewAuthError(backend.CodeWeakPassword, fmt.Sprintf("password should be at least %d characters", MinPasswordLength))
	}
	return nil
}

func (a *AccountService) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*SignUpResult, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	if _, err := a.store.GetIdentityByEmail(ctx, email); err == nil {
		return nil, backend.NewAuthError(backend.CodeUserAlreadyExists, "user already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	id := &models.Identity{
		ID:           utils.GenerateID(),
		Email:        email,
		PasswordHash: hash,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res := &SignUpResult{Identity: id}
	if a.cfg.RequireEmailConfirmation {
		res.ConfirmationToken = utils.RandomToken()
		id.ConfirmationHash = utils.HashToken(res.ConfirmationToken)
	} else {
		id.EmailConfirmedAt = &now
	}

	if err := a.store.CreateIdentity(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, backend.NewAuthError(backend.CodeUserAlreadyExists, "user already registered")
		}
		return nil, err
	}
	a.log.Info(ctx, "identity created", "identity_id", id.ID, "signup_type", id.SignupType())

	if res.ConfirmationToken != "" {
		// Delivery of the confirmation link is handled outside this service.
		a.log.Debug(ctx, "confirmation token issued", "identity_id", id.ID)
		return res, nil
	}
	res.Session, err = a.issueSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SignIn checks a password. Attempts are limited per email.
func (a *AccountService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, backend.NewAuthError(backend.CodeInvalidRequest, "email and password are required")
	}

	if a.limiter != nil {
		ok, retry, err := a.limiter.Allow(ctx, email)
		switch {
		case err != nil:
			a.log.Warn(ctx, "sign-in rate limiter unavailable", "err", err)
		case !ok:
			return nil, backend.NewAuthError(backend.CodeRateLimited, fmt.Sprintf("too many attempts, retry in %s", retry.Round(time.Second)))
		}
	}

	id, err := a.store.GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, backend.NewAuthError(backend.CodeInvalidCredentials, "invalid login credentials")
		}
		return nil, err
	}
	if ok, err := utils.ComparePasswordAndHash(password, id.PasswordHash); err != nil || !ok {
		return nil, backend.NewAuthError(backend.CodeInvalidCredentials, "invalid login credentials")
	}
	if id.EmailConfirmedAt == nil {
		return nil, backend.NewAuthError(backend.CodeEmailNotConfirmed, "email not confirmed")
	}

	if a.limiter != nil {
		if err := a.limiter.Reset(ctx, email); err != nil {
			a.log.Warn(ctx, "sign-in rate limiter reset failed", "err", err)
		}
	}
	return a.issueSession(ctx, id)
}

// SignInExternal starts a session for an email verified by an external
// provider, creating a confirmed identity on first use.
func (a *AccountService) SignInExternal(ctx context.Context, email string, metadata map[string]interface{}) (*models.Session, error) {
	email = normalizeEmail(email)
	id, err := a.store.GetIdentityByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Random password: the identity can only sign in through the provider
		// until a password is set.
		hash, herr := utils.HashPassword(utils.GenerateRandomString(24))
		if herr != nil {
			return nil, herr
		}
		now := time.Now()
		id = &models.Identity{
			ID:               utils.GenerateID(),
			Email:            email,
			PasswordHash:     hash,
			Metadata:         metadata,
			EmailConfirmedAt: &now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err = a.store.CreateIdentity(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return a.issueSession(ctx, id)
}

// Refresh rotates a refresh token and returns a new session.
func (a *AccountService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, backend.NewAuthError(backend.CodeSessionMissing, "refresh token required")
	}
	newPlain := utils.RandomToken()
	newExpiry := time.Now().Add(a.cfg.RefreshTokenTTL)
	identityID, err := a.store.RotateRefreshToken(ctx, refreshToken, newPlain, newExpiry)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, backend.NewAuthError(backend.CodeSessionMissing, "invalid refresh token")
		}
		return nil, err
	}
	id, err := a.store.GetIdentityByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return a.buildSession(id, newPlain)
}

// SignOut revokes the caller's refresh token (local) or all of the
// identity's refresh tokens (global).
func (a *AccountService) SignOut(ctx context.Context, identityID, refreshToken string, scope backend.Scope) error {
	switch scope {
	case backend.ScopeGlobal:
		return a.store.RevokeAllRefreshTokens(ctx, identityID)
	case backend.ScopeLocal, "":
		if refreshToken == "" {
			return nil
		}
		return a.store.RevokeRefreshToken(ctx, refreshToken)
	}
	return backend.NewAuthError(backend.CodeInvalidRequest, fmt.Sprintf("unknown sign-out scope %q", scope))
}

func (a *AccountService) Confirm(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, backend.NewAuthError(backend.CodeInvalidRequest, "confirmation token required")
	}
	id, err := a.store.ConfirmIdentity(ctx, utils.HashToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, backend.NewAuthError(backend.CodeInvalidRequest, "confirmation link is invalid or already used")
	}
	return id, err
}

func (a *AccountService) issueSession(ctx context.Context, id *models.Identity) (*models.Session, error) {
	rt := utils.RandomToken()
	if err := a.store.SaveRefreshToken(ctx, id.ID, rt, time.Now().Add(a.cfg.RefreshTokenTTL)); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return a.buildSession(id, rt)
}

func (a *AccountService) buildSession(id *models.Identity, refreshToken string) (*models.Session, error) {
	access, exp, err := auth.GenerateAccessToken(a.cfg, id.ID, id.Email)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(a.cfg.AccessTokenTTL.Seconds()),
		ExpiresAt:    exp,
		User:         id,
	}, nil
}

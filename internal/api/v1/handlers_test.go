package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/backend/backendtest"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/service"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

// accounts is an in-memory service.AccountStore.
type accounts struct {
	mu     sync.Mutex
	ids    map[string]*models.Identity
	tokens map[string]*models.RefreshToken
}

func newAccounts() *accounts {
	return &accounts{ids: map[string]*models.Identity{}, tokens: map[string]*models.RefreshToken{}}
}

func (a *accounts) CreateIdentity(ctx context.Context, id *models.Identity) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, v := range a.ids {
		if v.Email == id.Email {
			return store.ErrConflict
		}
	}
	a.ids[id.ID] = id
	return nil
}

func (a *accounts) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, v := range a.ids {
		if v.Email == email {
			return v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (a *accounts) GetIdentityByID(ctx context.Context, id string) (*models.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.ids[id]; ok {
		return v, nil
	}
	return nil, store.ErrNotFound
}

func (a *accounts) ConfirmIdentity(ctx context.Context, tokenHash string) (*models.Identity, error) {
	return nil, store.ErrNotFound
}

func (a *accounts) SaveRefreshToken(ctx context.Context, identityID, plain string, exp time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[utils.HashToken(plain)] = &models.RefreshToken{IdentityID: identityID, ExpiresAt: exp}
	return nil
}

func (a *accounts) RevokeRefreshToken(ctx context.Context, plain string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if rt, ok := a.tokens[utils.HashToken(plain)]; ok {
		rt.Revoked = true
	}
	return nil
}

func (a *accounts) RevokeAllRefreshTokens(ctx context.Context, identityID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, rt := range a.tokens {
		if rt.IdentityID == identityID {
			rt.Revoked = true
		}
	}
	return nil
}

func (a *accounts) RotateRefreshToken(ctx context.Context, oldPlain, newPlain string, exp time.Time) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	old, ok := a.tokens[utils.HashToken(oldPlain)]
	if !ok || old.Revoked {
		return "", store.ErrNotFound
	}
	old.Revoked = true
	a.tokens[utils.HashToken(newPlain)] = &models.RefreshToken{IdentityID: old.IdentityID, ExpiresAt: exp}
	return old.IdentityID, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   interface{}     `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
}

func authRouter(cfg *config.Config, store *accounts, limiter auth.Limiter) http.Handler {
	log := logging.Discard()
	h := NewAuthHandler(cfg, service.NewAccountService(store, cfg, limiter, log), log)
	r := chi.NewRouter()
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.With(auth.AuthMiddleware(cfg, store)).Post("/auth/logout", h.Logout)
	r.With(auth.AuthMiddleware(cfg, store)).Get("/auth/user", h.CurrentUser)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthStatus(t *testing.T) {
	cases := map[backend.AuthErrorCode]int{
		backend.CodeInvalidCredentials: http.StatusUnauthorized,
		backend.CodeSessionMissing:     http.StatusUnauthorized,
		backend.CodeEmailNotConfirmed:  http.StatusForbidden,
		backend.CodeRateLimited:        http.StatusTooManyRequests,
		backend.CodeUserAlreadyExists:  http.StatusConflict,
		backend.CodeWeakPassword:       http.StatusUnprocessableEntity,
		backend.CodeInvalidRequest:     http.StatusBadRequest,
		backend.CodeUnexpected:         http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, authStatus(code), string(code))
	}
}

func TestSignupLoginLogout(t *testing.T) {
	cfg := testConfig()
	h := authRouter(cfg, newAccounts(), nil)
	creds := map[string]interface{}{
		"email":    "Member@Example.com",
		"password": "secret123",
		"data":     map[string]string{models.SignupTypeKey: "user"},
	}

	rec := postJSON(t, h, "/auth/signup", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, h, "/auth/signup", creds, "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, string(backend.CodeUserAlreadyExists), decode(t, rec).Error)

	rec = postJSON(t, h, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s models.Session
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &s))
	require.NotEmpty(t, s.AccessToken)
	require.NotEmpty(t, s.RefreshToken)
	require.Equal(t, "member@example.com", s.User.Email)

	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/auth/logout?scope=global", map[string]string{}, s.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)

	// the refresh token died with the global sign-out
	rec = postJSON(t, h, "/auth/refresh", map[string]string{"refresh_token": s.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, string(backend.CodeSessionMissing), decode(t, rec).Error)
}

func TestLogin_Failures(t *testing.T) {
	cfg := testConfig()
	h := authRouter(cfg, newAccounts(), auth.NewMemoryLimiter(2, time.Minute))

	rec := postJSON(t, h, "/auth/signup", map[string]string{"email": "a@example.com", "password": "123"}, "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, string(backend.CodeWeakPassword), decode(t, rec).Error)

	bad := map[string]string{"email": "nobody@example.com", "password": "wrong-password"}
	rec = postJSON(t, h, "/auth/login", bad, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, string(backend.CodeInvalidCredentials), decode(t, rec).Error)

	rec = postJSON(t, h, "/auth/login", bad, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h, "/auth/login", bad, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, string(backend.CodeRateLimited), decode(t, rec).Error)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_FromCookie(t *testing.T) {
	cfg := testConfig()
	h := authRouter(cfg, newAccounts(), nil)
	creds := map[string]string{"email": "t@example.com", "password": "secret123"}
	require.Equal(t, http.StatusCreated, postJSON(t, h, "/auth/signup", creds, "").Code)

	rec := postJSON(t, h, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_RequiresSession(t *testing.T) {
	h := authRouter(testConfig(), newAccounts(), nil)
	rec := postJSON(t, h, "/auth/logout", map[string]string{}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, string(backend.CodeSessionMissing), decode(t, rec).Error)
}

func restRouter(fake *backendtest.Fake, caller *models.Identity) http.Handler {
	log := logging.Discard()
	h := NewRestHandler(fake, roles.NewResolver(fake, log), log)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller != nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/rest/{collection}", h.FindByEmail)
	r.Get("/me/role", h.CurrentRole)
	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRestFindByEmail(t *testing.T) {
	fake := backendtest.New()
	fake.AddProfile(backend.TrainerProfiles, "coach@example.com", "approved")
	h := restRouter(fake, &models.Identity{ID: "id-1", Email: "coach@example.com"})

	rec := get(h, "/rest/trainer_profiles?email=coach@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	var row backend.ProfileRow
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &row))
	require.Equal(t, "approved", row.Status)

	require.Equal(t, http.StatusNotFound, get(h, "/rest/user_profiles?email=coach@example.com").Code)
	require.Equal(t, http.StatusNotFound, get(h, "/rest/identities?email=coach@example.com").Code)
	require.Equal(t, http.StatusBadRequest, get(h, "/rest/user_profiles").Code)
	require.Equal(t, http.StatusForbidden, get(h, "/rest/user_profiles?email=other@example.com").Code)

	fake.LookupErr[backend.AdminProfiles] = backend.ErrUnavailable
	require.Equal(t, http.StatusServiceUnavailable, get(h, "/rest/admin_profiles?email=coach@example.com").Code)
}

func TestRestFindByEmail_Anonymous(t *testing.T) {
	h := restRouter(backendtest.New(), nil)
	require.Equal(t, http.StatusUnauthorized, get(h, "/rest/user_profiles?email=a@example.com").Code)
	require.Equal(t, http.StatusUnauthorized, get(h, "/me/role").Code)
}

func TestRestFindByEmail_CaseInsensitive(t *testing.T) {
	fake := backendtest.New()
	fake.AddProfile(backend.UserProfiles, "member@example.com", "")
	h := restRouter(fake, &models.Identity{ID: "id-1", Email: "member@example.com"})

	rec := get(h, "/rest/user_profiles?email=Member@Example.COM")
	require.Equal(t, http.StatusOK, rec.Code)
	var row backend.ProfileRow
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &row))
	require.Equal(t, "member@example.com", row.Email)
}

func TestRestFindByEmail_QueryFailureHidesCause(t *testing.T) {
	fake := backendtest.New()
	fake.LookupErr[backend.TrainerProfiles] = errors.New(`pq: relation "trainer_profiles" does not exist`)
	h := restRouter(fake, &models.Identity{ID: "id-1", Email: "a@example.com"})

	rec := get(h, "/rest/trainer_profiles?email=a@example.com")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, string(backend.CodeUnexpected), decode(t, rec).Error)
	require.NotContains(t, rec.Body.String(), "pq:")
}

func TestCurrentRole(t *testing.T) {
	fake := backendtest.New()
	fake.AddProfile(backend.TrainerProfiles, "new@example.com", "pending")
	h := restRouter(fake, &models.Identity{ID: "id-1", Email: "new@example.com"})

	rec := get(h, "/me/role")
	require.Equal(t, http.StatusOK, rec.Code)
	var res roles.Resolution
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	require.Equal(t, models.RoleTrainer, res.Role)
	require.Equal(t, roles.PendingTrainerPath, res.RedirectPath)

	fake.LookupErr[backend.TrainerProfiles] = backend.ErrUnavailable
	rec = get(h, "/me/role")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	require.Equal(t, roles.None, res)
}

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(pinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode(t, rec).Success)

	rec = httptest.NewRecorder()
	HealthHandler(pinger{err: backend.ErrUnavailable}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.False(t, decode(t, rec).Success)
}

func TestParseDateFlexible(t *testing.T) {
	d, err := parseDateFlexible("2024-03-05")
	require.NoError(t, err)
	require.Equal(t, 5, d.Day())

	_, err = parseDateFlexible("2024-03-05T10:00:00Z")
	require.NoError(t, err)

	_, err = parseDateFlexible("05/03/2024")
	require.Error(t, err)
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
)

type memState struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemState() *memState { return &memState{m: map[string][]byte{}} }

func (s *memState) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key], nil
}

func (s *memState) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memState) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data interface{}, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"success": success, "message": "m", "data": data}
	if code != "" {
		body["error"] = code
	}
	_ = json.NewEncoder(w).Encode(body)
}

func testSession(token string, expiresAt time.Time) *models.Session {
	return &models.Session{
		AccessToken:  token,
		RefreshToken: "refresh-" + token,
		ExpiresAt:    expiresAt,
		User:         &models.Identity{ID: "id-1", Email: "a@example.com"},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []backend.AuthEvent
}

func (r *recorder) listen(e backend.AuthEvent, _ *models.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newClient(t *testing.T, h http.Handler) (*Client, *memState, *recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	st := newMemState()
	c := New(srv.URL, srv.Client(), st, logging.Discard())
	rec := &recorder{}
	c.OnAuthStateChange(rec.listen)
	return c, st, rec
}

func TestSignIn_EmitsAndPersists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			writeEnvelope(w, http.StatusUnauthorized, false, nil, "invalid_credentials")
			return
		}
		writeEnvelope(w, http.StatusOK, true, testSession("t1", time.Now().Add(time.Hour)), "")
	})
	c, st, rec := newClient(t, mux)
	ctx := context.Background()

	_, err := c.SignIn(ctx, "a@example.com", "nope")
	require.Error(t, err)
	ae := backend.AsAuthError(err)
	require.Equal(t, backend.CodeInvalidCredentials, ae.Code)
	require.Empty(t, rec.events)

	s, err := c.SignIn(ctx, "a@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, "t1", s.AccessToken)
	require.Equal(t, []backend.AuthEvent{backend.EventSignedIn}, rec.events)
	require.NotNil(t, st.m[SessionKey])

	// a fresh client picks the persisted session up
	other := New("http://unused", nil, st, logging.Discard())
	got, err := other.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", got.AccessToken)
}

func TestDo_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, nil, newMemState(), logging.Discard())
	_, err := c.SignIn(context.Background(), "a@example.com", "secret123")
	require.ErrorIs(t, err, backend.ErrUnavailable)

	c, _, _ = newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadGateway, false, nil, "")
	}))
	_, err = c.SignIn(context.Background(), "a@example.com", "secret123")
	require.ErrorIs(t, err, backend.ErrUnavailable)
}

func TestDo_GatewayVersusServerError(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		c, _, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, status, false, nil, "")
		}))
		_, err := c.SignIn(context.Background(), "a@example.com", "secret123")
		require.ErrorIs(t, err, backend.ErrUnavailable, "status %d", status)
	}

	c, _, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, nil, "unexpected_failure")
	}))
	_, err := c.SignIn(context.Background(), "a@example.com", "secret123")
	require.NotErrorIs(t, err, backend.ErrUnavailable)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusInternalServerError, se.Status)

	c, _, _ = newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	_, err = c.SignIn(context.Background(), "a@example.com", "secret123")
	require.NotErrorIs(t, err, backend.ErrUnavailable)
	require.True(t, errors.As(err, &se))
}

// A failed query on one tier must not stop role resolution over HTTP.
func TestResolveOverHTTP_QueryFailureFallsThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/trainer_profiles", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, nil, "unexpected_failure")
	})
	mux.HandleFunc("/rest/admin_profiles", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, false, nil, "")
	})
	mux.HandleFunc("/rest/user_profiles", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, backend.ProfileRow{ID: "u1", Email: r.URL.Query().Get("email")}, "")
	})
	c, st, _ := newClient(t, mux)
	ctx := context.Background()
	b, _ := json.Marshal(testSession("t1", time.Now().Add(time.Hour)))
	require.NoError(t, st.Set(ctx, SessionKey, b))

	res, err := roles.NewResolver(c, logging.Discard()).Resolve(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, res.Role)
	require.Equal(t, roles.UserDashboardPath, res.RedirectPath)
}

func TestResolveOverHTTP_OutageAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/trainer_profiles", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusServiceUnavailable, false, nil, "")
	})
	mux.HandleFunc("/rest/user_profiles", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, backend.ProfileRow{ID: "u1"}, "")
	})
	c, st, _ := newClient(t, mux)
	ctx := context.Background()
	b, _ := json.Marshal(testSession("t1", time.Now().Add(time.Hour)))
	require.NoError(t, st.Set(ctx, SessionKey, b))

	res, err := roles.NewResolver(c, logging.Discard()).Resolve(ctx, "a@example.com")
	require.ErrorIs(t, err, backend.ErrUnavailable)
	require.Equal(t, models.RoleNone, res.Role)
	require.Equal(t, roles.LoginPath, res.RedirectPath)
}

func TestFindByEmail(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/trainer_profiles", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, true, backend.ProfileRow{ID: "p1", Email: r.URL.Query().Get("email"), Status: "approved"}, "")
	})
	mux.HandleFunc("/rest/user_profiles", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, false, nil, "")
	})
	mux.HandleFunc("/rest/admin_profiles", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, false, map[string]string{"redirect_path": "/auth"}, "")
	})
	c, st, _ := newClient(t, mux)
	ctx := context.Background()

	_, err := c.FindByEmail(ctx, backend.TrainerProfiles, "a@example.com")
	require.Equal(t, backend.CodeSessionMissing, backend.AsAuthError(err).Code)

	b, _ := json.Marshal(testSession("t1", time.Now().Add(time.Hour)))
	require.NoError(t, st.Set(ctx, SessionKey, b))

	row, err := c.FindByEmail(ctx, backend.TrainerProfiles, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, "approved", row.Status)
	require.Equal(t, "Bearer t1", gotAuth)

	_, err = c.FindByEmail(ctx, backend.UserProfiles, "a@example.com")
	require.ErrorIs(t, err, backend.ErrNotFound)

	_, err = c.FindByEmail(ctx, backend.AdminProfiles, "a@example.com")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusForbidden, se.Status)
	require.Equal(t, "/auth", se.RedirectPath())
}

func TestGetSession_RefreshesExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "refresh-old" {
			writeEnvelope(w, http.StatusUnauthorized, false, nil, "session_missing")
			return
		}
		writeEnvelope(w, http.StatusOK, true, testSession("new", time.Now().Add(time.Hour)), "")
	})
	c, st, rec := newClient(t, mux)
	ctx := context.Background()

	b, _ := json.Marshal(testSession("old", time.Now().Add(-time.Minute)))
	require.NoError(t, st.Set(ctx, SessionKey, b))

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", s.AccessToken)
	require.Equal(t, []backend.AuthEvent{backend.EventTokenRefreshed}, rec.events)

	// the rotated token is no longer accepted
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	s, err = c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
	require.Equal(t, []backend.AuthEvent{backend.EventTokenRefreshed, backend.EventSignedOut}, rec.events)
	require.Nil(t, st.m[SessionKey])
}

func TestSignOut_ClearsLocallyOnFailure(t *testing.T) {
	var scope string
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		scope = r.URL.Query().Get("scope")
		writeEnvelope(w, http.StatusServiceUnavailable, false, nil, "")
	})
	c, st, rec := newClient(t, mux)
	ctx := context.Background()

	// nothing to revoke
	require.NoError(t, c.SignOut(ctx, backend.ScopeGlobal))
	require.Empty(t, rec.events)

	b, _ := json.Marshal(testSession("t1", time.Now().Add(time.Hour)))
	require.NoError(t, st.Set(ctx, SessionKey, b))
	c.loaded = false

	err := c.SignOut(ctx, backend.ScopeGlobal)
	require.ErrorIs(t, err, backend.ErrUnavailable)
	require.Equal(t, "global", scope)
	require.Equal(t, []backend.AuthEvent{backend.EventSignedOut}, rec.events)
	require.Nil(t, st.m[SessionKey])

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestSignUp_ConfirmationHasNoSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusCreated, true, map[string]interface{}{
			"user": models.Identity{ID: "id-9", Email: "new@example.com"},
		}, "")
	})
	c, _, rec := newClient(t, mux)

	id, s, err := c.SignUp(context.Background(), "new@example.com", "secret123", map[string]any{models.SignupTypeKey: "trainer"})
	require.NoError(t, err)
	require.Nil(t, s)
	require.Equal(t, "id-9", id.ID)
	require.Empty(t, rec.events)
}

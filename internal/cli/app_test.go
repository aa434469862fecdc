package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/backend/backendtest"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/session"
)

type fakeAPI struct {
	fetch  map[string]interface{}
	onSend func(method, path string, body interface{}) (interface{}, error)
	sent   []string
}

func (f *fakeAPI) Fetch(ctx context.Context, path string, out interface{}) error {
	v, ok := f.fetch[path]
	if !ok {
		return backend.ErrNotFound
	}
	return roundTrip(v, out)
}

func (f *fakeAPI) Send(ctx context.Context, method, path string, body, out interface{}) error {
	f.sent = append(f.sent, method+" "+path)
	if f.onSend == nil {
		return nil
	}
	v, err := f.onSend(method, path, body)
	if err != nil {
		return err
	}
	return roundTrip(v, out)
}

func roundTrip(v, out interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

type harness struct {
	backend  *backendtest.Fake
	resolver *roles.Resolver
	api      *fakeAPI
	router   *Router
	out      *bytes.Buffer
	store    *session.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	prev := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("secret123"), nil }
	t.Cleanup(func() { readPassword = prev })

	log := logging.Discard()
	h := &harness{
		backend: backendtest.New(),
		api:     &fakeAPI{fetch: map[string]interface{}{}},
		router:  NewRouter(homePath),
		out:     &bytes.Buffer{},
	}
	h.resolver = roles.NewResolver(h.backend, log)
	h.store = session.New(h.backend, h.resolver, h.router, nil, log)
	require.NoError(t, h.store.Open(context.Background()))
	t.Cleanup(func() { _ = h.store.Close() })
	return h
}

func (h *harness) run(t *testing.T, script ...string) {
	t.Helper()
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	app := NewApp(h.store, h.resolver, h.api, h.router, in, h.out, logging.Discard())
	require.NoError(t, app.Run(context.Background()))
}

func TestSignIn_RedirectsToDashboard(t *testing.T) {
	h := newHarness(t)
	h.backend.AddAccount("coach@example.com", "secret123")
	h.backend.AddProfile(backend.TrainerProfiles, "coach@example.com", "approved")
	h.api.fetch[roles.TrainerDashboardPath] = map[string]interface{}{"stats": map[string]int{"total_sessions": 3}}

	h.run(t, "signin", "coach@example.com", "exit")

	require.Equal(t, roles.TrainerDashboardPath, h.router.CurrentPath())
	out := h.out.String()
	require.Contains(t, out, "Signed in.")
	require.Contains(t, out, "== Trainer dashboard ==")
	require.Contains(t, out, `"total_sessions": 3`)
	require.Contains(t, out, "Bye!")
}

func TestSignIn_PendingTrainer(t *testing.T) {
	h := newHarness(t)
	h.backend.AddAccount("new@example.com", "secret123")
	h.backend.AddProfile(backend.TrainerProfiles, "new@example.com", "pending")
	h.api.fetch[roles.PendingTrainerPath] = map[string]string{"status": "pending"}

	// a pending trainer cannot open the trainer dashboard either
	h.run(t, "signin", "new@example.com", "go /dashboards/trainer", "exit")

	require.Equal(t, roles.PendingTrainerPath, h.router.CurrentPath())
	require.NotContains(t, h.out.String(), "== Trainer dashboard ==")
}

func TestSignIn_Failure(t *testing.T) {
	h := newHarness(t)
	h.backend.AddAccount("a@example.com", "other-password")

	h.run(t, "signin", "a@example.com", "exit")

	require.Equal(t, roles.LoginPath, h.router.CurrentPath())
	require.Contains(t, h.out.String(), "Error: invalid login credentials")
}

func TestMisroutedUser(t *testing.T) {
	h := newHarness(t)
	h.backend.AddAccount("member@example.com", "secret123")
	h.backend.AddProfile(backend.UserProfiles, "member@example.com", "")
	h.api.fetch[roles.UserDashboardPath] = map[string]interface{}{"trainers": []string{}}

	h.run(t, "signin", "member@example.com", "go /dashboards/admin", "exit")

	require.Equal(t, roles.UserDashboardPath, h.router.CurrentPath())
	require.NotContains(t, h.out.String(), "== Admin dashboard ==")
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	h := newHarness(t)
	h.run(t, "go /dashboards/user", "exit")

	require.Equal(t, roles.LoginPath, h.router.CurrentPath())
	require.Contains(t, h.out.String(), "== Sign in ==")
}

func TestSignUpMember_ThenProfile(t *testing.T) {
	h := newHarness(t)
	h.api.fetch[roles.UserDashboardPath] = map[string]interface{}{"trainers": []string{}}
	h.api.onSend = func(method, path string, body interface{}) (interface{}, error) {
		h.backend.AddProfile(backend.UserProfiles, "fresh@example.com", "")
		return map[string]string{"redirect_path": roles.UserDashboardPath}, nil
	}

	h.run(t,
		"signup", "user", "fresh@example.com",
		"profile", "Fresh Member", "29", "female", "555-0100", "beginner", "strength, mobility", "yoga", "none",
		"exit",
	)

	require.Equal(t, []string{"POST /users/profile"}, h.api.sent)
	require.Equal(t, roles.UserDashboardPath, h.router.CurrentPath())
	out := h.out.String()
	require.Contains(t, out, "== Member sign-up ==")
	require.Contains(t, out, "Profile saved.")
	require.Contains(t, out, "== Member dashboard ==")
}

func TestSignUp_ConfirmationRequired(t *testing.T) {
	h := newHarness(t)
	h.backend.RequireConfirmation = true

	h.run(t, "signup", "trainer", "later@example.com", "exit")

	require.Equal(t, roles.LoginPath, h.router.CurrentPath())
	require.Contains(t, h.out.String(), "Confirm your email")
}

func TestSignOut_AlwaysLandsOnLogin(t *testing.T) {
	h := newHarness(t)
	h.backend.AddAccount("member@example.com", "secret123")
	h.backend.AddProfile(backend.UserProfiles, "member@example.com", "")
	h.api.fetch[roles.UserDashboardPath] = map[string]interface{}{}

	h.run(t, "signin", "member@example.com", "signout", "whoami", "exit")

	require.Equal(t, roles.LoginPath, h.router.CurrentPath())
	require.Nil(t, h.store.CurrentIdentity())
	require.Contains(t, h.out.String(), "Not signed in.")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	h.run(t, "dance", "go /nowhere", "exit")

	out := h.out.String()
	require.Contains(t, out, "Unknown command: dance")
	require.Contains(t, out, "Nothing at /nowhere.")
}

func TestRouter_Back(t *testing.T) {
	r := NewRouter(homePath)
	r.Navigate(roles.LoginPath)
	r.Navigate(roles.LoginPath)
	r.Navigate(roles.UserDashboardPath)
	r.Back()
	require.Equal(t, roles.LoginPath, r.CurrentPath())
	r.Back()
	require.Equal(t, homePath, r.CurrentPath())
	r.Back()
	require.Equal(t, homePath, r.CurrentPath())
}

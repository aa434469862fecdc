package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/backend/backendtest"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
)

type fakeNav struct {
	current string
	visited []string
}

func (n *fakeNav) CurrentPath() string { return n.current }

func (n *fakeNav) Navigate(path string) {
	n.current = path
	n.visited = append(n.visited, path)
}

type fakeArtifacts struct {
	err      error
	prefixes []string
}

func (a *fakeArtifacts) ClearPrefix(ctx context.Context, prefix string) error {
	a.prefixes = append(a.prefixes, prefix)
	return a.err
}

type fixture struct {
	backend   *backendtest.Fake
	nav       *fakeNav
	artifacts *fakeArtifacts
	resolver  *roles.Resolver
	store     *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.Discard()
	f := &fixture{
		backend:   backendtest.New(),
		nav:       &fakeNav{current: roles.LoginPath},
		artifacts: &fakeArtifacts{},
	}
	f.resolver = roles.NewResolver(f.backend, log)
	f.store = New(f.backend, f.resolver, f.nav, f.artifacts, log)
	t.Cleanup(func() { _ = f.store.Close() })
	return f
}

func TestStore_ResolvingUntilOpen(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.store.IsResolving())
	require.Nil(t, f.store.CurrentIdentity())

	require.NoError(t, f.store.Open(context.Background()))
	require.False(t, f.store.IsResolving())
	require.Nil(t, f.store.CurrentIdentity())
}

func TestStore_OpenPicksUpExistingSession(t *testing.T) {
	f := newFixture(t)
	id := f.backend.AddAccount("t@example.com", "pw")
	_, err := f.backend.SignIn(context.Background(), "t@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, f.store.Open(context.Background()))
	require.Equal(t, id, f.store.CurrentIdentity())
}

func TestStore_OpenFetchFailureIsAnonymous(t *testing.T) {
	f := newFixture(t)
	f.backend.GetSessionErr = fmt.Errorf("dial: %w", backend.ErrUnavailable)

	require.NoError(t, f.store.Open(context.Background()))
	require.False(t, f.store.IsResolving())
	require.Nil(t, f.store.CurrentIdentity())
}

func TestStore_EventDuringInitialFetchWins(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddAccount("t@example.com", "pw")
		_, err := f.backend.SignIn(context.Background(), "t@example.com", "pw")
		require.NoError(t, err)
		f.backend.DuringGetSession = func() { f.backend.Emit(backend.EventSignedOut, nil) }

		require.NoError(t, f.store.Open(context.Background()))
		require.False(t, f.store.IsResolving())
		require.Nil(t, f.store.CurrentIdentity(), "stale fetch result must not override the event")
	})

	t.Run("signed in", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddProfile(backend.UserProfiles, "u@example.com", "")
		id := &models.Identity{ID: "id-u", Email: "u@example.com"}
		f.backend.DuringGetSession = func() {
			f.backend.Emit(backend.EventSignedIn, &models.Session{AccessToken: "a", User: id})
		}

		require.NoError(t, f.store.Open(context.Background()))
		require.False(t, f.store.IsResolving())
		require.Equal(t, id, f.store.CurrentIdentity())

		f.store.ProcessPending(context.Background())
		require.Equal(t, roles.UserDashboardPath, f.nav.current)
	})
}

func TestStore_SignInRedirectsOnceFromLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddAccount("t@example.com", "pw")
	f.backend.AddProfile(backend.TrainerProfiles, "t@example.com", "approved")
	require.NoError(t, f.store.Open(ctx))

	id, err := f.store.SignIn(ctx, "t@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "t@example.com", id.Email)
	require.Equal(t, id, f.store.CurrentIdentity())
	require.Empty(t, f.nav.visited, "redirect must wait for ProcessPending")

	f.store.ProcessPending(ctx)
	require.Equal(t, []string{roles.TrainerDashboardPath}, f.nav.visited)

	// A second SIGNED_IN for the same session must not redirect again.
	f.nav.current = roles.LoginPath
	sess, err := f.backend.GetSession(ctx)
	require.NoError(t, err)
	f.backend.Emit(backend.EventSignedIn, sess)
	f.store.ProcessPending(ctx)
	require.Equal(t, []string{roles.TrainerDashboardPath}, f.nav.visited)
}

func TestStore_NoRedirectAwayFromLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.nav.current = "/about"
	f.backend.AddAccount("u@example.com", "pw")
	f.backend.AddProfile(backend.UserProfiles, "u@example.com", "")
	require.NoError(t, f.store.Open(ctx))

	_, err := f.store.SignIn(ctx, "u@example.com", "pw")
	require.NoError(t, err)
	f.store.ProcessPending(ctx)
	require.Empty(t, f.nav.visited)
}

func TestStore_SignedOutResetsRedirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.AddAccount("u@example.com", "pw")
	f.backend.AddProfile(backend.UserProfiles, "u@example.com", "")
	require.NoError(t, f.store.Open(ctx))

	sess, err := f.backend.SignIn(ctx, "u@example.com", "pw")
	require.NoError(t, err)
	f.store.ProcessPending(ctx)
	require.Equal(t, []string{roles.UserDashboardPath}, f.nav.visited)

	f.backend.Emit(backend.EventSignedOut, nil)
	require.Nil(t, f.store.CurrentIdentity())

	f.nav.current = roles.LoginPath
	f.backend.Emit(backend.EventSignedIn, sess)
	f.store.ProcessPending(ctx)
	require.Equal(t, []string{roles.UserDashboardPath, roles.UserDashboardPath}, f.nav.visited)
}

func TestStore_TokenRefreshKeepsIdentityWithoutRedirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Open(ctx))

	id := &models.Identity{ID: "id-9", Email: "r@example.com"}
	f.backend.Emit(backend.EventTokenRefreshed, &models.Session{User: id})
	require.Equal(t, id, f.store.CurrentIdentity())
	f.store.ProcessPending(ctx)
	require.Empty(t, f.nav.visited)
}

func TestStore_SignInCleansUpFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.artifacts.err = errors.New("disk full")
	f.backend.SignOutErr = errors.New("boom")
	require.NoError(t, f.store.Open(ctx))

	_, err := f.store.SignIn(ctx, "missing@example.com", "pw")
	require.Error(t, err)
	ae := backend.AsAuthError(err)
	require.Equal(t, backend.CodeInvalidCredentials, ae.Code)

	require.Equal(t, []string{ArtifactPrefix}, f.artifacts.prefixes)
	require.Equal(t, []backend.Scope{backend.ScopeGlobal}, f.backend.SignOuts)
}

func TestStore_SignOutAlwaysNavigatesToLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.nav.current = roles.UserDashboardPath
	require.NoError(t, f.store.Open(ctx))
	f.backend.SignOutErr = errors.New("network down")

	err := f.store.SignOut(ctx)
	require.Error(t, err)
	require.Equal(t, roles.LoginPath, f.nav.current)
	require.Nil(t, f.store.CurrentIdentity())
	require.Equal(t, []string{ArtifactPrefix}, f.artifacts.prefixes)
}

func TestStore_SignUpWithoutProfileResolvesToNone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Open(ctx))

	id, err := f.store.SignUp(ctx, "new@example.com", "pw", map[string]any{models.SignupTypeKey: "trainer"})
	require.NoError(t, err)
	require.Equal(t, "trainer", id.SignupType())

	res, err := f.resolver.Resolve(ctx, id.Email)
	require.NoError(t, err)
	require.Equal(t, models.RoleNone, res.Role)
	require.Equal(t, roles.LoginPath, res.RedirectPath)
}

func TestStore_SignUpWithConfirmationHasNoSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.RequireConfirmation = true
	require.NoError(t, f.store.Open(ctx))

	id, err := f.store.SignUp(ctx, "c@example.com", "pw", nil)
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Nil(t, f.store.CurrentIdentity())
}

func TestStore_ClosedStoreIgnoresEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Open(ctx))
	require.NoError(t, f.store.Close())

	f.backend.Emit(backend.EventSignedIn, &models.Session{User: &models.Identity{ID: "x", Email: "x@example.com"}})
	require.Nil(t, f.store.CurrentIdentity())

	_, err := f.store.SignIn(ctx, "x@example.com", "pw")
	require.ErrorIs(t, err, ErrClosed)
}

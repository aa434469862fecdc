// Package session holds the current identity of the client and reacts to
// auth-state changes published by the backend.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
)

// ArtifactPrefix prefixes every key the client persists for an auth session.
const ArtifactPrefix = "vyayam.auth."

var ErrClosed = errors.New("session store is not open")

// Navigator moves the client between views.
type Navigator interface {
	CurrentPath() string
	Navigate(path string)
}

// Artifacts is the client's local key-value state.
type Artifacts interface {
	ClearPrefix(ctx context.Context, prefix string) error
}

type RoleResolver interface {
	Resolve(ctx context.Context, email string) (roles.Resolution, error)
}

// Store is the client's single source of truth for who is signed in.
//
// State moves from unresolved to authenticated or anonymous on the first of
// the initial session fetch and the first auth event. After a SIGNED_IN event
// at most one post-login redirect is queued per session; the host runs it
// with ProcessPending once the current command has finished.
type Store struct {
	auth      backend.AuthClient
	resolver  RoleResolver
	nav       Navigator
	artifacts Artifacts
	log       logging.Logger

	mu          sync.Mutex
	open        bool
	resolving   bool
	sawEvent    bool
	identity    *models.Identity
	redirected  bool
	pending     []string
	unsubscribe func()
}

func New(auth backend.AuthClient, resolver RoleResolver, nav Navigator, artifacts Artifacts, log logging.Logger) *Store {
	return &Store{
		auth:      auth,
		resolver:  resolver,
		nav:       nav,
		artifacts: artifacts,
		log:       log.With("component", "session"),
		resolving: true,
	}
}

// Open subscribes to auth events and fetches the current session. A failed
// fetch leaves the store anonymous. If an auth event arrives before the fetch
// returns, the event wins.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = true
	s.resolving = true
	s.sawEvent = false
	s.mu.Unlock()

	unsubscribe := s.auth.OnAuthStateChange(s.handleEvent)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	sess, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.Warn(ctx, "initial session fetch failed", "err", err)
		sess = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sawEvent {
		s.identity = identityOf(sess)
		s.resolving = false
	}
	return nil
}

// Close unsubscribes from auth events and drops any queued redirect.
func (s *Store) Close() error {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.open = false
	s.pending = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

// CurrentIdentity is nil while resolving and when nobody is signed in.
func (s *Store) CurrentIdentity() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Store) IsResolving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolving
}

func (s *Store) handleEvent(event backend.AuthEvent, sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return
	}
	s.sawEvent = true
	s.resolving = false

	switch event {
	case backend.EventSignedIn:
		s.identity = identityOf(sess)
		if s.identity != nil && s.identity.Email != "" && !s.redirected {
			s.redirected = true
			s.pending = append(s.pending, s.identity.Email)
		}
	case backend.EventTokenRefreshed:
		if id := identityOf(sess); id != nil {
			s.identity = id
		}
	case backend.EventSignedOut:
		s.identity = nil
		s.redirected = false
		s.pending = nil
	}
}

// ProcessPending runs the queued post-login redirect, if any. The redirect
// only happens while the client is still on the login view.
func (s *Store) ProcessPending(ctx context.Context) {
	s.mu.Lock()
	queue := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, email := range queue {
		res, err := s.resolver.Resolve(ctx, email)
		if err != nil {
			s.log.Warn(ctx, "post-login role lookup failed", "email", email, "err", err)
		}
		if ctx.Err() != nil {
			return
		}
		if s.nav.CurrentPath() == roles.LoginPath {
			s.nav.Navigate(res.RedirectPath)
		}
	}
}

// SignIn drops any previous session state and authenticates. Housekeeping
// failures are logged. Authentication failures are *backend.AuthError values
// or wrap backend.ErrUnavailable.
func (s *Store) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.clearArtifacts(ctx)
	if err := s.auth.SignOut(ctx, backend.ScopeGlobal); err != nil {
		s.log.Warn(ctx, "global sign-out before sign-in failed", "err", err)
	}
	s.resetRedirect()

	sess, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return identityOf(sess), nil
}

// SignUp registers a new identity. The returned identity has no profile yet,
// so it resolves to no role until a profile row is written. When the backend
// requires email confirmation no session is started.
func (s *Store) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.Identity, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.clearArtifacts(ctx)

	id, _, err := s.auth.SignUp(ctx, email, password, metadata)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// SignOut ends the session everywhere and always lands on the login view,
// whatever the backend answers.
func (s *Store) SignOut(ctx context.Context) error {
	s.clearArtifacts(ctx)
	s.resetRedirect()

	err := s.auth.SignOut(ctx, backend.ScopeGlobal)
	if err != nil {
		s.log.Warn(ctx, "sign-out failed", "err", err)
	}

	s.mu.Lock()
	s.identity = nil
	s.pending = nil
	s.mu.Unlock()

	s.nav.Navigate(roles.LoginPath)
	return err
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrClosed
	}
	return nil
}

func (s *Store) resetRedirect() {
	s.mu.Lock()
	s.redirected = false
	s.mu.Unlock()
}

func (s *Store) clearArtifacts(ctx context.Context) {
	if s.artifacts == nil {
		return
	}
	if err := s.artifacts.ClearPrefix(ctx, ArtifactPrefix); err != nil {
		s.log.Warn(ctx, "clearing local session state failed", "err", err)
	}
}

func identityOf(sess *models.Session) *models.Identity {
	if sess == nil {
		return nil
	}
	return sess.User
}

// Package backendtest provides an in-memory backend for tests.
package backendtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/models"
)

type account struct {
	identity *models.Identity
	password string
}

// Fake implements backend.AuthClient and backend.ProfileLookup in memory.
// Error fields inject failures; Lookups and SignOuts record calls.
type Fake struct {
	RequireConfirmation bool

	SignInErr     error
	SignOutErr    error
	GetSessionErr error
	LookupErr     map[backend.Collection]error

	// DuringGetSession runs inside GetSession before the session is read,
	// standing in for an auth event that lands while the fetch is in flight.
	DuringGetSession func()

	mu        sync.Mutex
	listeners backend.Listeners
	accounts  map[string]*account
	profiles  map[backend.Collection]map[string]backend.ProfileRow
	session   *models.Session
	seq       int

	Lookups  []backend.Collection
	SignOuts []backend.Scope
}

func New() *Fake {
	return &Fake{
		LookupErr: map[backend.Collection]error{},
		accounts:  map[string]*account{},
		profiles: map[backend.Collection]map[string]backend.ProfileRow{
			backend.TrainerProfiles: {},
			backend.AdminProfiles:   {},
			backend.UserProfiles:    {},
		},
	}
}

// AddProfile inserts a profile row for email into collection.
func (f *Fake) AddProfile(c backend.Collection, email, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.profiles[c][email] = backend.ProfileRow{ID: fmt.Sprintf("row-%d", f.seq), Email: email, Status: status}
}

// AddAccount registers a confirmed identity without emitting events.
func (f *Fake) AddAccount(email, password string) *models.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addAccountLocked(email, password, nil)
}

func (f *Fake) addAccountLocked(email, password string, metadata map[string]any) *models.Identity {
	f.seq++
	id := &models.Identity{ID: fmt.Sprintf("id-%d", f.seq), Email: email, Metadata: metadata}
	f.accounts[email] = &account{identity: id, password: password}
	return id
}

// LookupCount returns how many lookups hit collection c.
func (f *Fake) LookupCount(c backend.Collection) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.Lookups {
		if l == c {
			n++
		}
	}
	return n
}

// Emit pushes an event to subscribers as if the backend had produced it.
func (f *Fake) Emit(event backend.AuthEvent, s *models.Session) {
	f.mu.Lock()
	f.session = s
	f.mu.Unlock()
	f.listeners.Emit(event, s)
}

func (f *Fake) newSession(id *models.Identity) *models.Session {
	return &models.Session{
		AccessToken:  "access-" + id.ID,
		RefreshToken: "refresh-" + id.ID,
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         id,
	}
}

func (f *Fake) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.Identity, *models.Session, error) {
	f.mu.Lock()
	if _, ok := f.accounts[email]; ok {
		f.mu.Unlock()
		return nil, nil, backend.NewAuthError(backend.CodeUserAlreadyExists, "user already registered")
	}
	id := f.addAccountLocked(email, password, metadata)
	if f.RequireConfirmation {
		f.mu.Unlock()
		return id, nil, nil
	}
	s := f.newSession(id)
	f.session = s
	f.mu.Unlock()

	f.listeners.Emit(backend.EventSignedIn, s)
	return id, s, nil
}

func (f *Fake) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	f.mu.Lock()
	if f.SignInErr != nil {
		err := f.SignInErr
		f.mu.Unlock()
		return nil, err
	}
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		f.mu.Unlock()
		return nil, backend.NewAuthError(backend.CodeInvalidCredentials, "invalid login credentials")
	}
	s := f.newSession(acc.identity)
	f.session = s
	f.mu.Unlock()

	f.listeners.Emit(backend.EventSignedIn, s)
	return s, nil
}

func (f *Fake) SignOut(ctx context.Context, scope backend.Scope) error {
	f.mu.Lock()
	f.SignOuts = append(f.SignOuts, scope)
	if f.SignOutErr != nil {
		err := f.SignOutErr
		f.mu.Unlock()
		return err
	}
	had := f.session != nil
	f.session = nil
	f.mu.Unlock()

	if had {
		f.listeners.Emit(backend.EventSignedOut, nil)
	}
	return nil
}

func (f *Fake) GetSession(ctx context.Context) (*models.Session, error) {
	f.mu.Lock()
	if f.GetSessionErr != nil {
		err := f.GetSessionErr
		f.mu.Unlock()
		return nil, err
	}
	s, during := f.session, f.DuringGetSession
	f.mu.Unlock()

	if during != nil {
		during()
	}
	return s, nil
}

func (f *Fake) OnAuthStateChange(fn backend.AuthListener) func() {
	return f.listeners.Add(fn)
}

func (f *Fake) FindByEmail(ctx context.Context, c backend.Collection, email string) (*backend.ProfileRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lookups = append(f.Lookups, c)
	if err := f.LookupErr[c]; err != nil {
		return nil, err
	}
	row, ok := f.profiles[c][email]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &row, nil
}

var (
	_ backend.AuthClient    = (*Fake)(nil)
	_ backend.ProfileLookup = (*Fake)(nil)
)

// Package backend describes the auth and row-lookup surface the application
// consumes from the backend service. The server implements it over HTTP;
// the terminal client and tests consume it through these interfaces.
package backend

import (
	"context"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

// Scope selects which sessions a sign-out invalidates.
type Scope string

const (
	ScopeLocal  Scope = "local"
	ScopeGlobal Scope = "global"
)

// AuthEvent names an auth-state transition.
type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener receives auth-state changes. session is nil after sign-out.
type AuthListener func(event AuthEvent, session *models.Session)

// AuthClient is the authentication half of the backend.
//
// SignUp returns a nil session when the backend requires email confirmation.
// Failures the caller must show to the user are *AuthError values; network
// failures wrap ErrUnavailable.
type AuthClient interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.Identity, *models.Session, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, scope Scope) error
	GetSession(ctx context.Context) (*models.Session, error)
	OnAuthStateChange(fn AuthListener) (unsubscribe func())
}

// Collection is one of the profile tables a role is derived from.
type Collection string

const (
	TrainerProfiles Collection = "trainer_profiles"
	AdminProfiles   Collection = "admin_profiles"
	UserProfiles    Collection = "user_profiles"
)

// Valid reports whether c names a known profile collection.
func (c Collection) Valid() bool {
	switch c {
	case TrainerProfiles, AdminProfiles, UserProfiles:
		return true
	}
	return false
}

// ProfileRow is the slice of a profile row role resolution needs.
// Status is empty for user profiles.
type ProfileRow struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status,omitempty"`
}

// ProfileLookup performs exact-match lookups by email. A missing row is ErrNotFound.
type ProfileLookup interface {
	FindByEmail(ctx context.Context, collection Collection, email string) (*ProfileRow, error)
}

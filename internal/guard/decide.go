// Package guard gates protected views behind an authenticated identity whose
// role is in an allowed set.
package guard

import (
	"slices"

	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
)

type State int

const (
	Loading State = iota
	Unauthenticated
	Authorized
	Misrouted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authorized:
		return "authorized"
	case Misrouted:
		return "misrouted"
	}
	return "unknown"
}

// Policy describes who may see a protected view.
//
// RoleNone is only admitted when listed in Allowed. With RequireApproval a
// trainer whose profile is not approved is sent to the pending view even
// when trainers are allowed.
type Policy struct {
	Allowed         []models.Role
	RequireApproval bool
}

// Allow builds a Policy admitting the given roles.
func Allow(r ...models.Role) Policy {
	return Policy{Allowed: r}
}

func (p Policy) allows(r models.Role) bool {
	return slices.Contains(p.Allowed, r)
}

// Input is everything Decide looks at.
type Input struct {
	// Resolving is true while the session store has not settled.
	Resolving bool
	Identity  *models.Identity
	// RoleLoading is true while the role lookup for Identity is in flight.
	RoleLoading bool
	Resolution  roles.Resolution
}

type Decision struct {
	State        State
	RedirectPath string
}

// Decide runs the guard state machine. Misrouted and Unauthenticated carry
// the path to redirect to; Loading and Authorized carry none.
func Decide(p Policy, in Input) Decision {
	if in.Resolving {
		return Decision{State: Loading}
	}
	if in.Identity == nil {
		return Decision{State: Unauthenticated, RedirectPath: roles.LoginPath}
	}
	if in.RoleLoading {
		return Decision{State: Loading}
	}

	res := in.Resolution
	if res.Role == "" {
		res.Role = models.RoleNone
	}
	if !p.allows(res.Role) {
		return Decision{State: Misrouted, RedirectPath: roles.PathFor(res.Role, res.Status)}
	}
	if p.RequireApproval && res.Role == models.RoleTrainer && res.Status != models.TrainerApproved {
		return Decision{State: Misrouted, RedirectPath: roles.PendingTrainerPath}
	}
	return Decision{State: Authorized}
}

// Package roles derives an identity's role from which profile row exists for
// its email, and maps roles to the views they belong on.
package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
)

// Resolution is the outcome of classifying an email.
type Resolution struct {
	Role         models.Role          `json:"role"`
	Status       models.TrainerStatus `json:"status,omitempty"`
	RedirectPath string               `json:"redirect_path"`
}

// None is the resolution for an email with no profile.
var None = Resolution{Role: models.RoleNone, RedirectPath: LoginPath}

type tier struct {
	collection backend.Collection
	role       models.Role
}

// Lookup order. The first tier with a row wins, so an email that has both a
// trainer and a user profile resolves to trainer.
var tiers = []tier{
	{backend.TrainerProfiles, models.RoleTrainer},
	{backend.AdminProfiles, models.RoleAdmin},
	{backend.UserProfiles, models.RoleUser},
}

type Resolver struct {
	lookup backend.ProfileLookup
	log    logging.Logger
}

func NewResolver(lookup backend.ProfileLookup, log logging.Logger) *Resolver {
	return &Resolver{lookup: lookup, log: log.With("component", "roles")}
}

// Resolve classifies email by querying the profile collections in priority
// order. Each query is independent; no snapshot spans them.
//
// A failed query other than a network failure counts as "no row" for that
// tier. A network failure (backend.ErrUnavailable) or a done context stops
// resolution: the result is None and the error is returned.
func (r *Resolver) Resolve(ctx context.Context, email string) (Resolution, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return None, nil
	}

	for _, t := range tiers {
		if err := ctx.Err(); err != nil {
			return None, fmt.Errorf("resolve role: %w", err)
		}

		row, err := r.lookup.FindByEmail(ctx, t.collection, email)
		if err != nil {
			if errors.Is(err, backend.ErrUnavailable) {
				return None, fmt.Errorf("resolve role: %s lookup: %w", t.collection, err)
			}
			if !errors.Is(err, backend.ErrNotFound) {
				r.log.Warn(ctx, "profile lookup failed, treating as absent", "collection", t.collection, "err", err)
			}
			continue
		}
		if row == nil {
			continue
		}

		res := Resolution{Role: t.role}
		if t.role == models.RoleTrainer {
			res.Status = models.TrainerStatus(row.Status)
		}
		res.RedirectPath = PathFor(res.Role, res.Status)
		return res, nil
	}
	return None, nil
}

package guard

import (
	"context"
	"fmt"
	"io"

	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
)

// LoadingPlaceholder is written in place of a protected view while the guard
// cannot decide yet.
const LoadingPlaceholder = "Loading...\n"

// View renders one screen of the client.
type View interface {
	Render(ctx context.Context, w io.Writer) error
}

// ViewFunc adapts a function to View.
type ViewFunc func(ctx context.Context, w io.Writer) error

func (f ViewFunc) Render(ctx context.Context, w io.Writer) error { return f(ctx, w) }

// Session is the part of the session store the guard reads.
type Session interface {
	CurrentIdentity() *models.Identity
	IsResolving() bool
}

type RoleResolver interface {
	Resolve(ctx context.Context, email string) (roles.Resolution, error)
}

type Navigator interface {
	Navigate(path string)
}

type Guard struct {
	session  Session
	resolver RoleResolver
	nav      Navigator
	log      logging.Logger
}

func New(session Session, resolver RoleResolver, nav Navigator, log logging.Logger) *Guard {
	return &Guard{session: session, resolver: resolver, nav: nav, log: log.With("component", "guard")}
}

// Wrap returns a view that renders child only for identities p admits.
// The role is looked up again on every render.
func (g *Guard) Wrap(p Policy, child View) View {
	return ViewFunc(func(ctx context.Context, w io.Writer) error {
		in := Input{Resolving: g.session.IsResolving()}
		if !in.Resolving {
			in.Identity = g.session.CurrentIdentity()
			in.RoleLoading = in.Identity != nil
		}
		if d := Decide(p, in); !in.RoleLoading {
			return g.apply(ctx, w, d, child)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, LoadingPlaceholder); err != nil {
			return err
		}
		res, err := g.resolver.Resolve(ctx, in.Identity.Email)
		if err != nil && ctx.Err() == nil {
			g.log.Warn(ctx, "role lookup failed, redirecting to login", "email", in.Identity.Email, "err", err)
		}
		in.RoleLoading = false
		in.Resolution = res
		return g.apply(ctx, w, Decide(p, in), child)
	})
}

func (g *Guard) apply(ctx context.Context, w io.Writer, d Decision, child View) error {
	// A render whose context is gone must not touch the screen or navigate.
	if err := ctx.Err(); err != nil {
		return err
	}
	switch d.State {
	case Loading:
		_, err := io.WriteString(w, LoadingPlaceholder)
		return err
	case Unauthenticated, Misrouted:
		g.nav.Navigate(d.RedirectPath)
		return nil
	case Authorized:
		return child.Render(ctx, w)
	}
	return fmt.Errorf("guard: unknown state %v", d.State)
}

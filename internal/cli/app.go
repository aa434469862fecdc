// Package cli is the interactive terminal client. Every screen is a view
// addressed by the same path the web client used, and protected views go
// through the route guard before they render.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/client"
	"github.com/vyayamzone/vyayam-api/internal/guard"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
)

// maxHops bounds redirect chains within a single render.
const maxHops = 5

var errTooManyRedirects = errors.New("too many redirects")

// SessionStore is the part of *session.Store the app drives.
type SessionStore interface {
	guard.Session
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.Identity, error)
	SignOut(ctx context.Context) error
	ProcessPending(ctx context.Context)
}

// API is the authenticated request surface of *client.Client.
type API interface {
	Fetch(ctx context.Context, path string, out interface{}) error
	Send(ctx context.Context, method, path string, body, out interface{}) error
}

type App struct {
	session  SessionStore
	resolver guard.RoleResolver
	api      API
	router   *Router
	guard    *guard.Guard
	pages    map[string]page
	reader   *bufio.Reader
	out      io.Writer
	log      logging.Logger
}

func NewApp(session SessionStore, resolver guard.RoleResolver, api API, router *Router, in io.Reader, out io.Writer, log logging.Logger) *App {
	a := &App{
		session:  session,
		resolver: resolver,
		api:      api,
		router:   router,
		guard:    guard.New(session, resolver, router, log),
		reader:   bufio.NewReader(in),
		out:      out,
		log:      log,
	}
	a.pages = a.buildPages()
	return a
}

func policyOf(p guard.Policy) *guard.Policy { return &p }

func (a *App) buildPages() map[string]page {
	approvedTrainer := guard.Policy{Allowed: []models.Role{models.RoleTrainer}, RequireApproval: true}
	return map[string]page{
		homePath: {
			title: "VyayamZone",
			view:  a.textView("Find a trainer, or become one. Type 'signin' or 'signup'."),
		},
		roles.LoginPath: {
			title: "Sign in",
			view:  a.textView("Type 'signin' to sign in or 'signup' to create an account."),
		},
		roles.UserSignupPath: {
			title:  "Member sign-up",
			policy: policyOf(guard.Allow(models.RoleNone)),
			view:   a.textView("Type 'profile' to complete your member profile."),
		},
		roles.TrainerSignupPath: {
			title:  "Trainer application",
			policy: policyOf(guard.Allow(models.RoleNone, models.RoleTrainer)),
			view:   guard.ViewFunc(a.renderTrainerSignup),
		},
		roles.PendingTrainerPath: {
			title:  "Application under review",
			policy: policyOf(guard.Allow(models.RoleTrainer)),
			view:   a.apiView(roles.PendingTrainerPath),
		},
		roles.TrainerDashboardPath: {
			title:  "Trainer dashboard",
			policy: policyOf(approvedTrainer),
			view:   a.apiView(roles.TrainerDashboardPath),
		},
		roles.AdminDashboardPath: {
			title:  "Admin dashboard",
			policy: policyOf(guard.Allow(models.RoleAdmin)),
			view:   a.apiView(roles.AdminDashboardPath),
		},
		roles.UserDashboardPath: {
			title:  "Member dashboard",
			policy: policyOf(guard.Allow(models.RoleUser)),
			view:   a.apiView(roles.UserDashboardPath),
		},
	}
}

func (a *App) textView(text string) guard.View {
	return guard.ViewFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintln(w, text)
		return err
	})
}

// apiView renders the API payload served at the same path.
func (a *App) apiView(path string) guard.View {
	return guard.ViewFunc(func(ctx context.Context, w io.Writer) error {
		var data json.RawMessage
		if err := a.api.Fetch(ctx, path, &data); err != nil {
			var se *client.StatusError
			if errors.As(err, &se) && se.RedirectPath() != "" {
				a.router.Navigate(se.RedirectPath())
				return nil
			}
			a.fail(err)
			return nil
		}
		return writeIndented(w, data)
	})
}

// renderTrainerSignup forwards applicants who already applied to where the
// application flow says they belong.
func (a *App) renderTrainerSignup(ctx context.Context, w io.Writer) error {
	var st struct {
		Status       models.TrainerStatus `json:"status"`
		RedirectPath string               `json:"redirect_path"`
	}
	if err := a.api.Fetch(ctx, "/trainers/application", &st); err != nil {
		a.fail(err)
		return nil
	}
	if st.RedirectPath != "" && st.RedirectPath != roles.TrainerSignupPath {
		a.router.Navigate(st.RedirectPath)
		return nil
	}
	if st.Status == models.TrainerRejected {
		fmt.Fprintln(w, "Your previous application was not approved. You may apply again.")
	}
	_, err := fmt.Fprintln(w, "Type 'apply' to submit your trainer application.")
	return err
}

func writeIndented(w io.Writer, data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// render draws the current view, following redirects issued while rendering.
func (a *App) render(ctx context.Context) error {
	for hop := 0; hop < maxHops; hop++ {
		path := a.router.CurrentPath()
		p, ok := a.pages[path]
		if !ok {
			_, err := fmt.Fprintf(a.out, "Nothing at %s. Type 'go /' to go home.\n", path)
			return err
		}

		title, child := p.title, p.view
		var v guard.View = guard.ViewFunc(func(ctx context.Context, w io.Writer) error {
			fmt.Fprintf(w, "== %s ==\n", title)
			return child.Render(ctx, w)
		})
		if p.policy != nil {
			v = a.guard.Wrap(*p.policy, v)
		}
		if err := v.Render(ctx, a.out); err != nil {
			return err
		}
		if a.router.CurrentPath() == path {
			return nil
		}
	}
	return errTooManyRedirects
}

// fail reports err to the user the way the web forms did.
func (a *App) fail(err error) {
	var ae *backend.AuthError
	var se *client.StatusError
	switch {
	case errors.As(err, &ae):
		msg := ae.Message
		if msg == "" {
			msg = string(ae.Code)
		}
		fmt.Fprintln(a.out, "Error:", msg)
	case errors.Is(err, backend.ErrUnavailable):
		fmt.Fprintln(a.out, "Cannot reach the server. Try again later.")
	case errors.As(err, &se):
		fmt.Fprintln(a.out, "Error:", se.Message)
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}
}

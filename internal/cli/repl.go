package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
)

const helpText = `Commands:
  signup          create an account (member or trainer)
  signin | login  sign in
  signout|logout  sign out
  whoami          show the signed-in identity and its role
  go <path>       open a view, e.g. go /dashboards/user
  back            return to the previous view
  apply           submit a trainer application
  profile         complete the member profile
  view            redraw the current view
  help            this text
  exit | quit     leave`

// Run renders the current view and reads commands until EOF or exit. After
// every command the queued post-login redirect runs, then the view redraws.
func (a *App) Run(ctx context.Context) error {
	if err := a.render(ctx); err != nil {
		return err
	}
	for {
		fmt.Fprintf(a.out, "vyayam %s> ", a.router.CurrentPath())
		line, err := a.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		quit, err := a.exec(ctx, parts[0], parts[1:])
		if err != nil {
			a.fail(err)
		}
		if quit {
			fmt.Fprintln(a.out, "Bye!")
			return nil
		}

		a.session.ProcessPending(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := a.render(ctx); err != nil {
			a.log.Warn(ctx, "render failed", "path", a.router.CurrentPath(), "err", err)
		}
	}
}

func (a *App) exec(ctx context.Context, cmd string, args []string) (bool, error) {
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText)
	case "signup":
		return false, a.SignUp(ctx)
	case "signin", "login":
		return false, a.SignIn(ctx)
	case "signout", "logout":
		return false, a.SignOut(ctx)
	case "whoami":
		return false, a.WhoAmI(ctx)
	case "go":
		if len(args) != 1 {
			fmt.Fprintln(a.out, "usage: go <path>")
			return false, nil
		}
		a.router.Navigate(args[0])
	case "back":
		a.router.Back()
	case "apply":
		return false, a.Apply(ctx)
	case "profile":
		return false, a.CreateProfile(ctx)
	case "view":
	case "exit", "quit":
		return true, nil
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
	}
	return false, nil
}

func (a *App) credentials() (string, string, error) {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

// SignIn runs from the login view so the post-login redirect applies.
func (a *App) SignIn(ctx context.Context) error {
	a.router.Navigate(roles.LoginPath)
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	if _, err := a.session.SignIn(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed in.")
	return nil
}

func (a *App) SignUp(ctx context.Context) error {
	kind, err := GetSimpleText(a.reader, "Sign up as (user/trainer)", a.out)
	if err != nil {
		return err
	}
	kind = strings.ToLower(kind)
	if kind != string(models.RoleUser) && kind != string(models.RoleTrainer) {
		fmt.Fprintln(a.out, "Please answer 'user' or 'trainer'.")
		return nil
	}
	email, password, err := a.credentials()
	if err != nil {
		return err
	}

	if _, err := a.session.SignUp(ctx, email, password, map[string]any{models.SignupTypeKey: kind}); err != nil {
		return err
	}
	if a.session.CurrentIdentity() == nil {
		fmt.Fprintln(a.out, "Account created. Confirm your email, then sign in.")
		a.router.Navigate(roles.LoginPath)
		return nil
	}

	fmt.Fprintln(a.out, "Account created.")
	if kind == string(models.RoleTrainer) {
		a.router.Navigate(roles.TrainerSignupPath)
	} else {
		a.router.Navigate(roles.UserSignupPath)
	}
	return nil
}

func (a *App) SignOut(ctx context.Context) error {
	if err := a.session.SignOut(ctx); err != nil {
		// already signed out locally; the server will expire the rest
		a.log.Warn(ctx, "server sign-out failed", "err", err)
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id := a.session.CurrentIdentity()
	if id == nil {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}
	res, err := a.resolver.Resolve(ctx, id.Email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s  role=%s", id.Email, res.Role)
	if res.Status != "" {
		fmt.Fprintf(a.out, " status=%s", res.Status)
	}
	fmt.Fprintf(a.out, "  home=%s\n", res.RedirectPath)
	return nil
}

func (a *App) Apply(ctx context.Context) error {
	if a.router.CurrentPath() != roles.TrainerSignupPath {
		fmt.Fprintf(a.out, "Open %s first.\n", roles.TrainerSignupPath)
		return nil
	}
	var app models.TrainerApplication
	var err error
	text := []struct {
		prompt string
		dst    *string
	}{
		{"Full name", &app.FullName},
		{"Phone number", &app.PhoneNumber},
		{"Government ID", &app.GovernmentID},
		{"Bio", &app.Bio},
		{"Experience", &app.Experience},
		{"Why do you want to train with us", &app.CareerMotivation},
	}
	for _, f := range text {
		if *f.dst, err = GetSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}
	if app.Certifications, err = GetList(a.reader, "Certifications", a.out); err != nil {
		return err
	}
	if app.Specializations, err = GetList(a.reader, "Specializations", a.out); err != nil {
		return err
	}
	if app.HourlyRate, err = GetOptionalFloat(a.reader, "Hourly rate", a.out); err != nil {
		return err
	}

	var out struct {
		RedirectPath string `json:"redirect_path"`
	}
	if err := a.api.Send(ctx, http.MethodPost, "/trainers/application", app, &out); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Application submitted.")
	a.router.Navigate(out.RedirectPath)
	return nil
}

func (a *App) CreateProfile(ctx context.Context) error {
	if a.router.CurrentPath() != roles.UserSignupPath {
		fmt.Fprintf(a.out, "Open %s first.\n", roles.UserSignupPath)
		return nil
	}
	var in models.UserProfileInput
	var err error
	if in.FullName, err = GetSimpleText(a.reader, "Full name", a.out); err != nil {
		return err
	}
	if in.Age, err = GetOptionalInt(a.reader, "Age", a.out); err != nil {
		return err
	}
	text := []struct {
		prompt string
		dst    *string
	}{
		{"Gender", &in.Gender},
		{"Phone number", &in.PhoneNumber},
		{"Experience level (beginner/intermediate/advanced)", &in.ExperienceLevel},
	}
	for _, f := range text {
		if *f.dst, err = GetSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}
	if in.FitnessGoals, err = GetList(a.reader, "Fitness goals", a.out); err != nil {
		return err
	}
	if in.PreferredWorkoutTypes, err = GetList(a.reader, "Preferred workout types", a.out); err != nil {
		return err
	}
	if in.HealthConditions, err = GetSimpleText(a.reader, "Health conditions", a.out); err != nil {
		return err
	}

	var out struct {
		RedirectPath string `json:"redirect_path"`
	}
	if err := a.api.Send(ctx, http.MethodPost, "/users/profile", in, &out); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile saved.")
	a.router.Navigate(out.RedirectPath)
	return nil
}

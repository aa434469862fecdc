package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/backend"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/guard"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/models"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/service"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

type serviceStore struct {
	*store.Store
}

type API struct {
	cfg     *config.Config
	router  *chi.Mux
	store   *store.Store
	log     logging.Logger
	limiter auth.Limiter
	storage utils.Storage
}

func NewAPI(cfg *config.Config, s *store.Store, log logging.Logger, limiter auth.Limiter, storage utils.Storage) *API {
	api := &API{
		cfg:     cfg,
		router:  chi.NewRouter(),
		store:   s,
		log:     log,
		limiter: limiter,
		storage: storage,
	}
	api.router.Use(middleware.Logger)
	api.routes()
	return api
}

func (a *API) Routes() *chi.Mux {
	return a.router
}

func options(w http.ResponseWriter, r *http.Request) {}

// internalError logs err and answers 500 with a fixed code, keeping driver
// messages out of responses.
func internalError(w http.ResponseWriter, r *http.Request, log logging.Logger, msg string, err error) {
	log.Error(r.Context(), msg, "path", r.URL.Path, "err", err)
	utils.WriteJSONResponse(w, http.StatusInternalServerError, false, msg, nil, backend.CodeUnexpected)
}

func (a *API) routes() {
	ss := serviceStore{a.store}
	accounts := service.NewAccountService(a.store, a.cfg, a.limiter, a.log)
	profiles := service.NewProfileService(a.store)
	resolver := roles.NewResolver(a.store, a.log)

	authH := NewAuthHandler(a.cfg, accounts, a.log)
	restH := NewRestHandler(a.store, resolver, a.log)
	dashH := NewDashboardHandler(ss, profiles, a.log)
	trainerH := NewTrainerHandler(ss, profiles, a.log)
	sessionH := NewSessionHandler(ss, a.log)
	docH := NewDocumentHandler(ss, a.storage, a.log)
	userH := NewUserHandler(ss, profiles, a.log)
	adminH := NewAdminHandler(ss, a.log)

	authed := auth.AuthMiddleware(a.cfg, a.store)
	only := func(p guard.Policy) func(http.Handler) http.Handler {
		return auth.RoleMiddleware(resolver, p, a.log)
	}
	approvedTrainer := guard.Policy{Allowed: []models.Role{models.RoleTrainer}, RequireApproval: true}

	r := a.router
	r.Route("/auth", func(r chi.Router) {
		r.Options("/*", options)
		r.Post("/signup", authH.Signup)
		r.Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)
		r.Post("/google", authH.GoogleSignIn)
		r.Get("/confirm", authH.Confirm)
		r.With(authed).Post("/logout", authH.Logout)
		r.With(authed).Get("/user", authH.CurrentUser)
	})

	// row lookups the client resolves roles from
	r.Route("/rest", func(r chi.Router) {
		r.Options("/*", options)
		r.With(authed).Get("/{collection}", restH.FindByEmail)
	})
	r.Route("/me", func(r chi.Router) {
		r.Options("/*", options)
		r.With(authed).Get("/role", restH.CurrentRole)
	})

	r.Route("/dashboards", func(r chi.Router) {
		r.Options("/*", options)
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.With(only(approvedTrainer)).Get("/trainer", dashH.Trainer)
			r.With(only(guard.Allow(models.RoleTrainer))).Get("/pending-trainer", dashH.PendingTrainer)
			r.With(only(guard.Allow(models.RoleAdmin))).Get("/admin", dashH.Admin)
			r.With(only(guard.Allow(models.RoleUser))).Get("/user", dashH.User)
		})
	})

	r.Route("/trainers", func(r chi.Router) {
		r.Options("/*", options)
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Get("/", trainerH.ListApproved)
			r.Post("/application", trainerH.Apply)
			r.Get("/application", trainerH.ApplicationStatus)

			r.Group(func(r chi.Router) {
				r.Use(only(guard.Allow(models.RoleTrainer)))
				r.Post("/me/documents", docH.Upload)
				r.Get("/me/documents", docH.List)
				r.Delete("/me/documents/{id}", docH.Delete)
			})
			r.Group(func(r chi.Router) {
				r.Use(only(approvedTrainer))
				r.Get("/me/time-slots", trainerH.GetTimeSlots)
				r.Put("/me/time-slots", trainerH.PutTimeSlots)
				r.Post("/me/sessions", sessionH.Create)
				r.Get("/me/sessions", sessionH.List)
			})
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Options("/*", options)
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Post("/profile", userH.CreateProfile)
			r.With(only(guard.Allow(models.RoleUser))).Get("/me", userH.GetSelfProfile)
			r.With(only(guard.Allow(models.RoleUser))).Put("/me", userH.UpdateSelfProfile)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Options("/*", options)

		// All admin routes require authentication and an admin profile
		r.Group(func(r chi.Router) {
			r.Use(authed)
			r.Use(only(guard.Allow(models.RoleAdmin)))

			r.Get("/trainers/pending", adminH.PendingTrainers)
			r.Post("/trainers/{id}/approve", adminH.ApproveTrainer)
			r.Post("/trainers/{id}/reject", adminH.RejectTrainer)
		})
	})

	r.Route("/health", func(r chi.Router) {
		r.Options("/*", options)
		r.Get("/", HealthHandler(a.store))
	})
}

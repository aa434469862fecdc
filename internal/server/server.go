package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	v1 "github.com/vyayamzone/vyayam-api/internal/api/v1"
	"github.com/vyayamzone/vyayam-api/internal/auth"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/store"
	"github.com/vyayamzone/vyayam-api/internal/utils"
)

type Server struct {
	cfg     *config.Config
	db      *store.Store
	log     logging.Logger
	limiter auth.Limiter
	storage utils.Storage
}

func NewServer(cfg *config.Config, db *store.Store, log logging.Logger, limiter auth.Limiter, storage utils.Storage) *Server {
	return &Server{cfg: cfg, db: db, log: log, limiter: limiter, storage: storage}
}

func (s *Server) NewHTTPServer() *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	api := v1.NewAPI(s.cfg, s.db, s.log, s.limiter, s.storage)
	r.Mount("/api/v1", api.Routes())

	// local-disk documents; R2 hands out presigned URLs instead
	if !s.cfg.R2Enabled() {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir))))
	}

	return &http.Server{
		Addr:         s.cfg.BindAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

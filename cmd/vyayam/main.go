package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyayamzone/vyayam-api/internal/cli"
	"github.com/vyayamzone/vyayam-api/internal/client"
	"github.com/vyayamzone/vyayam-api/internal/client/localstore"
	"github.com/vyayamzone/vyayam-api/internal/config"
	"github.com/vyayamzone/vyayam-api/internal/logging"
	"github.com/vyayamzone/vyayam-api/internal/roles"
	"github.com/vyayamzone/vyayam-api/internal/session"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := localstore.Open(ctx, cfg.StateDB)
	if err != nil {
		log.Fatalf("state: %v", err)
	}
	defer state.Close()

	api := client.New(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout}, state, logger)
	resolver := roles.NewResolver(api, logger)
	router := cli.NewRouter("/")

	store := session.New(api, resolver, router, state, logger)
	if err := store.Open(ctx); err != nil {
		log.Fatalf("session: %v", err)
	}
	defer store.Close()

	app := cli.NewApp(store, resolver, api, router, os.Stdin, os.Stdout, logger)
	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error(ctx, "client stopped", "err", err)
	}
}

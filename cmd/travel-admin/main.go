package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	traveladmin "github.com/goliatone/go-travel-admin"
	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/client"
	"github.com/goliatone/go-travel-admin/pkg/config"
	"github.com/goliatone/go-travel-admin/pkg/tui"
	"github.com/goliatone/go-travel-admin/pkg/view"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:], nil, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("main.config: %v", err)
	}
	log.Configure(cfg.Level(), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := client.NewAPI(cfg.BaseURL,
		client.WithAPIPrefix(cfg.APIPrefix),
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(log.Logger),
	)
	if err != nil {
		log.Fatalf("main.client: %v", err)
	}

	app, err := traveladmin.New(ctx, api, traveladmin.WithLogger(log.Logger))
	if err != nil {
		log.Fatalf("main.catalog: %v", err)
	}

	var viewOpts []view.Option
	if cfg.Templates != "" {
		viewOpts = append(viewOpts, view.WithBaseDir(cfg.Templates))
	}
	engine, err := view.New(viewOpts...)
	if err != nil {
		log.Fatalf("main.view: %v", err)
	}

	runner, err := tui.New(
		tui.WithEngine(engine),
		tui.WithCatalog(app.Catalog()),
		tui.WithLogger(log.Logger),
	)
	if err != nil {
		log.Fatalf("main.tui: %v", err)
	}

	log.Debugf("using travel API at %s", api.BaseURL())
	if cfg.Screen != "" {
		ctrl, err := app.Screen(cfg.Screen)
		if err != nil {
			log.Fatalf("main.screen: %v", err)
		}
		exit(runner.Screen(ctx, ctrl))
		return
	}
	exit(runner.Home(ctx, app))
}

func exit(err error) {
	if err == nil || errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
		return
	}
	log.Fatalf("main.run: %v", err)
}

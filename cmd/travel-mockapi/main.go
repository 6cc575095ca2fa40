package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goliatone/go-travel-admin/internal/fakeapi"
	"github.com/goliatone/go-travel-admin/internal/log"
	"github.com/goliatone/go-travel-admin/pkg/entity"
)

func main() {
	port := getenv("PORT", "8084")
	prefix := getenv("API_PREFIX", entity.DefaultAPIPrefix)
	seed, err := strconv.ParseBool(getenv("SEED", "true"))
	if err != nil {
		log.Fatalf("invalid SEED: %v", err)
	}
	if lvl, err := log.ParseLevel(getenv("LOG_LEVEL", "info")); err == nil {
		log.Configure(lvl, os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := entity.DefaultCatalog(ctx)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	server, err := fakeapi.New(catalog,
		fakeapi.WithAPIPrefix(prefix),
		fakeapi.WithGreeting(getenv("GREETING", fakeapi.DefaultGreeting)),
		fakeapi.WithLogger(log.Logger),
	)
	if err != nil {
		log.Fatalf("fake api: %v", err)
	}
	if seed {
		if err := fakeapi.SeedTravel(server); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("travel mock api listening on :%s%s", port, prefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

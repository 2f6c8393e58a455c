package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/ledgerauth/internal/config"
	"github.com/geocoder89/ledgerauth/internal/db"
	httpx "github.com/geocoder89/ledgerauth/internal/http"
	"github.com/geocoder89/ledgerauth/internal/observability"
	"github.com/geocoder89/ledgerauth/internal/repo/postgres"
	"github.com/geocoder89/ledgerauth/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env, "ledgerauth-api")

	if cfg.EphemeralSessionKey() {
		log.Warn("SESSION_KEYS not set, using a random key; sessions end on restart")
	}

	tracing := observability.TracingConfig{
		ServiceName: "ledgerauth-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
	}
	shutdownTracer, err := observability.InitTracer(context.Background(), tracing)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	if err := db.Migrate(cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(context.Background(), cfg.DBURL, "ledgerauth-api")
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	sessions, err := session.NewManager(session.Options{
		Keys:       cfg.SessionKeys,
		CookieName: cfg.SessionCookie,
		MaxAge:     cfg.SessionMaxAge,
		Secure:     cfg.SessionSecure,
	})
	if err != nil {
		log.Error("session manager", "err", err)
		os.Exit(1)
	}

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	// set up routers with the log
	router, err := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Cfg:      cfg,
		Users:    postgres.NewUsersRepo(pool, prom),
		Sessions: sessions,
		Ping:     ping,
		Prom:     prom,
		Gatherer: reg,
		Tracing:  tracing.Enabled(),
	})
	if err != nil {
		log.Error("router setup failed", "err", err)
		os.Exit(1)
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

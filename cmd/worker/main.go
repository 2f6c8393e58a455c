package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/ledgerauth/internal/config"
	"github.com/geocoder89/ledgerauth/internal/ledger"
	"github.com/geocoder89/ledgerauth/internal/observability"
	"github.com/geocoder89/ledgerauth/internal/queue/redisclient"
	"github.com/geocoder89/ledgerauth/internal/queue/worker"
)

func main() {
	cfg := config.LoadShared()
	log := observability.NewLogger(cfg.Env, "ledgerauth-worker")

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	queue := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queue.Close()

	enroller := ledger.CryptoEnroller{
		Profiles: ledger.Profiles{
			ConfigDir:   cfg.Ledger.ConfigDir,
			WalletDir:   cfg.Ledger.WalletDir,
			AsLocalhost: cfg.Ledger.AsLocalhost,
		},
		CryptoDir: cfg.Ledger.CryptoDir,
		Domain:    cfg.Ledger.OrgDomain,
	}

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:    workerID,
		PopWait:     5 * time.Second,
		MaxAttempts: 5,
	}, queue, enroller, log)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID, "queue", ledger.EnrollQueue)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}

// Package worker drains the ledger enrollment queue.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/ledgerauth/internal/ledger"
)

// DeadQueue receives requests that failed permanently or ran out of attempts.
const DeadQueue = ledger.EnrollQueue + ":dead"

type Queue interface {
	Push(ctx context.Context, list string, payload []byte) error
	Pop(ctx context.Context, list string, wait time.Duration) ([]byte, error)
	Schedule(ctx context.Context, list string, payload []byte, at time.Time) error
	PromoteDue(ctx context.Context, list string, now time.Time) (int, error)
	Ping(ctx context.Context) error
}

type Enroller interface {
	Enroll(ctx context.Context, req ledger.EnrollRequest) error
}

type Config struct {
	WorkerID    string
	PopWait     time.Duration
	MaxAttempts int
	Backoff     Backoff
}

type Worker struct {
	cfg      Config
	queue    Queue
	enroller Enroller
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

func New(cfg Config, queue Queue, enroller Enroller, log *slog.Logger) *Worker {
	if cfg.PopWait <= 0 {
		cfg.PopWait = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	return &Worker{
		cfg:      cfg,
		queue:    queue,
		enroller: enroller,
		log:      log,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	failures := 0

	for {
		if ctx.Err() != nil {
			w.log.Info("worker received shutdown signal", "worker_id", w.cfg.WorkerID)
			return nil
		}

		_, err := w.queue.PromoteDue(ctx, ledger.EnrollQueue, w.now())
		if err == nil {
			_, err = w.ProcessOne(ctx)
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}

			// queue unreachable; back off before polling again
			delay := w.cfg.Backoff.Delay(failures)
			failures++
			w.log.Error("enroll queue error", "err", err, "retry_in", delay.String())
			w.sleep(ctx, delay)
			continue
		}

		failures = 0
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

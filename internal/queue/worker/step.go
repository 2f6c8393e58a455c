package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/geocoder89/ledgerauth/internal/ledger"
	"github.com/geocoder89/ledgerauth/internal/queue/redisclient"
)

// requeueTimeout bounds the write that puts a popped request back. It runs
// detached from the worker context so a shutdown cannot drop the request.
const requeueTimeout = 5 * time.Second

// ProcessOne handles at most one enrollment request. It reports whether an
// item was taken; the error is only set for queue failures.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	raw, err := w.queue.Pop(ctx, ledger.EnrollQueue, w.cfg.PopWait)
	if err != nil {
		if errors.Is(err, redisclient.ErrEmpty) {
			return false, nil
		}
		return false, err
	}

	var req ledger.EnrollRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		w.log.Error("enroll request undecodable", "err", err)

		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
		defer cancel()
		return true, w.queue.Push(pushCtx, DeadQueue, raw)
	}

	enrollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = w.enroller.Enroll(enrollCtx, req)
	cancel()

	if err != nil {
		return true, w.handleFailure(ctx, req, err)
	}

	w.log.Info("identity enrolled", "user", req.Username, "org", req.Org, "worker_id", w.cfg.WorkerID)
	return true, nil
}

// handleFailure puts req back without blocking the loop: retries are parked
// in the delayed set until their backoff has passed, permanent failures go
// to the dead queue. An enrollment cut short by shutdown is returned to the
// queue as-is and does not count as an attempt.
func (w *Worker) handleFailure(ctx context.Context, req ledger.EnrollRequest, cause error) error {
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()

	if ctx.Err() != nil && errors.Is(cause, context.Canceled) {
		w.log.Info("enrollment interrupted, requeued", "user", req.Username, "org", req.Org)
		return w.push(pushCtx, ledger.EnrollQueue, req)
	}

	req.Attempt++

	dead := errors.Is(cause, ledger.ErrNoCryptoMaterial) ||
		errors.Is(cause, ledger.ErrInvalidName) ||
		req.Attempt >= w.cfg.MaxAttempts

	w.log.Warn("enrollment failed",
		"user", req.Username,
		"org", req.Org,
		"attempt", req.Attempt,
		"requeue", !dead,
		"err", cause,
	)

	if dead {
		return w.push(pushCtx, DeadQueue, req)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	due := w.now().Add(w.cfg.Backoff.Delay(req.Attempt - 1))
	return w.queue.Schedule(pushCtx, ledger.EnrollQueue, payload, due)
}

func (w *Worker) push(ctx context.Context, list string, req ledger.EnrollRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return w.queue.Push(ctx, list, payload)
}

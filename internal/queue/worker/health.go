package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/ledgerauth/internal/ledger"
	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and readiness for the enrollment worker.
// Both bodies carry the worker id and queue name so a probe failure points
// at the right process.
func (w *Worker) HealthHandler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	ident := gin.H{"worker_id": w.cfg.WorkerID, "queue": ledger.EnrollQueue}
	with := func(extra gin.H) gin.H {
		out := gin.H{}
		for k, v := range ident {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, with(gin.H{"status": "ok"}))
	})

	// readiness: the loop is running and redis answers
	r.GET("/readyz", func(c *gin.Context) {
		w.readyMu.RLock()
		ready := w.ready
		w.readyMu.RUnlock()

		if !ready {
			c.JSON(http.StatusServiceUnavailable, with(gin.H{"status": "not_ready"}))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		if err := w.queue.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, with(gin.H{"status": "not_ready", "redis": "down"}))
			return
		}
		c.JSON(http.StatusOK, with(gin.H{"status": "ready"}))
	})

	return r
}

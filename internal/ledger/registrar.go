package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EnrollQueue is the Redis list enrollment requests are pushed onto.
const EnrollQueue = "ledger:enroll"

// Registrar asks for a wallet identity to be created for a user.
type Registrar interface {
	Register(ctx context.Context, username, org string, isAdmin bool) error
}

type EnrollRequest struct {
	Username    string    `json:"username"`
	Org         string    `json:"org"`
	IsAdmin     bool      `json:"isAdmin"`
	RequestedAt time.Time `json:"requestedAt"`
	// Attempt counts failed enrollments; the worker bumps it on requeue.
	Attempt int `json:"attempt,omitempty"`
}

// Pusher is satisfied by redisclient.Client.
type Pusher interface {
	Push(ctx context.Context, list string, payload []byte) error
}

type QueueRegistrar struct {
	queue Pusher
	now   func() time.Time
}

func NewQueueRegistrar(queue Pusher) *QueueRegistrar {
	return &QueueRegistrar{queue: queue, now: time.Now}
}

func (r *QueueRegistrar) Register(ctx context.Context, username, org string, isAdmin bool) error {
	payload, err := json.Marshal(EnrollRequest{
		Username:    username,
		Org:         org,
		IsAdmin:     isAdmin,
		RequestedAt: r.now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := r.queue.Push(ctx, EnrollQueue, payload); err != nil {
		return fmt.Errorf("queue enrollment for %s: %w", username, err)
	}
	return nil
}

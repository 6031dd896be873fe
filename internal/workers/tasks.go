package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/services/checkout"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/queue"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

// TaskClient enqueues asynq tasks.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewConfirmationTask packs a batch notification into an asynq task.
func NewConfirmationTask(notification checkout.BatchNotification) (*asynq.Task, error) {
	payload, err := json.Marshal(notification)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal confirmation payload: %w", err)
	}
	return asynq.NewTask(queue.TaskTypeEmailConfirmation, payload), nil
}

// Enqueuer pushes confirmation tasks onto the queue. It is the notifier the
// batch processor hands its outcomes to.
type Enqueuer struct {
	client     TaskClient
	maxRetries int
}

// NewEnqueuer creates a notification enqueuer. maxRetries caps delivery
// attempts per confirmation task.
func NewEnqueuer(client TaskClient, maxRetries int) *Enqueuer {
	return &Enqueuer{
		client:     client,
		maxRetries: maxRetries,
	}
}

// NotifyBatchProcessed enqueues the confirmation email for a decided batch.
func (e *Enqueuer) NotifyBatchProcessed(ctx context.Context, notification checkout.BatchNotification) error {
	task, err := NewConfirmationTask(notification)
	if err != nil {
		return err
	}

	if _, err := e.client.EnqueueContext(ctx, task, asynq.MaxRetry(e.maxRetries)); err != nil {
		return apperrors.QueueError(err)
	}
	return nil
}

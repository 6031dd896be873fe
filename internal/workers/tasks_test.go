package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/services/checkout"
	"github.com/CacconeLabYale/TsetseCheckout/internal/infrastructure/queue"
	apperrors "github.com/CacconeLabYale/TsetseCheckout/internal/pkg/errors"
)

type mockTaskClient struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (m *mockTaskClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.tasks = append(m.tasks, task)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	return &asynq.TaskInfo{ID: "1", Queue: "default"}, nil
}

func TestEnqueuer_NotifyBatchProcessed(t *testing.T) {
	client := &mockTaskClient{}
	enq := NewEnqueuer(client, 3)

	notification := checkout.BatchNotification{
		Recipient: "gdunn@example.edu",
		Username:  "gdunn",
		Passed:    true,
		Rows:      []checkout.RowSummary{{Line: 1, RequestID: "req-1"}},
	}
	require.NoError(t, enq.NotifyBatchProcessed(context.Background(), notification))

	require.Len(t, client.tasks, 1)
	task := client.tasks[0]
	assert.Equal(t, queue.TaskTypeEmailConfirmation, task.Type())

	var decoded checkout.BatchNotification
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, "gdunn@example.edu", decoded.Recipient)
	require.Len(t, decoded.Rows, 1)
	assert.Equal(t, "req-1", decoded.Rows[0].RequestID)

	// The configured retry cap travels with the task
	require.Len(t, client.opts[0], 1)
	opt := client.opts[0][0]
	assert.Equal(t, asynq.MaxRetryOpt, opt.Type())
	assert.Equal(t, 3, opt.Value())
}

func TestEnqueuer_EnqueueFailure(t *testing.T) {
	client := &mockTaskClient{err: errors.New("redis unreachable")}
	enq := NewEnqueuer(client, 3)

	err := enq.NotifyBatchProcessed(context.Background(), checkout.BatchNotification{Recipient: "gdunn@example.edu"})
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeQueueError, appErr.Code)
}

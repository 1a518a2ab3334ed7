package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueReconcile enqueues an ad-hoc ledger reconcile. A reconcile already waiting in the
// queue absorbs the request.
func (c *Client) EnqueueReconcile(ctx context.Context, requestedBy int64) (*asynq.TaskInfo, error) {
	task, err := NewLedgerReconcileTask(requestedBy, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.TaskID(TaskLedgerReconcile),
		asynq.Retention(time.Minute),
	)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

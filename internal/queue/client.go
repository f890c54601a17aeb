package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/markhenning/buildcomply/internal/config"
)

// Client enqueues pipeline tasks. Delivery is at-least-once; retry and
// backoff policy live here as asynq options, never inside the handlers.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnqueueDocumentIngest(payload DocumentIngestPayload) error {
	return c.enqueue(TypeDocumentIngest, payload, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

func (c *Client) EnqueueDocumentEvaluate(payload DocumentEvaluatePayload) error {
	return c.enqueue(TypeDocumentEvaluate, payload, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute))
}

func (c *Client) EnqueueRFIRecheck(payload RFIRecheckPayload) error {
	return c.enqueue(TypeRFIRecheck, payload, asynq.MaxRetry(3), asynq.Timeout(time.Minute))
}

func (c *Client) EnqueueChangeEventRecheck(payload ChangeEventRecheckPayload) error {
	return c.enqueue(TypeChangeEventRecheck, payload, asynq.MaxRetry(3), asynq.Timeout(time.Minute))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

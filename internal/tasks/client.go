package tasks

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"visitordesk/internal/config"
	"visitordesk/internal/notify"
	"visitordesk/internal/obs"
	"visitordesk/internal/utils/logger"
)

// Enqueuer is the part of asynq.Client the escalator needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskClient handles task enqueuing with improved error handling and context support
type TaskClient struct {
	client *asynq.Client
	logger *logger.Logger
}

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig) *TaskClient {
	return &TaskClient{
		client: asynq.NewClient(redisOpt(cfg)),
		logger: logger.New("TASKS"),
	}
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}

// Escalator queues security notifications for out-of-band handling. It is
// plugged into every dashboard's watcher as an extra alerter.
type Escalator struct {
	queue  Enqueuer
	logger *logger.Logger
}

var _ notify.Alerter = (*Escalator)(nil)

func NewEscalator(queue Enqueuer) *Escalator {
	return &Escalator{queue: queue, logger: logger.New("ESCALATOR")}
}

// Alert enqueues n when it is a security notification. Other types are ignored.
// A task already queued for the same event counts as success.
func (e *Escalator) Alert(ctx context.Context, n notify.Notification) error {
	if n.Type != notify.TypeSecurity {
		return nil
	}

	task, err := NewSecurityAlertTask(n)
	if err != nil {
		obs.SecurityEscalations.WithLabelValues("error").Inc()
		return e.logger.Error("failed to build security alert", err)
	}

	info, err := e.queue.EnqueueContext(ctx, task)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		obs.SecurityEscalations.WithLabelValues("duplicate").Inc()
		e.logger.Debug("security alert for visitor %s already queued", n.VisitorID)
		return nil
	case err != nil:
		obs.SecurityEscalations.WithLabelValues("error").Inc()
		return e.logger.Error("failed to enqueue security alert", err)
	}

	obs.SecurityEscalations.WithLabelValues("queued").Inc()
	e.logger.Info("queued security alert %s for visitor %s", info.ID, n.VisitorID)
	return nil
}

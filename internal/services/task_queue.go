package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangang/teamdesk/internal/config"
	"github.com/huangang/teamdesk/pkg/logger"
)

const (
	TaskTypeLastLogin = "auth:last_login"
)

// LastLoginTask records a successful login for a user.
type LastLoginTask struct {
	UserID     string    `json:"user_id"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// LastLoginProcessor applies a LastLoginTask.
type LastLoginProcessor func(context.Context, *LastLoginTask) error

// TaskQueue defines the interface for login side-effect processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(ctx context.Context, task *LastLoginTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewLastLoginProcessor stamps the user's last_login through the user service.
func NewLastLoginProcessor(users *UserService) LastLoginProcessor {
	return func(ctx context.Context, task *LastLoginTask) error {
		return users.UpdateLastLogin(ctx, task.UserID, task.LoggedInAt)
	}
}

// NewTaskQueue returns an asynq-backed queue when Redis is enabled and
// reachable, and an inline queue running processor otherwise.
func NewTaskQueue(cfg *config.RedisConfig, processor LastLoginProcessor) TaskQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	}

	queue := NewSyncQueue()
	queue.SetProcessor(processor)
	return queue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a Redis-based queue after checking the connection.
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, task *LastLoginTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	t := asynq.NewTask(TaskTypeLastLogin, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskTypeLastLogin, err)
	}

	logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("task enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue by running the processor in the caller's
// goroutine.
type SyncQueue struct {
	processor LastLoginProcessor
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor LastLoginProcessor) {
	q.processor = processor
}

// Enqueue processes the task immediately and returns the processor's error.
func (q *SyncQueue) Enqueue(ctx context.Context, task *LastLoginTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, %s task dropped", TaskTypeLastLogin)
		return nil
	}
	return q.processor(ctx, task)
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}

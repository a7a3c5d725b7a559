package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/queue"
)

type TestQueue struct {
	Queue     *queue.TaskQueue
	Config    config.RedisConfig
	container *redis.RedisContainer
	Redis     *rdb.Client
	Inspector *asynq.Inspector // (this is for inspecting the queue in tests)
}

func NewTestQueue(t *testing.T) *TestQueue {
	ctx := context.Background()

	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithReuseByName("vendora-test-redis"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Ready to accept connections").
					WithStartupTimeout(30*time.Second),
				wait.ForListeningPort("6379/tcp").
					WithStartupTimeout(30*time.Second),
			),
		),
	)
	require.NoError(t, err, "Failed to start Redis container")

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err, "Failed to get redis connection string")

	appConfig := config.RedisConfig{Addr: endpoint}

	taskQueue, err := queue.NewQueue(&appConfig)
	require.NoError(t, err, "Failed to create application queue wrapper")

	return &TestQueue{
		Queue:     taskQueue,
		Config:    appConfig,
		container: redisContainer,
		Redis:     rdb.NewClient(&rdb.Options{Addr: endpoint}),
		Inspector: asynq.NewInspector(asynq.RedisClientOpt{Addr: endpoint}),
	}
}

func (tQ *TestQueue) Enqueue(taskType string, data interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return tQ.Queue.Enqueue(taskType, data, opts...)
}

// PendingTasks lists pending tasks of queueName; a queue that never saw a
// task counts as empty.
func (tQ *TestQueue) PendingTasks(queueName string) []*asynq.TaskInfo {
	tasks, err := tQ.Inspector.ListPendingTasks(queueName)
	if err != nil {
		return nil
	}
	return tasks
}

func (tQ *TestQueue) Cleanup(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tQ.Redis.FlushDB(ctx).Err(); err != nil {
		t.Logf("WARNING: failed to flush Redis between tests: %v", err)
	}
}

func (tQ *TestQueue) Close() {
	if tQ.Queue != nil {
		tQ.Queue.Close()
	}
	if tQ.Inspector != nil {
		tQ.Inspector.Close()
	}
	if tQ.Redis != nil {
		tQ.Redis.Close()
	}
}

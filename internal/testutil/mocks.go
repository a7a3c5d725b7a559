package testutil

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
)

// MockTaskQueue records enqueued tasks instead of writing to Redis
type MockTaskQueue struct {
	mock.Mock
}

func NewMockTaskQueue(t *testing.T) *MockTaskQueue {
	m := &MockTaskQueue{}
	m.Test(t)
	return m
}

func (m *MockTaskQueue) Enqueue(taskType string, data interface{}, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(taskType, data)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

// ExpectEnqueue sets up expectation for any payload of taskType
func (m *MockTaskQueue) ExpectEnqueue(taskType string) *mock.Call {
	return m.On("Enqueue", taskType, mock.Anything).Return(&asynq.TaskInfo{ID: "test-task"}, nil)
}

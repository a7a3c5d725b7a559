package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmailSender struct {
	mock.Mock
}

func (m *mockEmailSender) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	return m.Called(ctx, to, subject, htmlBody, textBody).Error(0)
}

type fakeExpirer struct {
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakeExpirer) ExpirePendingOrders(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.n, f.err
}

func emailTask(t *testing.T, p EmailDeliveryPayload) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask(TypeEmailDelivery, b)
}

func TestWorker_HandleEmailDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("sends through the email service", func(t *testing.T) {
		sender := &mockEmailSender{}
		sender.On("SendEmail", ctx, "jane@example.com", "Order received", "<p>hi</p>", "hi").Return(nil).Once()
		w := &Worker{email: sender}

		err := w.HandleEmailDelivery(ctx, emailTask(t, EmailDeliveryPayload{
			To: "jane@example.com", Subject: "Order received", HTMLBody: "<p>hi</p>", TextBody: "hi",
		}))
		require.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("send failure is retried", func(t *testing.T) {
		sender := &mockEmailSender{}
		sender.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("throttled")).Once()
		w := &Worker{email: sender}

		err := w.HandleEmailDelivery(ctx, emailTask(t, EmailDeliveryPayload{To: "a@b.c"}))
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("malformed payload skips retry", func(t *testing.T) {
		w := &Worker{email: &mockEmailSender{}}
		err := w.HandleEmailDelivery(ctx, asynq.NewTask(TypeEmailDelivery, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("missing recipient skips retry", func(t *testing.T) {
		w := &Worker{email: &mockEmailSender{}}
		err := w.HandleEmailDelivery(ctx, emailTask(t, EmailDeliveryPayload{Subject: "x"}))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestWorker_HandleOrderExpire(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("uses the current time as cutoff", func(t *testing.T) {
		expirer := &fakeExpirer{n: 3}
		w := &Worker{orders: expirer, now: func() time.Time { return now }}

		require.NoError(t, w.HandleOrderExpire(context.Background(), asynq.NewTask(TypeOrderExpire, nil)))
		require.Len(t, expirer.cutoffs, 1)
		assert.Equal(t, now, expirer.cutoffs[0])
	})

	t.Run("database error is returned", func(t *testing.T) {
		expirer := &fakeExpirer{err: errors.New("connection reset")}
		w := &Worker{orders: expirer, now: func() time.Time { return now }}

		err := w.HandleOrderExpire(context.Background(), asynq.NewTask(TypeOrderExpire, nil))
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestWorker_MuxRoutesBothTasks(t *testing.T) {
	expirer := &fakeExpirer{}
	w := &Worker{orders: expirer, email: &mockEmailSender{}, now: time.Now}

	err := w.Mux().ProcessTask(context.Background(), asynq.NewTask(TypeOrderExpire, nil))
	require.NoError(t, err)
	assert.Len(t, expirer.cutoffs, 1)
}

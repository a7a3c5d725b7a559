package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/logging"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// OrderExpirer is satisfied by *database.Queries.
type OrderExpirer interface {
	ExpirePendingOrders(ctx context.Context, cutoff time.Time) (int64, error)
}

type Worker struct {
	server *asynq.Server
	email  EmailSender
	orders OrderExpirer
	now    func() time.Time
}

func NewWorker(cfg *config.RedisConfig, email EmailSender, orders OrderExpirer) *Worker {
	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logging.Error("process task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	return &Worker{
		server: server,
		email:  email,
		orders: orders,
		now:    time.Now,
	}
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, w.HandleEmailDelivery)
	mux.HandleFunc(TypeOrderExpire, w.HandleOrderExpire)
	return mux
}

func (w *Worker) Start() error {
	return w.server.Start(w.Mux())
}

func (w *Worker) Close() {
	if w.server != nil {
		w.server.Shutdown()
	}
}

func (w *Worker) HandleEmailDelivery(ctx context.Context, t *asynq.Task) error {
	var p EmailDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.To == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	logging.Info("Sending email", "to", p.To, "subject", p.Subject)
	if err := w.email.SendEmail(ctx, p.To, p.Subject, p.HTMLBody, p.TextBody); err != nil {
		return fmt.Errorf("emailService.SendEmail failed: %w", err)
	}
	return nil
}

// HandleOrderExpire is idempotent: a second run in the same instant finds no
// pending order past its deadline.
func (w *Worker) HandleOrderExpire(ctx context.Context, _ *asynq.Task) error {
	n, err := w.orders.ExpirePendingOrders(ctx, w.now())
	if err != nil {
		return fmt.Errorf("expiring pending orders: %w", err)
	}
	if n > 0 {
		logging.Info("expired pending orders", "count", n)
	}
	return nil
}

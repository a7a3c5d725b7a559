package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/container"
	"github.com/vendora/vendora-backend/internal/logging"
)

// Runs the asynq worker (email delivery, order expiry) and the scheduler that
// enqueues the periodic expiry sweep.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logging.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Cleanup()

	logging.Info("Starting queue worker...")
	if err := c.Worker.Start(); err != nil {
		log.Fatalf("Worker failed to start: %v", err)
	}

	if err := c.Scheduler.Start(); err != nil {
		log.Fatalf("Scheduler failed to start: %v", err)
	}

	<-ctx.Done()
	logging.Info("Shutting down worker...")
}

package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	apidoc "github.com/vendora/vendora-backend/api"
	"github.com/vendora/vendora-backend/internal/api"
	"github.com/vendora/vendora-backend/internal/audit"
	"github.com/vendora/vendora-backend/internal/auth"
	"github.com/vendora/vendora-backend/internal/aws"
	"github.com/vendora/vendora-backend/internal/cache"
	"github.com/vendora/vendora-backend/internal/checkout"
	"github.com/vendora/vendora-backend/internal/config"
	"github.com/vendora/vendora-backend/internal/database"
	"github.com/vendora/vendora-backend/internal/logging"
	"github.com/vendora/vendora-backend/internal/notifications"
	"github.com/vendora/vendora-backend/internal/queue"
	"github.com/vendora/vendora-backend/internal/rbac"
	"github.com/vendora/vendora-backend/internal/swagger"
)

type Container struct {
	Config        *config.Config
	Database      *database.Database
	Queue         *queue.TaskQueue
	RedisClient   *redis.Client
	AuthService   *auth.AuthService
	EmailService  *aws.EmailService
	S3Service     *aws.S3Service
	Authenticator *auth.Authenticator
	Server        *api.Server
	Worker        *queue.Worker
	Scheduler     *queue.Scheduler
}

func New(ctx context.Context, cfg config.Config) (*Container, error) {
	c := &Container{Config: &cfg}
	if err := c.init(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}
	return c, nil
}

func (c *Container) init(ctx context.Context) error {
	cfg := c.Config

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	c.Database = db
	logging.Info("Connected to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port)

	taskQueue, err := queue.NewQueue(&cfg.Redis)
	if err != nil {
		return err
	}
	c.Queue = taskQueue

	// Two separate Redis connection pools are used: the asynq task
	// queue manages its own connection, and this client is used
	// for refresh tokens and the permission cache.
	redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	c.RedisClient = redisClient

	jwtService, err := auth.NewJWTService([]byte(cfg.JWT.SigningKey), cfg.JWT.Issuer, cfg.JWT.Expiry)
	if err != nil {
		return err
	}
	c.AuthService = auth.NewAuthService(redisClient, jwtService, db.Queries(), cfg.Auth)
	c.Authenticator = auth.NewAuthenticator(jwtService, db.Queries())

	if c.EmailService, err = aws.NewEmailService(ctx, cfg.AWS); err != nil {
		return err
	}
	if c.S3Service, err = aws.NewS3Service(ctx, cfg.AWS); err != nil {
		return err
	}

	// localstack-specific config (identities and buckets are not managed by the app in prod)
	if cfg.AWS.EndpointURL != "" {
		if err := c.EmailService.VerifyEmailIdentity(ctx); err != nil {
			logging.Error("Failed to verify email identity", "error", err)
		}
		if err := c.S3Service.EnsureBucket(ctx); err != nil {
			logging.Error("Failed to create bucket", "bucket", cfg.AWS.Bucket, "error", err)
		}
	}

	mailer, err := notifications.NewMailer(taskQueue)
	if err != nil {
		return err
	}

	auditLog := audit.NewLogger()
	checkoutSvc, err := checkout.NewService(db, auditLog, mailer, *cfg)
	if err != nil {
		return err
	}

	docs, err := swagger.Handler(ctx, apidoc.OpenAPI)
	if err != nil {
		return err
	}

	permissions := cache.NewPermissionCache(redisClient, db.Queries(), cfg.Cache.PermissionTTL)
	c.Server = api.NewServer(api.Deps{
		DB:            db,
		Authorizer:    rbac.NewAuthorizer(permissions),
		Permissions:   permissions,
		AuthService:   c.AuthService,
		Authenticator: c.Authenticator,
		Checkout:      checkoutSvc,
		Mailer:        mailer,
		Media:         c.S3Service,
		Audit:         auditLog,
		Redis:         redisClient,
		Docs:          docs,
		Config:        cfg,
	})

	c.Worker = queue.NewWorker(&cfg.Redis, c.EmailService, db.Queries())
	if c.Scheduler, err = queue.NewScheduler(&cfg.Redis, cfg.Orders.ExpiryCron); err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	return nil
}

func (c *Container) Cleanup() {
	if c.Scheduler != nil {
		c.Scheduler.Close()
		logging.Info("Scheduler closed")
	}
	if c.Queue != nil {
		_ = c.Queue.Close()
		logging.Info("Queue client closed")
	}
	if c.Worker != nil {
		c.Worker.Close()
		logging.Info("Worker closed")
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
		logging.Info("Redis client closed")
	}
	if c.Database != nil {
		c.Database.Close()
		logging.Info("Database connection closed")
	}
}

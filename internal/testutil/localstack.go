package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vendora/vendora-backend/internal/aws"
	"github.com/vendora/vendora-backend/internal/config"
)

// TestLocalStack runs S3 and SES and hands out services pointed at it.
type TestLocalStack struct {
	Container *localstack.LocalStackContainer
	Config    config.AWSConfig
	S3        *aws.S3Service
	Email     *aws.EmailService
}

func NewTestLocalStack(t *testing.T) *TestLocalStack {
	ctx := context.Background()

	container, err := localstack.Run(ctx,
		"localstack/localstack:3.0",
		testcontainers.WithReuseByName("vendora-test-localstack"),
		testcontainers.WithEnv(map[string]string{"SERVICES": "s3,ses"}),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Ready.").
					WithOccurrence(1).
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("4566/tcp").
					WithStartupTimeout(60*time.Second),
			),
		),
	)
	require.NoError(t, err, "Failed to start LocalStack container")

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(t, err, "Failed to get LocalStack endpoint")

	cfg := config.AWSConfig{
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		EndpointURL:     endpoint,
		Bucket:          "vendora-test-media",
		FromEmail:       "orders@vendora.test",
	}

	s3Svc, err := aws.NewS3Service(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s3Svc.EnsureBucket(ctx))

	emailSvc, err := aws.NewEmailService(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, emailSvc.VerifyEmailIdentity(ctx))

	ls := &TestLocalStack{
		Container: container,
		Config:    cfg,
		S3:        s3Svc,
		Email:     emailSvc,
	}
	t.Cleanup(ls.Close)
	return ls
}

func (ls *TestLocalStack) Close() {
	if ls.Container != nil {
		_ = ls.Container.Terminate(context.Background())
	}
}

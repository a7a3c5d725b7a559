package aws_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/internal/testutil"
)

func TestS3Service_ObjectLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	ls := testutil.NewTestLocalStack(t)
	key := "media/test/original.png"

	require.NoError(t, ls.S3.Ping(ctx))
	require.NoError(t, ls.S3.EnsureBucket(ctx), "second call is a no-op")

	require.NoError(t, ls.S3.PutObject(ctx, key, strings.NewReader("png-bytes"), "image/png"))

	url, err := ls.S3.PresignGetURL(ctx, key, 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Expires=300")

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png-bytes", string(body))

	require.NoError(t, ls.S3.DeleteObject(ctx, key))
	require.NoError(t, ls.S3.DeleteObject(ctx, key), "deleting a missing key succeeds")
}

func TestEmailService_SendEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ls := testutil.NewTestLocalStack(t)
	err := ls.Email.SendEmail(context.Background(), "jane@example.com", "Your order", "<p>hi</p>", "hi")
	assert.NoError(t, err)
}

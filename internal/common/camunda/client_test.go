// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	commonerrors "cohort-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{
		config: &ClientConfig{
			RetryConfig: &RetryConfig{
				MaxRetries: 2,
				BaseDelay:  time.Millisecond,
				MaxDelay:   5 * time.Millisecond,
			},
		},
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"connection refused", fmt.Errorf("rpc error: connection refused"), true},
		{"deadline exceeded", fmt.Errorf("context deadline exceeded"), true},
		{"unavailable", fmt.Errorf("rpc error: code = Unavailable"), true},
		{"broken pipe", fmt.Errorf("write: broken pipe"), true},
		{"not found", fmt.Errorf("process definition not found"), false},
		{"validation", fmt.Errorf("variables could not be parsed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableZeebeError(tt.err))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code commonerrors.ErrorCode
	}{
		{"timeout", fmt.Errorf("request timeout"), commonerrors.ErrCodeTimeout},
		{"not found", fmt.Errorf("resource not found"), commonerrors.ErrCodeResourceNotFound},
		{"unauthorized", fmt.Errorf("unauthorized"), commonerrors.ErrCodeAuthenticationFailed},
		{"generic", fmt.Errorf("internal broker failure"), commonerrors.ErrCodeExternalServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapZeebeError(tt.err, "complete-job", 0)

			var stdErr *commonerrors.StandardError
			require.ErrorAs(t, mapped, &stdErr)
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

func TestMapZeebeError_IncludesAttemptCount(t *testing.T) {
	mapped := mapZeebeError(fmt.Errorf("unavailable"), "deploy-process", 3)

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, mapped, &stdErr)
	assert.Contains(t, stdErr.Details, "after 3 attempts")
	assert.Contains(t, stdErr.Details, "deploy-process")
}

func TestExecuteWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	c := newTestClient()

	calls := 0
	result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("rpc error: code = Unavailable")
		}
		return "ok", nil
	}, "create-instance")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_NonTransientFailsImmediately(t *testing.T) {
	c := newTestClient()

	calls := 0
	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("process definition not found")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodeResourceNotFound, stdErr.Code)
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	c := newTestClient()

	calls := 0
	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("connection refused")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries")
}

func TestExecuteWithRetry_RespectsContextCancellation(t *testing.T) {
	c := newTestClient()
	c.config.RetryConfig.BaseDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fmt.Errorf("connection refused")
	}, "create-instance")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

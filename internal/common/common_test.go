package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestWithRetry(t *testing.T) {
	transient := &TransientError{Engine: "vision", Err: errors.New("unavailable")}
	permanent := errors.New("bad request")

	tests := []struct {
		wantErr   error
		name      string
		failures  []error
		wantCalls int
	}{
		{name: "succeeds first time", wantCalls: 1},
		{name: "recovers after transient failure", failures: []error{transient}, wantCalls: 2},
		{name: "rate limit is retried", failures: []error{ErrRateLimit}, wantCalls: 2},
		{name: "permanent error is not retried", failures: []error{permanent}, wantCalls: 1, wantErr: permanent},
		{
			name:      "gives up after max attempts",
			failures:  []error{transient, transient, transient},
			wantCalls: 3,
			wantErr:   ErrMaxRetries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, fastRetry())

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		return &TransientError{Engine: "vision", Err: errors.New("unavailable")}
	}, RetryPolicy{MaxAttempts: 5, InitialDelay: time.Second})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "wrapped rate limit", err: errors.Join(errors.New("vision"), ErrRateLimit), want: true},
		{name: "transient engine failure", err: fmt.Errorf("page 2: %w", &TransientError{Engine: "vision", Err: errors.New("x")}), want: true},
		{name: "engine not configured", err: ErrOCRUnavailable, want: false},
		{name: "plain", err: errors.New("x"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}
	transient := &TransientError{Engine: "vision", Err: errors.New("unavailable")}

	tests := []struct {
		err  error
		name string
		n    int
		want time.Duration
	}{
		{name: "first retry", n: 1, err: transient, want: 100 * time.Millisecond},
		{name: "grows by multiplier", n: 2, err: transient, want: 300 * time.Millisecond},
		{name: "capped at max delay", n: 4, err: transient, want: time.Second},
		{name: "quota waits the maximum", n: 1, err: ErrRateLimit, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Backoff(tt.n, tt.err))
		})
	}
}

func TestTransientError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransientError{Engine: "vision", Err: cause}
	assert.Equal(t, "vision temporarily unavailable: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestUserError(t *testing.T) {
	err := NewUserError("no record found", ErrNotFound)
	assert.Equal(t, "no record found: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "import failed", NewUserError("import failed", nil).Error())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	handler, err := NewHandler(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger := slog.New(handler)
	logger.Debug("hidden")
	logger.Info("Processed submission", "status", "AUTHENTIC")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"status":"AUTHENTIC"`)

	_, err = NewHandler(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ───────── helpers ───────── */

var fast = Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Multiplier: 2}

type classified struct{ retry bool }

func (c classified) Error() string   { return "classified" }
func (c classified) Retryable() bool { return c.retry }

type hinted struct{ wait time.Duration }

func (h hinted) Error() string             { return "slow down" }
func (h hinted) Retryable() bool           { return true }
func (h hinted) RetryAfter() time.Duration { return h.wait }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

// failing returns fn failing with errs in order, then succeeding.
func failing(errs ...error) (func() error, *int) {
	calls := 0
	return func() error {
		calls++
		if calls <= len(errs) {
			return errs[calls-1]
		}
		return nil
	}, &calls
}

/* ───────── WithBackoff ───────── */

func TestWithBackoff(t *testing.T) {
	server := &HTTPError{StatusCode: 503, Message: "unavailable"}
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"first try", nil, 1, nil},
		{"recovers", []error{server, server}, 3, nil},
		{"exhausted", []error{server, server, server}, 3, server},
		{"client error stops", []error{&HTTPError{StatusCode: 400}}, 1, nil},
		{"self classified stop", []error{classified{retry: false}}, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, calls := failing(tt.errs...)
			err := WithBackoff(context.Background(), fast, fn)

			assert.Equal(t, tt.wantCalls, *calls)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
			case tt.wantCalls == len(tt.errs):
				require.Error(t, err)
				assert.NotContains(t, err.Error(), "max retry attempts")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithBackoff_ZeroAttemptsRunsOnce(t *testing.T) {
	fn, calls := failing(&HTTPError{StatusCode: 500})
	err := WithBackoff(context.Background(), Config{}, fn)
	require.Error(t, err)
	assert.Equal(t, 1, *calls)
}

func TestWithBackoff_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2}

	calls := 0
	err := WithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return &HTTPError{StatusCode: 502}
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "retry aborted")
	assert.Equal(t, 1, calls)
}

func TestWithBackoff_HonoursRetryAfter(t *testing.T) {
	cfg := Config{MaxAttempts: 2, InitialDelay: time.Hour, Multiplier: 1}
	fn, calls := failing(hinted{wait: 5 * time.Millisecond})

	start := time.Now()
	require.NoError(t, WithBackoff(context.Background(), cfg, fn))
	assert.Equal(t, 2, *calls)
	assert.Less(t, time.Since(start), time.Second, "server hint should replace the hour-long schedule")
}

/* ───────── delay ───────── */

func TestConfigDelay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}
	assert.Equal(t, 100*time.Millisecond, cfg.delay(1))
	assert.Equal(t, 300*time.Millisecond, cfg.delay(2))
	assert.Equal(t, 900*time.Millisecond, cfg.delay(3))
	assert.Equal(t, time.Second, cfg.delay(4), "capped at MaxDelay")

	flat := Config{InitialDelay: time.Second, Multiplier: 0}
	assert.Equal(t, time.Second, flat.delay(5), "multiplier below 1 keeps the delay flat")
}

func TestAddJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for range 50 {
		d := addJitter(base, 0.5)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/2)
	}
	assert.Equal(t, base, addJitter(base, 0))
	assert.LessOrEqual(t, addJitter(base, 7), 2*base, "fraction is capped at 1")
}

/* ───────── IsRetryable ───────── */

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline wrapped", fmt.Errorf("send: %w", context.DeadlineExceeded), false},
		{"net timeout", timeoutErr{}, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"500", &HTTPError{StatusCode: 500}, true},
		{"429", &HTTPError{StatusCode: 429}, true},
		{"408", &HTTPError{StatusCode: 408}, true},
		{"404", &HTTPError{StatusCode: 404}, false},
		{"self classified true", classified{retry: true}, true},
		{"self classified false", fmt.Errorf("wrap: %w", classified{retry: false}), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestSchedules(t *testing.T) {
	for name, cfg := range map[string]Config{"telegram": TelegramConfig(), "webhook": WebhookConfig()} {
		assert.GreaterOrEqual(t, cfg.MaxAttempts, 3, name)
		assert.Greater(t, cfg.InitialDelay, time.Duration(0), name)
		assert.GreaterOrEqual(t, cfg.MaxDelay, cfg.InitialDelay, name)
	}
}

func TestHTTPError_Error(t *testing.T) {
	assert.Equal(t, "HTTP 503: Service Unavailable", (&HTTPError{StatusCode: 503, Message: "Service Unavailable"}).Error())
}

package notify

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/resilience/circuitbreaker"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

const (
	workerPoolTimeout   = 5 * time.Second  // Timeout for acquiring worker slot
	notificationTimeout = 30 * time.Second // Timeout for individual notification
)

// Service dispatches status-change alerts to every enabled channel.
type Service interface {
	// NotifyStatusChange fans change out in background goroutines and
	// returns immediately. Delivery failures are logged and counted, never
	// returned: alerts are best effort and at most once.
	NotifyStatusChange(ctx context.Context, change *entity.StatusChange) error

	// GetChannelHealth reports breaker state per channel.
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown waits for in-flight sends, bounded by ctx, then cancels
	// the ones still running.
	Shutdown(ctx context.Context) error
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name               string `json:"name"`
	Enabled            bool   `json:"enabled"`
	CircuitBreakerOpen bool   `json:"circuit_breaker_open"`
	State              string `json:"state"`
}

type service struct {
	channels       []Channel
	workerPool     chan struct{} // semaphore
	breakers       map[string]*circuitbreaker.CircuitBreaker
	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewService creates a notification service with one circuit breaker per
// channel. maxConcurrent bounds in-flight sends across all channels.
func NewService(channels []Channel, maxConcurrent int) Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &service{
		channels:       channels,
		workerPool:     make(chan struct{}, maxConcurrent),
		breakers:       make(map[string]*circuitbreaker.CircuitBreaker, len(channels)),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	enabled := 0
	for _, ch := range channels {
		name := ch.Name()
		cfg := circuitbreaker.AlertChannelConfig(name)
		cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				alertBreakerOpens.WithLabelValues(name).Inc()
			}
		}
		svc.breakers[name] = circuitbreaker.New(cfg)
		if ch.IsEnabled() {
			enabled++
		}
	}
	alertChannelsEnabled.Set(float64(enabled))

	return svc
}

// NotifyStatusChange implements Service.
func (s *service) NotifyStatusChange(ctx context.Context, change *entity.StatusChange) error {
	if change == nil {
		slog.Warn("Invalid notification input: nil status change")
		return nil
	}

	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		requestID = uuid.New().String()
	}

	dispatched := 0
	for _, ch := range s.channels {
		if !ch.IsEnabled() {
			continue
		}
		dispatched++
		s.wg.Add(1)
		go s.notifyChannel(requestID, ch, change)
	}

	if dispatched == 0 {
		slog.Debug("No notification channels enabled",
			slog.String("request_id", requestID),
			slog.Int64("channel_id", change.ChannelID))
		return nil
	}

	slog.Info("Dispatching status change notification",
		slog.String("request_id", requestID),
		slog.Int64("channel_id", change.ChannelID),
		slog.String("from", string(change.Previous)),
		slog.String("to", string(change.Current)),
		slog.Int("enabled_channels", dispatched))
	return nil
}

func (s *service) notifyChannel(requestID string, channel Channel, change *entity.StatusChange) {
	defer s.wg.Done()

	alertSendsInFlight.Inc()
	defer alertSendsInFlight.Dec()

	name := channel.Name()
	logger := slog.With(
		slog.String("request_id", requestID),
		slog.String("channel", name),
		slog.Int64("channel_id", change.ChannelID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in notification channel",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-time.After(workerPoolTimeout):
		logger.Warn("Notification dropped: worker pool full")
		recordDelivery(name, outcomeDroppedPool, 0)
		return
	case <-s.shutdownCtx.Done():
		return
	}

	ctx, cancel := context.WithTimeout(s.shutdownCtx, notificationTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	start := time.Now()

	_, err := circuitbreaker.Run(s.breakers[name], func() (struct{}, error) {
		return struct{}{}, channel.Send(ctx, change)
	})
	duration := time.Since(start)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		logger.Warn("Channel temporarily disabled due to circuit breaker")
		recordDelivery(name, outcomeDroppedCircuit, 0)
	case err != nil:
		recordDelivery(name, outcomeFailed, duration)
		logger.Warn("Channel notification failed",
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
	default:
		recordDelivery(name, outcomeSent, duration)
		logger.Info("Channel notification sent successfully",
			slog.String("status", string(change.Current)),
			slog.Duration("send_duration", duration))
	}
}

// GetChannelHealth implements Service.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		cb := s.breakers[ch.Name()]
		statuses = append(statuses, ChannelHealthStatus{
			Name:               ch.Name(),
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: cb.IsOpen(),
			State:              cb.State().String(),
		})
	}
	return statuses
}

// Shutdown implements Service. In-flight sends are allowed to finish until
// ctx ends; whatever is still running then is cancelled.
func (s *service) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down notification service")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.shutdownCancel()
		slog.Info("Notification service shutdown complete")
		return nil
	case <-ctx.Done():
		s.shutdownCancel()
		slog.Warn("Notification service shutdown timeout, in-flight sends cancelled")
		return ctx.Err()
	}
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/usecase/notify"
)

type stubAlerts struct{ health []notify.ChannelHealthStatus }

func (s stubAlerts) NotifyStatusChange(context.Context, *entity.StatusChange) error { return nil }
func (s stubAlerts) GetChannelHealth() []notify.ChannelHealthStatus                 { return s.health }
func (s stubAlerts) Shutdown(context.Context) error                                 { return nil }

func TestAlertHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		alerts   notify.Service
		wantCode int
	}{
		{"not initialized", nil, http.StatusServiceUnavailable},
		{"all closed", stubAlerts{health: []notify.ChannelHealthStatus{
			{Name: "discord", Enabled: true},
			{Name: "slack", Enabled: false, CircuitBreakerOpen: true},
		}}, http.StatusOK},
		{"enabled breaker open", stubAlerts{health: []notify.ChannelHealthStatus{
			{Name: "telegram", Enabled: true, CircuitBreakerOpen: true, State: "open"},
		}}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			alertHealthHandler(tt.alerts).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/channels", nil))
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.alerts == nil {
				return
			}
			var body alertHealthResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Healthy != (tt.wantCode == http.StatusOK) {
				t.Errorf("healthy = %v", body.Healthy)
			}
		})
	}
}

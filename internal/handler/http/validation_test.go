package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInputValidation(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mw := InputValidation(1024)(readAll)

	tests := []struct {
		name     string
		path     string
		auth     string
		body     string
		wantCode int
	}{
		{name: "typical request", path: "/channels", auth: "Bearer " + strings.Repeat("a", 500), body: `{"url":"https://youtube.com/@x"}`, wantCode: http.StatusOK},
		{name: "auth header at limit", path: "/channels", auth: strings.Repeat("a", maxAuthHeaderBytes), wantCode: http.StatusOK},
		{name: "auth header too large", path: "/channels", auth: strings.Repeat("a", maxAuthHeaderBytes+1), wantCode: http.StatusBadRequest},
		{name: "path at limit", path: "/" + strings.Repeat("p", maxPathBytes-1), wantCode: http.StatusOK},
		{name: "path too long", path: "/" + strings.Repeat("p", maxPathBytes), wantCode: http.StatusRequestURITooLong},
		{name: "body too large", path: "/channels", body: strings.Repeat("x", 2048), wantCode: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()
			mw.ServeHTTP(rr, req)
			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

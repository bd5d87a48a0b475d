package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chanwatch/internal/app"
	hhttp "chanwatch/internal/handler/http"
	hauth "chanwatch/internal/handler/http/auth"
	hchannel "chanwatch/internal/handler/http/channel"
	"chanwatch/internal/handler/http/requestid"
	"chanwatch/internal/observability/logging"
	"chanwatch/internal/observability/tracing"
	authservice "chanwatch/internal/service/auth"
	"chanwatch/pkg/config"
)

const (
	maxRequestBody = 1 << 20
	requestTimeout = 60 * time.Second
)

func main() {
	config.LoadDotEnv()
	logger := logging.NewLogger("api")
	slog.SetDefault(logger)

	webUISecret := os.Getenv("WEB_UI_SECRET")
	jwtSecret := os.Getenv("JWT_SECRET")
	if err := hauth.ValidateSecrets(webUISecret, jwtSecret); err != nil {
		logger.Error("dashboard secrets rejected", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, logger, app.Options{
		CheckMaxConcurrent:  config.GetEnvInt("CHECK_MAX_CONCURRENT", 4),
		Alerts:              config.GetEnvBool("API_ALERTS_ENABLED", true),
		NotifyMaxConcurrent: config.GetEnvInt("NOTIFY_MAX_CONCURRENT", 10),
	})
	if err != nil {
		logger.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("shutdown cleanup failed", slog.Any("error", err))
		}
	}()

	version := config.GetEnvString("VERSION", "dev")
	production := config.GetEnvString("ENVIRONMENT", "development") == "production"
	handler := applyMiddleware(logger, setupRoutes(a, version, webUISecret, jwtSecret), production)

	runServer(ctx, logger, handler, config.GetEnvInt("PORT", 8080), version)
}

// setupRoutes registers the public probes, the login endpoint and the
// token-protected channel routes.
func setupRoutes(a *app.App, version, webUISecret, jwtSecret string) *http.ServeMux {
	// レート制限: 認証エンドポイントは1分間に5リクエストまで
	loginLimiter := hhttp.NewRateLimiter(5, time.Minute)
	authService := authservice.NewAuthService(hauth.NewSecretProvider(webUISecret))

	mux := http.NewServeMux()
	mux.Handle("POST /auth/token", loginLimiter.Limit(hauth.TokenHandler(authService, []byte(jwtSecret))))

	mux.Handle("GET /health", &hhttp.HealthHandler{
		DB:       a.DB,
		Version:  version,
		Channels: a.Repo,
		Alerts:   a.Notify,
		YouTube:  a.YouTube,
	})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: a.DB})
	mux.Handle("GET /live", hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	hchannel.Register(mux, a.Channels)
	return mux
}

// applyMiddleware wraps handler, outermost first: HTTPS redirect, request
// id, tracing, logging, panic recovery, security headers, metrics, input
// limits and the per-request timeout.
func applyMiddleware(logger *slog.Logger, handler http.Handler, production bool) http.Handler {
	h := handler
	h = hhttp.Timeout(requestTimeout)(h)
	h = hhttp.InputValidation(maxRequestBody)(h)
	h = hhttp.MetricsMiddleware(h)
	h = hhttp.SecurityHeaders(production)(h)
	h = hhttp.Recover(logger)(h)
	h = hhttp.Logging(logger)(h)
	h = tracing.Middleware(h)
	h = requestid.Middleware(h)
	h = hhttp.HTTPSRedirect(production)(h)
	return h
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func runServer(ctx context.Context, logger *slog.Logger, handler http.Handler, port int, version string) {
	addr := ":" + strconv.Itoa(port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Slowloris 対策
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server...")
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

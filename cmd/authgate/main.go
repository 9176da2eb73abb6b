// Command authgate runs the login rate-limiting and token exchange service.
//
// Configuration is environment-driven; a .env file in the working directory
// is loaded when present. DATABASE_URL and SIGNING_SECRET are required.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/Edraak/authgate"
	"github.com/Edraak/authgate/directory"
	"github.com/Edraak/authgate/httpapi"
	"github.com/Edraak/authgate/internal/lockaudit/migrations"
	otelexport "github.com/Edraak/authgate/metrics/export/otel"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := mustEnv("DATABASE_URL")
	signingSecret := mustEnv("SIGNING_SECRET")
	redisAddr := envOrDefault("SESSION_STORE_ENDPOINT", "localhost:6379")
	listenAddr := envOrDefault("LISTEN_ADDR", ":8080")

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      envOrDefault("APP_ENV", "development"),
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := migrations.Up(ctx, db); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	cfg := authgate.DefaultConfig()
	cfg.Token.SigningSecret = []byte(signingSecret)
	cfg.RateLimit.WindowMinutes = envIntOrDefault("WINDOW_MINUTES", cfg.RateLimit.WindowMinutes)
	cfg.RateLimit.MaxRequests = envIntOrDefault("MAX_REQUESTS", cfg.RateLimit.MaxRequests)
	cfg.AccountLock.FailureThreshold = envIntOrDefault("ACCOUNT_FAILURE_THRESHOLD", cfg.AccountLock.FailureThreshold)
	cfg.AccountLock.Cooldown = envMinutesOrDefault("ACCOUNT_COOLDOWN_MINUTES", cfg.AccountLock.Cooldown)
	cfg.Token.RefreshTTL = envSecondsOrDefault("REFRESH_TTL_SECONDS", cfg.Token.RefreshTTL)
	cfg.Token.AccessTTL = envSecondsOrDefault("ACCESS_TTL_SECONDS", cfg.Token.AccessTTL)

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDatabase(db).
		WithDirectory(directory.NewPostgres(db)).
		WithLogger(logger).
		WithAuditSink(authgate.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	exporter, err := otelexport.NewExporter(otel.Meter("authgate"), engine)
	if err != nil {
		return err
	}
	defer exporter.Close()

	handler := httpapi.NewHandler(engine, httpapi.Options{
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func mustEnv(name string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		slog.Error("missing required env", "name", name)
		os.Exit(1)
	}
	return value
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envMinutesOrDefault(name string, fallback time.Duration) time.Duration {
	if v := envIntOrDefault(name, 0); v > 0 {
		return time.Duration(v) * time.Minute
	}
	return fallback
}

func envSecondsOrDefault(name string, fallback time.Duration) time.Duration {
	if v := envIntOrDefault(name, 0); v > 0 {
		return time.Duration(v) * time.Second
	}
	return fallback
}

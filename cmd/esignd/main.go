// Package main is the entry point for the esign contract server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lancerkit/esign/internal/config"
	"github.com/lancerkit/esign/internal/document"
	"github.com/lancerkit/esign/internal/lifecycle"
	"github.com/lancerkit/esign/internal/notify"
	"github.com/lancerkit/esign/internal/observability"
	"github.com/lancerkit/esign/internal/storage"
	"github.com/lancerkit/esign/internal/token"
	"github.com/lancerkit/esign/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics := observability.InitMetrics()

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("database connection failed", zap.Error(err))
		return 1
	}
	defer pool.Close()
	store := lifecycle.NewPgContractStore(pool)

	blobs, err := storage.NewMinioGateway(storage.MinioOptions{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: os.Getenv(cfg.Storage.AccessKeyEnv),
		SecretKey: os.Getenv(cfg.Storage.SecretKeyEnv),
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Error("object storage initialization failed", zap.Error(err))
		return 1
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		logger.Error("bucket provisioning failed", zap.Error(err))
		return 1
	}

	mailer, err := notify.NewSMTPGateway(notify.SMTPOptions{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: os.Getenv(cfg.Mail.PasswordEnv),
	})
	if err != nil {
		logger.Error("mail gateway initialization failed", zap.Error(err))
		return 1
	}

	engine := lifecycle.NewEngine(
		store,
		token.NewIssuer(cfg.Tokens.TTL),
		document.NewRenderer(),
		blobs,
		mailer,
		lifecycle.Options{
			PublicBaseURL: cfg.Server.PublicBaseURL,
			Sender: notify.Sender{
				Name:    cfg.Mail.FromName,
				Address: cfg.Mail.FromAddress,
				ReplyTo: cfg.Mail.ReplyTo,
			},
			DocumentURLTTL: cfg.Tokens.DocumentURLTTL,
			Metrics:        metrics,
		},
		logger,
	)

	jwtSecret := []byte(os.Getenv(cfg.Identity.SecretEnv))
	if len(jwtSecret) == 0 {
		logger.Error("admin JWT secret is not set", zap.String("env", cfg.Identity.SecretEnv))
		return 1
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Engine:       engine,
		Authenticate: transport.AdminAuth(cfg.Identity, jwtSecret),
		Health:       observability.HandleHealth(),
		Ready: observability.HandleReady(observability.ReadinessChecks{
			Database: store,
			Blobs:    blobs,
			Mail:     mailer,
		}),
		Metrics:           metrics.Handler(),
		MetricsMiddleware: metrics.HTTPMiddleware,
		RateLimited:       metrics.RecordRateLimited,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// openPool builds the pgx connection pool and verifies connectivity.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := os.Getenv(cfg.DSNEnv)
	if dsn == "" {
		return nil, fmt.Errorf("database DSN env %s is not set", cfg.DSNEnv)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

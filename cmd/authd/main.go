// Package main is the entry point for the authd HTTP daemon.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	authd "github.com/naviriti/authd"
	"github.com/naviriti/authd/internal/audit"
	"github.com/naviriti/authd/internal/config"
	"github.com/naviriti/authd/internal/httpapi"
	"github.com/naviriti/authd/mail"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := slog.LevelInfo
	if !cfg.Production() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting authd",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	cancelPing()
	logger.Info("Connected to Redis", slog.String("addr", cfg.Redis.Addr()))

	mailer, err := buildMailer(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to configure mail transport: %v", err)
	}

	engineCfg := authd.Config{
		JWT: authd.JWTConfig{
			Secret: []byte(cfg.Auth.JWTSecret),
			TTL:    cfg.Auth.JWTTTL,
			Issuer: cfg.Auth.JWTIssuer,
		},
		Password: authd.PasswordConfig{
			Cost: cfg.Auth.BcryptCost,
		},
		OTP: authd.OTPConfig{
			TTL: cfg.Auth.OTPTTL,
		},
		Account: authd.AccountConfig{
			AllowPreverified: cfg.Auth.AllowPreverified && !cfg.Production(),
		},
		Redis: authd.RedisConfig{
			KeyPrefix: cfg.Redis.KeyPrefix,
		},
		Audit: authd.AuditConfig{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: true,
		},
		Metrics: authd.MetricsConfig{
			Enabled: true,
		},
	}

	engine, err := authd.New().
		WithConfig(engineCfg).
		WithRedis(redisClient).
		WithMailer(mailer).
		WithAuditSink(audit.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	defer engine.Close()

	router := httpapi.NewRouter(engine, redisClient, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RequestTimeout:     cfg.Server.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// buildMailer selects the transport. config.Validate already rejected
// the outbox in production, so the fallback here can never mask a
// missing relay there.
func buildMailer(cfg *config.Config, logger *slog.Logger) (mail.Mailer, error) {
	if cfg.Mail.Mode == "smtp" {
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			Timeout:  cfg.Mail.Timeout,
		})
	}

	logger.Warn("Using in-memory outbox mailer; codes are not delivered anywhere")
	return mail.NewOutbox(), nil
}

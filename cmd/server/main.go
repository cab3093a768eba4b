package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/jobtrack/jobtrack/application/port/outbound"
	"github.com/jobtrack/jobtrack/application/usecase"
	"github.com/jobtrack/jobtrack/infrastructure/config"
	"github.com/jobtrack/jobtrack/infrastructure/http/handler"
	"github.com/jobtrack/jobtrack/infrastructure/http/middleware"
	"github.com/jobtrack/jobtrack/infrastructure/http/response"
	"github.com/jobtrack/jobtrack/infrastructure/persistence/postgres"
	redisstore "github.com/jobtrack/jobtrack/infrastructure/persistence/redis"
	"github.com/jobtrack/jobtrack/infrastructure/service/logger"
	"github.com/jobtrack/jobtrack/infrastructure/service/mail"
	"github.com/jobtrack/jobtrack/infrastructure/service/password"
	"github.com/jobtrack/jobtrack/infrastructure/service/token"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "jobtrack-auth",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	// Postgres holds the user accounts.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", nil)

	// Redis backs refresh token records and one-time codes; its per-key
	// TTL handling ages both out without any sweeping here.
	redisClient, err := redisstore.Connect(ctx, cfg.RedisURL)
	if err != nil {
		structuredLogger.Error(ctx, "Failed to connect to Redis", err, map[string]interface{}{
			"redis_url": cfg.RedisURL,
		})
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	structuredLogger.Info(ctx, "Redis connection established", nil)

	kvStore := redisstore.NewStore(redisClient)
	userRepo := postgres.NewUserRepository(db)

	codec, err := token.NewJWTCodec(token.Config{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize token codec: %v", err)
	}

	passwordService := password.NewBcryptPasswordService(cfg.BcryptCost)

	var mailer outbound.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
	} else {
		mailer = mail.NewLogMailer(structuredLogger)
	}

	registry := usecase.NewRefreshTokenRegistry(kvStore, cfg.RefreshTokenTTL)
	emailVerification := usecase.NewEmailVerificationUseCase(
		userRepo, kvStore, mailer, structuredLogger,
		cfg.VerificationCodeTTL, cfg.VerifiedMarkerTTL,
	)
	authUseCase := usecase.NewAuthUseCase(
		userRepo, registry, codec, passwordService, emailVerification,
		kvStore, mailer, structuredLogger,
		cfg.PasswordResetTTL, cfg.ResetBaseURL,
	)

	gate := middleware.NewSessionAuthenticator(codec, structuredLogger)
	authHandler := handler.NewAuthHandler(authUseCase, emailVerification, cfg.RefreshTokenTTL)

	router := mux.NewRouter()
	router.Use(middleware.CorrelationID)
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gate.Authenticate)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	authHandler.Register(router, gate)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "HTTP server listening", map[string]interface{}{
			"port": cfg.ServerPort,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "HTTP server failed", err, nil)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down", nil)

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Forced shutdown", err, nil)
	}

	structuredLogger.Info(ctx, "Server stopped", nil)
}

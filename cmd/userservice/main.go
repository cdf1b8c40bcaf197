package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keeeeeey/DevDay/internal/auth"
	"github.com/keeeeeey/DevDay/internal/config"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/confirmemail"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/emailcheck"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/findid"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/findpw"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/join"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/login"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/refresh"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/userinfo"
	"github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/middleware/authn"
	rateLimit "github.com/keeeeeey/DevDay/internal/middleware/ratelimit"
	"github.com/keeeeeey/DevDay/internal/rabbitmq"
	"github.com/keeeeeey/DevDay/internal/storage/postgres"
	redisrepo "github.com/keeeeeey/DevDay/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := logger.Setup(cfg.Env)

	log.Info("starting user service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	if err := postgres.RunMigrations(ctx, cfg); err != nil {
		log.Error("failed to run migrations", slog.String("err", err.Error()))
		os.Exit(1)
	}

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	sessions, err := redisrepo.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer sessions.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	authService := auth.New(
		log,
		storage,
		storage,
		storage,
		sessions,
		msgBroker,
		cfg.Tokens.Secret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
		cfg.Tokens.EmailAuthTTL,
	)

	router := setupRouter(log, authService, cfg.Tokens.Secret)

	srv := &http.Server{
		Addr:         cfg.UserServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.UserServer.Timeout,
		WriteTimeout: cfg.UserServer.Timeout,
		IdleTimeout:  cfg.UserServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.UserServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("User service stopped")
}

func setupRouter(log *slog.Logger, authService *auth.Auth, secret string) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(rateLimit.Join()).Post("/join",
		join.New(log, validate, authService),
	)
	r.With(rateLimit.Login()).Post("/login",
		login.New(log, validate, authService),
	)
	r.With(rateLimit.Refresh()).Post("/refresh",
		refresh.New(log, authService),
	)
	r.With(rateLimit.EmailCheck()).Post("/email-check",
		emailcheck.New(log, validate, authService),
	)
	r.With(rateLimit.ConfirmEmail()).Post("/confirm-email",
		confirmemail.New(log, validate, authService),
	)
	r.Post("/find-id",
		findid.New(log, validate, authService),
	)
	r.With(rateLimit.FindPw()).Post("/find-pw",
		findpw.New(log, validate, authService),
	)

	r.Group(func(r chi.Router) {
		r.Use(authn.New(secret))

		r.Get("/users/{id}",
			userinfo.New(log, authService),
		)
	})

	return r
}

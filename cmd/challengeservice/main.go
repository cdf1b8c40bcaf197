package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keeeeeey/DevDay/internal/challenge"
	"github.com/keeeeeey/DevDay/internal/clients/github"
	"github.com/keeeeeey/DevDay/internal/clients/solvedac"
	"github.com/keeeeeey/DevDay/internal/config"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/createchallenge"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/createrecord"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/joinchallenge"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/listchallenges"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/listrecords"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/mychallenges"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/progress"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/rank"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/readchallenge"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/recorddetail"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/reportrecord"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/syncmember"
	"github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/middleware/authn"
	rateLimit "github.com/keeeeeey/DevDay/internal/middleware/ratelimit"
	"github.com/keeeeeey/DevDay/internal/storage/postgres"
	"github.com/keeeeeey/DevDay/internal/storage/s3"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := logger.Setup(cfg.Env)

	log.Info("starting challenge service", slog.String("env", cfg.Env))

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

	photos, err := s3.New(ctx, cfg)
	if err != nil {
		log.Error("failed to init photo store", slog.String("err", err.Error()))
		os.Exit(1)
	}

	githubClient := github.New(cfg.External.GithubAPIURL, cfg.External.ClientTimeout)
	solvedacClient := solvedac.New(cfg.External.SolvedacAPIURL, cfg.External.ClientTimeout)

	challengeService := challenge.New(
		log,
		storage,
		storage,
		storage,
		storage,
		photos,
		githubClient,
		solvedacClient,
	)

	go challengeService.RunDailyJobs(ctx, cfg.Scheduler.DailyAt)

	router := setupRouter(log, challengeService, cfg.Tokens.Secret)

	srv := &http.Server{
		Addr:         cfg.ChallengeServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.ChallengeServer.Timeout,
		WriteTimeout: cfg.ChallengeServer.Timeout,
		IdleTimeout:  cfg.ChallengeServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.ChallengeServer.Address))
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

	log.Info("Challenge service stopped")
}

func setupRouter(log *slog.Logger, challengeService *challenge.Challenge, secret string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/challenges",
		listchallenges.New(log, challengeService),
	)
	r.Get("/challenges/{id}",
		readchallenge.New(log, challengeService),
	)
	r.Get("/challenges/{id}/rank",
		rank.New(log, challengeService),
	)

	r.Group(func(r chi.Router) {
		r.Use(authn.New(secret))

		r.Post("/challenges",
			createchallenge.New(log, challengeService),
		)
		r.Post("/challenges/{id}/join",
			joinchallenge.New(log, challengeService),
		)
		r.Get("/challenges/{id}/progress",
			progress.New(log, challengeService),
		)
		r.Get("/challenges/my",
			mychallenges.New(log, challengeService),
		)
		r.Post("/challenges/{id}/sync",
			syncmember.New(log, challengeService),
		)
		r.With(rateLimit.Records()).Post("/challenges/{id}/records",
			createrecord.New(log, challengeService),
		)
		r.Get("/challenges/{id}/records",
			listrecords.New(log, challengeService),
		)
		r.Get("/records/{id}",
			recorddetail.New(log, challengeService),
		)
		r.Post("/records/{id}/report",
			reportrecord.New(log, challengeService),
		)
	})

	return r
}

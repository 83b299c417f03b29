package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"concertlog/api/internal/cache"
	"concertlog/api/internal/config"
	"concertlog/api/internal/database"
	"concertlog/api/internal/handlers"
	"concertlog/api/internal/log"
	"concertlog/api/internal/metrics"
	"concertlog/api/internal/notify"
	"concertlog/api/internal/repository"
	"concertlog/api/internal/server"
	"concertlog/api/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	logger := log.New(cfg.Environment)
	metrics.Init(Version)

	mongoClient, err := database.NewMongoClient(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect mongo")
	}
	db := mongoClient.Database(cfg.Mongo.Database)
	users := repository.NewUserRepository(db)
	concerts := repository.NewConcertRepository(db)
	if err := ensureIndexes(ctx, db); err != nil {
		logger.Warn().Err(err).Msg("ensure indexes failed")
	}

	checks := map[string]handlers.PingFunc{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	var limiter service.LoginLimiter
	if redisClient != nil {
		limiter = cache.NewLoginThrottle(redisClient, cfg.Security.LoginMaxAttempts, cfg.Security.LoginWindow)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		logger.Info().Msg("redis not configured; login throttling disabled")
	}

	mailer, err := notify.NewMailer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init mailer")
	}
	dispatcher := notify.NewDispatcher(mailer, logger, cfg.Email.Timeout)
	logger.Info().Str("provider", cfg.EmailProvider()).Msg("email provider selected")

	handlerSet := handlers.NewHandlerSet(logger, cfg, handlers.Dependencies{
		Users:    users,
		Concerts: concerts,
		Limiter:  limiter,
		Notifier: dispatcher,
		Checks:   checks,
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, dispatcher, mongoClient, redisClient)
	return nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, dispatcher *notify.Dispatcher, mongoClient *mongo.Client, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending emails abandoned")
	}

	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mongo disconnect error")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}

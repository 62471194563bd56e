package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/maths-quiz/internal/auth"
	"github.com/gokatarajesh/maths-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/maths-quiz/internal/config"
	"github.com/gokatarajesh/maths-quiz/internal/db"
	"github.com/gokatarajesh/maths-quiz/internal/db/repository"
	"github.com/gokatarajesh/maths-quiz/internal/logging"
	"github.com/gokatarajesh/maths-quiz/internal/metrics"
	"github.com/gokatarajesh/maths-quiz/internal/server"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
	"github.com/gokatarajesh/maths-quiz/internal/worksheet"
	ws "github.com/gokatarajesh/maths-quiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	broadcaster *topic.Broadcaster
	warmWorker  *topic.WarmWorker
	bgCancels   []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	if err := auth.CheckHash(cfg.Security.AdminPasswordHash); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	topicRepo := repository.NewTopicRepository(db.New(pool))
	topicSvc := topic.NewService(
		topicRepo,
		topic.NewCache(redisClient, cfg.Topics.CacheTTL),
		topic.NewRedisPublisher(redisClient, cfg.Topics.ChangesChannel),
		logger,
		topic.ServiceOptions{DisableSeed: cfg.Topics.DisableSeed},
	)

	authSvc := auth.NewService(auth.ServiceOptions{
		PasswordHash: cfg.Security.AdminPasswordHash,
		TokenConfig: jwt.TokenConfig{
			Secret: []byte(cfg.Security.JWTSecret),
			TTL:    cfg.Security.TokenTTL,
			Issuer: cfg.Name,
		},
		Redis:       redisClient,
		MaxFailures: cfg.Security.MaxLoginFailures,
		Lockout:     cfg.Security.LoginLockout,
	}, logger)
	if !authSvc.Enabled() {
		logger.Warn().Msg("ADMIN_PASSWORD_HASH not set; topic writes are open to anyone")
	}

	hub := ws.NewHub(logger)
	hub.OnChange(func(open int) {
		metrics.WSConnections.Set(float64(open))
	})

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Handlers{
		Topics:     topic.NewHTTPHandler(topicSvc, logger),
		Worksheets: worksheet.NewHTTPHandler(topicSvc, logger),
		Auth:       auth.NewHTTPHandlers(authSvc, logger),
		AuthSvc:    authSvc,
		Feed:       topic.NewFeedHandler(hub, logger),
	})

	var warmWorker *topic.WarmWorker
	if cfg.Topics.WarmInterval > 0 {
		warmWorker = topic.NewWarmWorker(topicSvc, cfg.Topics.WarmInterval, logger)
	}

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       redisClient,
		http:        apiServer,
		broadcaster: topic.NewBroadcaster(redisClient, hub, cfg.Topics.ChangesChannel, logger),
		warmWorker:  warmWorker,
		bgCancels:   make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.broadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.broadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("topic broadcaster stopped")
			}
		}()
	}

	if a.warmWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.warmWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("topic warm worker stopped")
			}
		}()
	}
}

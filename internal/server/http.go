package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/maths-quiz/internal/auth"
	"github.com/gokatarajesh/maths-quiz/internal/config"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
	"github.com/gokatarajesh/maths-quiz/internal/worksheet"
	httperrors "github.com/gokatarajesh/maths-quiz/pkg/http/errors"
)

// Handlers groups the domain handlers mounted on the API mux. Nil members are skipped.
type Handlers struct {
	Topics     *topic.HTTPHandler
	Worksheets *worksheet.HTTPHandler
	Auth       *auth.HTTPHandlers
	AuthSvc    *auth.Service
	Feed       http.Handler
}

// PingFunc checks upstream dependencies for /v1/ping.
type PingFunc func(ctx context.Context) error

// NewHTTPServer builds the API server around NewRouter.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, h Handlers) *http.Server {
	ping := func(ctx context.Context) error {
		return pingDependencies(ctx, pool, rdb)
	}
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: NewRouter(logger, cfg.CORS, h, ping),
	}
}

// NewRouter wires ops, topic, worksheet, auth and feed routes behind the
// logging, metrics and CORS middleware.
func NewRouter(logger zerolog.Logger, cors config.CORS, h Handlers, ping PingFunc) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				logger.Error().Err(err).Msg("dependency ping failed")
				httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
				return
			}
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]bool{"pong": true})
	})

	admin := func(next http.HandlerFunc) http.Handler { return next }
	if h.AuthSvc != nil {
		guard := auth.RequireAdmin(h.AuthSvc, logger)
		admin = func(next http.HandlerFunc) http.Handler { return guard(next) }
	}

	if t := h.Topics; t != nil {
		mux.HandleFunc("GET /api/topics", t.List)
		mux.HandleFunc("GET /api/topics/year/{yearLevel}", t.ListByYear)
		mux.HandleFunc("GET /api/topics/{topicId}", t.Get)
		mux.HandleFunc("GET /api/year-levels", t.YearLevels)
		mux.Handle("POST /api/topics", admin(t.Create))
		mux.Handle("PUT /api/topics/{topicId}", admin(t.Replace))
		mux.Handle("DELETE /api/topics/{topicId}", admin(t.Delete))
		mux.Handle("POST /api/topics/{topicId}/import", admin(t.Import))
	}

	if ws := h.Worksheets; ws != nil {
		mux.HandleFunc("GET /api/worksheets", ws.Worksheet)
		mux.HandleFunc("GET /api/drills", ws.Drills)
		mux.HandleFunc("GET /api/drills/topics", ws.DrillTopics)
	}

	if h.Auth != nil {
		mux.HandleFunc("POST /api/admin/login", h.Auth.Login)
	}

	if h.Feed != nil {
		mux.Handle("GET /ws/topics", h.Feed)
	}

	var handler http.Handler = mux
	handler = withCORS(cors, handler)
	handler = withObservability(logger, handler)
	return handler
}

// pingDependencies checks Postgres and Redis concurrently.
func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	return g.Wait()
}

package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/maths-quiz/internal/config"
	"github.com/gokatarajesh/maths-quiz/internal/logging"
	"github.com/gokatarajesh/maths-quiz/internal/metrics"
)

// withObservability logs each request and records it under its route pattern.
// The mux fills r.Pattern while serving, so it is read after the call.
func withObservability(logger zerolog.Logger, next http.Handler) http.Handler {
	httpLogger := logger.With().Str("component", "http").Logger()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := metrics.NewStatusRecorder(w)
		r = r.WithContext(logging.IntoContext(r.Context(), httpLogger))

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		metrics.ObserveHTTP(r.Pattern, r.Method, rec.Status, elapsed)

		evt := httpLogger.Info()
		if rec.Status >= http.StatusInternalServerError {
			evt = httpLogger.Error()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.Status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// withCORS answers preflight requests and decorates responses for allowed origins.
func withCORS(cfg config.CORS, next http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && (wildcard || slices.Contains(cfg.AllowedOrigins, origin))
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package shell

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wrale/wsplay/internal/wsplayd/ratelimit"
)

// Router creates the daemon's HTTP router
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	// Basic middleware for all routes
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestIDHeaderMiddleware)
	r.Use(recoverMiddleware(h.logger))

	// Health checks and the websocket stay out of the request log
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", h.handleReady)
	r.With(h.limit(ratelimit.TypeConnect)).Get("/ws", h.ServeWs)

	r.Group(func(r chi.Router) {
		r.Use(logMiddleware(h.logger))

		r.Get("/status", h.handleStatus)
		r.Get("/status/events", h.handleEvents)
		r.With(h.limit(ratelimit.TypeReload)).Post("/reload", h.handleReload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, ErrNotFound("not found"))
	})

	return r
}

// limit applies the limiter's limitType limit, if a limiter is configured
func (h *Handler) limit(limitType string) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimit.Middleware(h.limiter, limitType)
}

// logMiddleware logs requests with detailed information
func logMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()

				event := logger.Info()
				if status >= 500 {
					event = logger.Error()
				}

				event.
					Str("requestId", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Dur("duration", time.Since(startTime)).
					Int("size", ww.BytesWritten()).
					Str("remoteIP", r.RemoteAddr).
					Msg("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// requestIDHeaderMiddleware ensures request ID is in response headers
func requestIDHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("Request-ID", reqID)
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns a handler panic into a logged 500
func recoverMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error().
						Interface("panic", rec).
						Str("requestId", middleware.GetReqID(r.Context())).
						Str("stack", string(debug.Stack())).
						Msg("recovered panic in handler")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"code":"INTERNAL","message":"internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

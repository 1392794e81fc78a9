package main

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/logging"
	"github.com/Simplici0/charterquote/internal/metrics"
)

func (s *server) mountMiddleware(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer(s.log))
	r.Use(accessLog(s.log))
	if s.metrics != nil {
		r.Use(metrics.Middleware(s.metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// requestLogger returns a logger tagged with the request and session ids.
func requestLogger(r *http.Request, base *zap.SugaredLogger) *zap.SugaredLogger {
	endpoint := r.URL.Path
	sessionID := ""
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			endpoint = p
		}
		sessionID = rc.URLParam("id")
	}
	return logging.WithRequest(base, middleware.GetReqID(r.Context()), sessionID, endpoint)
}

// recoverer turns handler panics into 500 responses and logs the stack.
func recoverer(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					stack := make([]byte, 8*1024)
					stack = stack[:runtime.Stack(stack, false)]
					requestLogger(r, log).Errorw("panic recovered", "panic", rec, "stack", string(stack))
					// a response already under way can't be replaced
					if ww.Status() == 0 && ww.BytesWritten() == 0 {
						respondWithError(ww, http.StatusInternalServerError, "internal server error")
					}
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// accessLog logs each completed request.
func accessLog(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			requestLogger(r, log).Infow("HTTP request completed",
				"method", r.Method,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

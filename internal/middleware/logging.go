package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"promotions-service/internal/tracing"
)

// RequestLogger attaches a child of logger to every request context, tagged
// with the chi request id and the trace id, and writes one access line per
// request. Run it after chi's RequestID and the tracing middleware.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	return func(next http.Handler) http.Handler {
		tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := zerolog.Ctx(r.Context())
			l.UpdateContext(func(c zerolog.Context) zerolog.Context {
				c = c.Str("request_id", chimw.GetReqID(r.Context()))
				if traceID := tracing.TraceID(r.Context()); traceID != "" {
					c = c.Str("trace_id", traceID)
				}
				return c
			})
			next.ServeHTTP(w, r)
		})
		return hlog.NewHandler(logger)(access(tagged))
	}
}

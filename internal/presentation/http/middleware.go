package httppresentation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ryzenix/pharmacart/internal/observability"
	"github.com/ryzenix/pharmacart/internal/pkg/logging"
)

const headerRequestID = "X-Request-ID"

// withObservability tags every request with an id, injects a request-scoped
// logger into the context, and records HTTP metrics plus an access log line.
func (h *Handler) withObservability(next http.Handler) http.Handler {
	reqCounter := h.tel.Counter(observability.MetricHTTPRequests)
	reqDuration := h.tel.Histogram(observability.MetricHTTPRequestDuration)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(headerRequestID, rid)

		reqLogger := h.log.With(zap.String("request_id", rid))
		ctx := logging.ContextWithLogger(r.Context(), reqLogger)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		statusLabel := strconv.Itoa(rec.status)
		reqCounter.Add(1,
			observability.L("method", r.Method),
			observability.L("status", statusLabel),
		)
		reqDuration.Observe(time.Since(start).Seconds(),
			observability.L("method", r.Method),
			observability.L("status", statusLabel),
		)

		reqLogger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

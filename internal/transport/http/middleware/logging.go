package httpmw

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/call-service/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// Logging пишет метод, путь, статус, длительность и request id.
// Ставится после middleware.RequestID.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		lvl := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			lvl = slog.LevelError
		}
		logger.FromCtx(r.Context()).Log(r.Context(), lvl, "http request",
			"req_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}

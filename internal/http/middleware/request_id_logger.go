package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

type ctxKeyRequestID struct{}

// RequestID returns the id assigned by RequestIDLoggerMiddleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

// RequestIDLoggerMiddleware tags every request with an x-request-id, logs its
// outcome and turns a handler panic into a 500 JSON body.
func RequestIDLoggerMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(`Access-Control-Allow-Origin`, `*`)
			w.Header().Set(`Access-Control-Allow-Methods`, `POST, GET, OPTIONS`)
			w.Header().Set(`Access-Control-Allow-Headers`, `Content-Type, x-request-id`)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			reqID := r.Header.Get(`x-request-id`)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(`x-request-id`, reqID)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, reqID)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			defer func() {
				panicked := recover()
				if panicked != nil && ww.Status() == 0 {
					ww.Header().Set(`Content-Type`, `application/json`)
					ww.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(ww).Encode(map[string]string{
						`error`:      `internal server error`,
						`request_id`: reqID,
					})
				}

				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				entry := logger.WithFields(log.Fields{
					`method`:     r.Method,
					`path`:       r.URL.Path,
					`status`:     status,
					`bytes`:      ww.BytesWritten(),
					`request_id`: reqID,
					`duration`:   time.Since(start).String(),
				})

				switch {
				case panicked != nil:
					entry.WithFields(log.Fields{
						`error`: fmt.Sprintf(`%v`, panicked),
						`stack`: string(debug.Stack()),
					}).Error(`panic recovered`)
				case status >= 400:
					entry.Error(`request completed with error status`)
				default:
					entry.Info(`request completed`)
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

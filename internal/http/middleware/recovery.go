package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applog "github.com/straye-as/crm-api/internal/logger"
	"go.uber.org/zap"
)

// Recovery converts a panicking handler into a 500 response and logs the stack
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				applog.WithRequest(logger, r.Method, r.URL.Path, r.Header.Get("X-Request-ID")).Error("panic recovered",
					zap.String("panic", fmt.Sprintf("%v", rec)),
					zap.ByteString("stack", debug.Stack()),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"type":"internal_error","title":"Internal Server Error","status":500,"detail":"Something went wrong on our side. Please try again."}`))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

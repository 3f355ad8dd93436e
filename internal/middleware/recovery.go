package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"league-console/pkg/apierror"
)

// Recovery turns a panicking handler into a 500 envelope. The session of the
// request is left as it was.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			slog.Error("panic recovered",
				"method", r.Method,
				"path", r.URL.Path,
				"error", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			writeJSONError(w, http.StatusInternalServerError, apierror.CodeInternal, "unexpected server error")
		}()

		next.ServeHTTP(w, r)
	})
}

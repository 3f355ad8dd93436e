package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"league-console/internal/model"
	"league-console/internal/session"
)

const requestIDHeader = "X-Request-ID"

// Only the head of a response body is kept for error logging.
const maxLoggedBody = 4 << 10

// Logging writes one line per request. Redirects log their target and failed
// requests log the error code from the response envelope.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		body := &headBuffer{}
		ww.Tee(body)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(started).Milliseconds(),
			"client_ip", extractClientIP(r),
		}
		attrs = append(attrs, sessionAttrs(r)...)
		attrs = append(attrs, outcomeAttrs(r, status, ww.Header(), body.Bytes())...)

		switch {
		case status >= 500:
			slog.Error("request", attrs...)
		case status >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	})
}

// sessionAttrs names the browser session and, when the access token cookie
// carries one, the signed-in user. Token values are never logged.
func sessionAttrs(r *http.Request) []any {
	var attrs []any
	if cookie, err := r.Cookie(session.CookieSessionID); err == nil && cookie.Value != "" {
		attrs = append(attrs, "session_id", cookie.Value)
	}
	if cookie, err := r.Cookie(session.CookieAccessToken); err == nil {
		if sub, ok := session.TokenSubject(cookie.Value); ok {
			attrs = append(attrs, "user_id", sub)
		}
	}
	return attrs
}

// headBuffer keeps the first maxLoggedBody bytes written to it.
type headBuffer struct {
	bytes.Buffer
}

func (b *headBuffer) Write(p []byte) (int, error) {
	if room := maxLoggedBody - b.Len(); room > 0 {
		b.Buffer.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func outcomeAttrs(r *http.Request, status int, header http.Header, body []byte) []any {
	var attrs []any

	if status >= 300 && status < 400 {
		if location := header.Get("Location"); location != "" {
			attrs = append(attrs, "location", location)
		}
		return attrs
	}

	if status < 400 {
		return attrs
	}

	if r.URL.RawQuery != "" {
		attrs = append(attrs, "query", r.URL.RawQuery)
	}

	var envelope model.APIResponse
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		attrs = append(attrs, "error_code", envelope.Error.Code, "error_message", envelope.Error.Message)
		if envelope.Error.Details != "" {
			attrs = append(attrs, "error_details", envelope.Error.Details)
		}
	}

	return attrs
}

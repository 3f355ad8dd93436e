package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"league-console/internal/access"
	"league-console/internal/model"
	"league-console/internal/session"
)

type contextKey string

const (
	storeContextKey    contextKey = "session_store"
	resolverContextKey contextKey = "scope_resolver"
)

const (
	LoginPath = "/login"

	// loadingRetrySeconds is how soon a loading view asks to be reloaded.
	loadingRetrySeconds = "2"
)

type SessionMiddleware struct {
	manager *session.Manager
	cookies session.CookieOptions
}

func NewSessionMiddleware(manager *session.Manager, cookies session.CookieOptions) *SessionMiddleware {
	return &SessionMiddleware{manager: manager, cookies: cookies}
}

// LoadSession opens the caller's session store and puts it in the request
// context. A store that holds tokens but no profile fetches the profile
// first, which may refresh the tokens or end the session.
func (m *SessionMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sid string
		if cookie, err := r.Cookie(session.CookieSessionID); err == nil {
			sid = cookie.Value
		}

		store, created, err := m.manager.Open(r.Context(), sid, session.NewHTTPCookies(w, m.cookies))
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "session unavailable")
			return
		}
		if created {
			session.SetSessionCookie(w, store.ID(), m.cookies)
		}

		snapshot := store.Snapshot()
		if snapshot.Authenticated() && snapshot.User == nil {
			store.FetchUser(r.Context())
		}

		ctx := context.WithValue(r.Context(), storeContextKey, store)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func StoreFromContext(ctx context.Context) (*session.Store, bool) {
	store, ok := ctx.Value(storeContextKey).(*session.Store)
	return store, ok
}

// RequireAuthCookie turns away requests that carry no access token cookie
// before any session work happens.
func RequireAuthCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieAccessToken)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			redirectToLogin(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRoles gates a view with policy. It must run after LoadSession.
func RequireRoles(policy access.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store, ok := StoreFromContext(r.Context())
			if !ok || !store.Snapshot().Authenticated() {
				if ok {
					// Drops the cookie mirror of a session the store no longer has.
					store.Logout(r.Context())
				}
				redirectToLogin(w, r)
				return
			}

			switch access.Evaluate(store.User(), policy) {
			case access.DecisionAllow:
				next.ServeHTTP(w, r)
			case access.DecisionDeny:
				http.Redirect(w, r, access.DeniedURL(policy.Reason), http.StatusSeeOther)
			default:
				w.Header().Set("Refresh", loadingRetrySeconds)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_ = json.NewEncoder(w).Encode(model.APIResponse{
					Success: true,
					Data:    map[string]string{"view": "loading"},
				})
			}
		})
	}
}

func LoginURL(next string) string {
	if next == "" || next == "/" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"next": {next}}.Encode()
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
}

func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}

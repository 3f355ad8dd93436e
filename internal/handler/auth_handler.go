package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"league-console/internal/middleware"
	"league-console/internal/model"
	"league-console/internal/scope"
	"league-console/pkg/apierror"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type loginView struct {
	Name string `json:"view"`
	Next string `json:"next,omitempty"`
}

type loginResult struct {
	User     *model.User `json:"user"`
	Redirect string      `json:"redirect"`
}

type meResult struct {
	Authenticated bool          `json:"authenticated"`
	User          *model.User   `json:"user"`
	Role          model.Role    `json:"role,omitempty"`
	ScopeKind     string        `json:"scopeKind"`
	Context       scope.Context `json:"context"`
	Home          string        `json:"home,omitempty"`
}

type deniedView struct {
	Name   string `json:"view"`
	Reason string `json:"reason,omitempty"`
	Home   string `json:"home"`
}

// LoginView renders the sign-in page, or skips it for a signed-in user.
func (h *AuthHandler) LoginView(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))

	if store, ok := middleware.StoreFromContext(r.Context()); ok {
		if user := store.User(); user != nil && store.Snapshot().Authenticated() {
			http.Redirect(w, r, redirectAfterLogin(next, user), http.StatusSeeOther)
			return
		}
	}

	writeSuccess(w, http.StatusOK, loginView{Name: "login", Next: next}, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	store, ok := middleware.StoreFromContext(r.Context())
	if !ok {
		writeError(w, errors.New("session middleware missing"))
		return
	}

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	if err := store.Login(r.Context(), payload.UsernameOrEmail, payload.Password, payload.LeagueCode); err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			writeError(w, apierror.InvalidCredentials())
			return
		}
		writeError(w, err)
		return
	}

	user := store.User()
	writeSuccess(w, http.StatusOK, loginResult{
		User:     user,
		Redirect: redirectAfterLogin(safeNext(r.URL.Query().Get("next")), user),
	}, nil)
}

// Logout always succeeds; the backend call inside the store is best effort.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if store, ok := middleware.StoreFromContext(r.Context()); ok {
		store.Logout(r.Context())
	}

	writeSuccess(w, http.StatusOK, map[string]string{"redirect": middleware.LoginPath}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok || !store.Snapshot().Authenticated() {
		writeError(w, apierror.New(apierror.CodeUnauthorized, "not signed in", "", http.StatusUnauthorized))
		return
	}

	user := store.User()
	s := scope.ForUser(user)
	result := meResult{
		Authenticated: true,
		User:          user,
		ScopeKind:     s.Kind.String(),
		Context:       scope.NewResolver(s, r.URL.Query()).Active(),
	}
	if user != nil {
		result.Role = user.PrimaryRole()
		result.Home = HomePath(result.Role)
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *AuthHandler) AccessDenied(w http.ResponseWriter, r *http.Request) {
	home := "/dashboard"
	if store, ok := middleware.StoreFromContext(r.Context()); ok {
		if user := store.User(); user != nil {
			home = HomePath(user.PrimaryRole())
		}
	}

	writeSuccess(w, http.StatusForbidden, deniedView{
		Name:   "access_denied",
		Reason: r.URL.Query().Get("reason"),
		Home:   home,
	}, nil)
}

func redirectAfterLogin(next string, user *model.User) string {
	if next != "" {
		return next
	}
	return HomePath(user.PrimaryRole())
}

// safeNext keeps only same-site paths.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	if strings.HasPrefix(next, middleware.LoginPath) {
		return ""
	}
	return next
}

package middleware

import (
	"context"
	"net/http"

	"league-console/internal/scope"
)

// ResolveScope decides the request's scope from the signed-in user and the
// URL. Without a session store every scope is selectable.
func ResolveScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := scope.Scope{Kind: scope.Selectable}
		if store, ok := StoreFromContext(r.Context()); ok {
			s = scope.ForUser(store.User())
		}

		resolver := scope.NewResolver(s, r.URL.Query())
		ctx := context.WithValue(r.Context(), resolverContextKey, resolver)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ResolverFromContext(ctx context.Context) (*scope.Resolver, bool) {
	resolver, ok := ctx.Value(resolverContextKey).(*scope.Resolver)
	return resolver, ok
}

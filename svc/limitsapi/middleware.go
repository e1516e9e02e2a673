package limitsapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

// PlanHeader carries the caller's plan when an upstream gateway resolves it.
const PlanHeader = "X-User-Plan"

// PlanHeaderMiddleware stores a valid X-User-Plan value in the request context
// for limits.PlanContextResolver. Only use it behind a gateway that sets the
// header itself.
func PlanHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if plan, err := limits.ParsePlanType(r.Header.Get(PlanHeader)); err == nil {
			r = r.WithContext(limits.SetPlanToContext(r.Context(), plan))
		}
		next.ServeHTTP(w, r)
	})
}

// BearerTokenAdmin admits requests whose Authorization header carries the
// given bearer token. It panics on an empty token.
func BearerTokenAdmin(token string) func(http.Handler) http.Handler {
	if token == "" {
		panic("limitsapi: empty admin token")
	}
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "limitsapi.errors.forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

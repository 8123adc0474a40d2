package shared

import (
	"encoding/json"
	"net/http"
)

// Same shape as the httpx problem details. httpx imports this package, so the
// struct is mirrored here instead of imported.
type problemDetail struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func respondProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problemDetail{Title: title, Status: status, Detail: detail})
}

// RequireRole guards a route group behind a role. The identity middleware must
// run earlier in the chain.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				respondProblem(w, http.StatusUnauthorized, "Unauthorized", "identity is required")
				return
			}
			if id.Role != role {
				respondProblem(w, http.StatusForbidden, "Forbidden", "role "+role+" is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

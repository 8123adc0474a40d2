package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	handler := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name     string
		identity *Identity
		want     int
	}{
		{"missing identity", nil, http.StatusUnauthorized},
		{"wrong role", &Identity{UserID: 3, Role: RoleCashier}, http.StatusForbidden},
		{"admin passes", &Identity{UserID: 1, Role: RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
			if tc.identity != nil {
				req = req.WithContext(ContextWithIdentity(req.Context(), *tc.identity))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)

			// Rejections carry the same problem-details shape as every other
			// error response.
			if tc.want != http.StatusNoContent {
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
				var problem problemDetail
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
				assert.Equal(t, tc.want, problem.Status)
				assert.NotEmpty(t, problem.Detail)
			}
		})
	}
}

func TestIdentityFromContextRequiresUserID(t *testing.T) {
	ctx := ContextWithIdentity(httptest.NewRequest(http.MethodGet, "/", nil).Context(), Identity{Role: RoleAdmin})
	_, ok := IdentityFromContext(ctx)
	assert.False(t, ok)
}

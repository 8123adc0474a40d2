package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garasipos/garasipos/internal/shared"
)

func TestRespondErrorMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: product 1", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: OLI-001 has 2, requested 5", shared.ErrInsufficientStock), http.StatusConflict},
		{fmt.Errorf("%w: already cancelled", shared.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("%w: sku", shared.ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("%w: discount exceeds price", shared.ErrInvalidDiscount), http.StatusBadRequest},
		{fmt.Errorf("%w: qty must be positive", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: admin only", shared.ErrForbidden), http.StatusForbidden},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)

		assert.Equal(t, tc.status, rr.Code, "err=%v", tc.err)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
		assert.Equal(t, tc.err.Error(), problem.Detail)
	}
}

func TestRespondErrorHidesUnexpectedErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Empty(t, problem.Detail)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

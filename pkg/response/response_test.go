package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrakech-reviews/service-community/pkg/domain"
)

type teapotError struct{}

func (teapotError) Error() string     { return "short and stout" }
func (teapotError) HTTPStatus() int   { return http.StatusTeapot }
func (teapotError) ErrorCode() string { return "TEAPOT" }

func render(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestError_MapsDomainKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domain.NewNotFoundError("Coupon", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", domain.NewConflictError("taken"), http.StatusConflict, "CONFLICT"},
		{"validation", domain.NewValidationError("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"balance", domain.NewInsufficientBalanceError("poor"), http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
		{"forbidden", domain.NewForbiddenError("ACCOUNT_DISABLED", "off"), http.StatusForbidden, "ACCOUNT_DISABLED"},
		{"wrapped", fmt.Errorf("outer: %w", domain.NewConflictError("inner")), http.StatusConflict, "CONFLICT"},
		{"status coder", teapotError{}, http.StatusTeapot, "TEAPOT"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := render(t, func(c *gin.Context) { Error(c, tc.err) })
			assert.Equal(t, tc.status, w.Code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestError_HidesInternalMessages(t *testing.T) {
	_, env := render(t, func(c *gin.Context) { Error(c, errors.New("pq: password authentication failed")) })
	assert.Equal(t, "internal server error", env.Error.Message)
}

func TestPaginated(t *testing.T) {
	w, env := render(t, func(c *gin.Context) { Paginated(c, []int{1, 2}, 45, 2, 20) })
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.TotalPages)
	assert.True(t, env.Pagination.HasNext)
	assert.True(t, env.Pagination.HasPrev)
}

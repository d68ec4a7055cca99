package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrakech-reviews/service-community/internal/application"
)

func TestCouponHandler_ValidateAndUse(t *testing.T) {
	s := newServer(t)
	adminToken, _ := s.adminToken(t)
	user := s.signup(t, "shopper")

	w, env := s.do(t, http.MethodPost, "/api/v1/coupons/admin", adminToken, map[string]any{
		"code":           "save10",
		"title":          "Ten percent",
		"discount_type":  "percentage",
		"discount_value": "10",
		"max_discount":   "50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created application.CouponDTO
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "SAVE10", created.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/coupons/validate", user.AccessToken, map[string]any{"code": "SAVE10", "order_amount": "1000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v application.CouponValidationDTO
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.True(t, v.Valid)
	assert.Equal(t, "50", v.Discount.String())

	w, env = s.do(t, http.MethodPost, "/api/v1/coupons/validate", user.AccessToken, map[string]any{"code": "NOPE", "order_amount": "10"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "COUPON_NOT_FOUND", env.Error.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/coupons/use", user.AccessToken, map[string]any{"code": "SAVE10", "order_amount": "200"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var r application.RedemptionDTO
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Equal(t, "20", r.Discount.String())

	w, env = s.do(t, http.MethodPost, "/api/v1/coupons/use", user.AccessToken, map[string]any{"code": "SAVE10", "order_amount": "200"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "COUPON_ALREADY_USED", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/coupons/admin/"+created.ID.String()+"/usage", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, env.Pagination.Total)

	w, _ = s.do(t, http.MethodGet, "/api/v1/coupons/my-usage", user.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCouponHandler_WeeklyRewardStatus(t *testing.T) {
	s := newServer(t)
	user := s.signup(t, "weekly")

	w, env := s.do(t, http.MethodPost, "/api/v1/coupons/weekly", user.AccessToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first application.CouponDTO
	require.NoError(t, json.Unmarshal(env.Data, &first))

	w, env = s.do(t, http.MethodPost, "/api/v1/coupons/weekly", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second application.CouponDTO
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, first.ID, second.ID)

	w, env = s.do(t, http.MethodGet, "/api/v1/coupons", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var available []application.CouponDTO
	require.NoError(t, json.Unmarshal(env.Data, &available))
	require.Len(t, available, 1)
	assert.Equal(t, "weekly_reward", available[0].Kind)
}

func TestCouponHandler_AdminManagement(t *testing.T) {
	s := newServer(t)
	adminToken, _ := s.adminToken(t)

	w, env := s.do(t, http.MethodPost, "/api/v1/coupons/admin", adminToken, map[string]any{
		"title":          "Generated",
		"discount_type":  "fixed",
		"discount_value": "20",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c application.CouponDTO
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Len(t, c.Code, 8)

	w, env = s.do(t, http.MethodPut, "/api/v1/coupons/admin/"+c.ID.String(), adminToken, map[string]any{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Equal(t, "Renamed", c.Title)

	w, env = s.do(t, http.MethodPost, "/api/v1/coupons/admin", adminToken, map[string]any{
		"title":          "Too much",
		"discount_type":  "percentage",
		"discount_value": "150",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/coupons/admin?status=active", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, env.Pagination.Total)

	w, _ = s.do(t, http.MethodGet, "/api/v1/coupons/admin/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/coupons/admin/"+c.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/coupons/admin/"+c.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/pkg/pagination"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

// CouponHandler handles HTTP requests for coupons and weekly rewards.
type CouponHandler struct {
	ledger  *application.CouponLedger
	coupons *application.CouponService
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(ledger *application.CouponLedger, coupons *application.CouponService) *CouponHandler {
	return &CouponHandler{ledger: ledger, coupons: coupons}
}

// RegisterRoutes registers all coupon routes.
func (h *CouponHandler) RegisterRoutes(r *gin.RouterGroup, authz *access.Authorizer, rec *access.Recorder) {
	anyUser := authz.Gate(access.AnyUser)
	staff := authz.Gate(access.ModeratorOrAdmin)
	admin := authz.Gate(access.AdminOnly)

	coupons := r.Group("/coupons")
	{
		coupons.GET("", anyUser, h.Available)
		coupons.POST("/weekly", anyUser, h.WeeklyReward)
		coupons.POST("/validate", anyUser, h.Validate)
		coupons.POST("/use", anyUser, h.Use)
		coupons.GET("/my-usage", anyUser, h.MyUsage)

		coupons.GET("/admin", staff, h.List)
		coupons.GET("/admin/stats", staff, h.Stats)
		coupons.GET("/admin/:id/usage", staff, h.Usage)
		coupons.POST("/admin", admin, access.Audited(rec, "create_coupon", "coupon"), h.Create)
		coupons.PUT("/admin/:id", admin, access.Audited(rec, "update_coupon", "coupon"), h.Update)
		coupons.DELETE("/admin/:id", admin, access.Audited(rec, "delete_coupon", "coupon"), h.Delete)
	}
}

// Available handles GET /api/v1/coupons.
func (h *CouponHandler) Available(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	coupons, err := h.coupons.Available(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, coupons)
}

// WeeklyReward handles POST /api/v1/coupons/weekly. It answers 201 when a new
// coupon was issued and 200 with the existing one otherwise.
func (h *CouponHandler) WeeklyReward(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	coupon, created, err := h.ledger.IssueWeeklyReward(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if created {
		response.Created(c, coupon)
		return
	}
	response.SuccessWithMessage(c, "weekly reward already issued", coupon)
}

// Validate handles POST /api/v1/coupons/validate.
func (h *CouponHandler) Validate(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledger.Validate(c.Request.Context(), req.Code, p.AccountID, req.OrderAmount)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Valid {
		response.Error(c, result.Err())
		return
	}

	response.Success(c, result)
}

// Use handles POST /api/v1/coupons/use.
func (h *CouponHandler) Use(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledger.Use(c.Request.Context(), req.Code, p.AccountID, req.OrderAmount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "coupon applied", result)
}

// MyUsage handles GET /api/v1/coupons/my-usage.
func (h *CouponHandler) MyUsage(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	usage, err := h.coupons.MyUsage(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, usage)
}

// List handles GET /api/v1/coupons/admin.
func (h *CouponHandler) List(c *gin.Context) {
	p := pagination.FromQuery(c)

	coupons, total, err := h.coupons.List(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, coupons, total, p.Page, p.Limit)
}

// Stats handles GET /api/v1/coupons/admin/stats.
func (h *CouponHandler) Stats(c *gin.Context) {
	stats, err := h.coupons.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// Usage handles GET /api/v1/coupons/admin/:id/usage.
func (h *CouponHandler) Usage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p := pagination.FromQuery(c)

	usage, total, err := h.coupons.Usage(c.Request.Context(), id, p.Page, p.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, usage, total, p.Page, p.Limit)
}

// Create handles POST /api/v1/coupons/admin.
func (h *CouponHandler) Create(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	coupon, err := h.coupons.Create(c.Request.Context(), p.AccountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.SetAuditResource(c, coupon.ID.String())
	access.AddAuditDetails(c, map[string]any{"code": coupon.Code})
	response.Created(c, coupon)
}

// Update handles PUT /api/v1/coupons/admin/:id.
func (h *CouponHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req application.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	coupon, err := h.coupons.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, coupon)
}

// Delete handles DELETE /api/v1/coupons/admin/:id.
func (h *CouponHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.coupons.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "coupon deleted", nil)
}

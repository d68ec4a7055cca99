package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	auditDomain "github.com/marrakech-reviews/service-community/internal/domain/audit"
	"github.com/marrakech-reviews/service-community/pkg/pagination"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

const defaultRecentActivity = 20

// AdminHandler handles admin dashboard, audit and maintenance requests.
type AdminHandler struct {
	admin    *application.AdminService
	audit    *application.AuditService
	accounts *application.AccountService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *application.AdminService, audit *application.AuditService, accounts *application.AccountService) *AdminHandler {
	return &AdminHandler{admin: admin, audit: audit, accounts: accounts}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, authz *access.Authorizer, rec *access.Recorder) {
	admin := r.Group("/admin")
	admin.Use(authz.Gate(access.AdminOnly))
	{
		admin.GET("/stats", h.Dashboard)
		admin.GET("/audit-logs", h.AuditLogs)
		admin.GET("/recent-activity", h.RecentActivity)
		admin.POST("/cleanup", access.Audited(rec, "cleanup_system", "system"), h.Cleanup)
		admin.POST("/users/bulk-action", access.Audited(rec, "bulk_user_action", "user"), h.BulkAction)
	}
}

// Dashboard handles GET /api/v1/admin/stats.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// AuditLogs handles GET /api/v1/admin/audit-logs.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	p := pagination.FromQuery(c)
	filter := auditDomain.Filter{
		Action:       c.Query("action"),
		ResourceKind: c.Query("resource_type"),
	}
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid user_id")
			return
		}
		filter.ActorID = id
	}

	entries, total, err := h.audit.List(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, entries, total, p.Page, p.Limit)
}

// RecentActivity handles GET /api/v1/admin/recent-activity.
func (h *AdminHandler) RecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultRecentActivity)))
	limit = pagination.Normalize(1, limit).Limit

	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, entries)
}

// Cleanup handles POST /api/v1/admin/cleanup.
func (h *AdminHandler) Cleanup(c *gin.Context) {
	var req application.CleanupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.admin.Cleanup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"type": req.Type, "days_old": result.DaysOld})
	response.Success(c, result)
}

// BulkAction handles POST /api/v1/admin/users/bulk-action.
func (h *AdminHandler) BulkAction(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.accounts.BulkAction(c.Request.Context(), p.AccountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"action": req.Action, "affected_count": result.AffectedCount})
	response.Success(c, result)
}

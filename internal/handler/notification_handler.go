package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/pkg/pagination"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

const defaultNotificationRetentionDays = 30

// NotificationHandler handles HTTP requests for notifications.
type NotificationHandler struct {
	service *application.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// RegisterRoutes registers all notification routes.
func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup, authz *access.Authorizer, rec *access.Recorder) {
	anyUser := authz.Gate(access.AnyUser)
	admin := authz.Gate(access.AdminOnly)

	n := r.Group("/notifications")
	{
		n.GET("", anyUser, h.List)
		n.GET("/unread-count", anyUser, h.UnreadCount)
		n.PUT("/read-all", anyUser, access.Audited(rec, "mark_all_notifications_read", "notification"), h.MarkAllRead)
		n.GET("/preferences", anyUser, h.GetPreferences)
		n.PUT("/preferences", anyUser, access.Audited(rec, "update_notification_preferences", "notification"), h.UpdatePreferences)
		n.PUT("/:id/read", anyUser, access.Audited(rec, "mark_notification_read", "notification"), h.MarkRead)
		n.DELETE("/:id", anyUser, access.Audited(rec, "delete_notification", "notification"), h.Delete)

		n.POST("/admin/send", admin, access.Audited(rec, "send_notification", "notification"), h.Send)
		n.GET("/admin/stats", admin, h.Stats)
		n.POST("/admin/cleanup", admin, access.Audited(rec, "cleanup_notifications", "notification"), h.Cleanup)
	}
}

// List handles GET /api/v1/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	page := pagination.FromQuery(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))

	list, total, err := h.service.List(c.Request.Context(), p.AccountID, unreadOnly, page.Page, page.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, list, total, page.Page, page.Limit)
}

// UnreadCount handles GET /api/v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"unread_count": count})
}

// MarkRead handles PUT /api/v1/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, p.AccountID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "notification marked as read", nil)
}

// MarkAllRead handles PUT /api/v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkAllRead(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"updated": updated})
	response.Success(c, gin.H{"updated": updated})
}

// GetPreferences handles GET /api/v1/notifications/preferences.
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	prefs, err := h.service.Preferences(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, prefs)
}

// UpdatePreferences handles PUT /api/v1/notifications/preferences.
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	prefs, err := h.service.UpdatePreferences(c.Request.Context(), p.AccountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.SetAuditResource(c, p.AccountID.String())
	response.SuccessWithMessage(c, "notification preferences updated", prefs)
}

// Delete handles DELETE /api/v1/notifications/:id.
func (h *NotificationHandler) Delete(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, p.AccountID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "notification deleted", nil)
}

// Send handles POST /api/v1/notifications/admin/send.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req application.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sent, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"title": req.Title, "recipients": sent})
	response.Created(c, gin.H{"recipients": sent})
}

// Stats handles GET /api/v1/notifications/admin/stats.
func (h *NotificationHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// Cleanup handles POST /api/v1/notifications/admin/cleanup.
func (h *NotificationHandler) Cleanup(c *gin.Context) {
	var req application.NotificationCleanupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	if req.DaysOld == 0 {
		req.DaysOld = defaultNotificationRetentionDays
	}

	deleted, err := h.service.Cleanup(c.Request.Context(), req.DaysOld)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"days_old": req.DaysOld, "deleted": deleted})
	response.Success(c, gin.H{"deleted": deleted, "days_old": req.DaysOld})
}

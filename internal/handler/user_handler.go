package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/pkg/pagination"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

// UserHandler handles HTTP requests for account administration and profiles.
type UserHandler struct {
	service *application.AccountService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *application.AccountService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRoutes registers all user routes.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, authz *access.Authorizer, rec *access.Recorder) {
	anyUser := authz.Gate(access.AnyUser)
	admin := authz.Gate(access.AdminOnly)

	users := r.Group("/users")
	{
		users.GET("/profile", anyUser, h.GetProfile)
		users.PUT("/profile", anyUser, access.Audited(rec, "update_profile", "user"), h.UpdateProfile)

		users.GET("", admin, h.List)
		users.GET("/:id", admin, h.Get)
		users.PUT("/:id", admin, access.Audited(rec, "update_user", "user"), h.Update)
		users.DELETE("/:id", admin, access.Audited(rec, "delete_user", "user"), h.Delete)
		users.PUT("/:id/role", admin, access.Audited(rec, "update_user_role", "user"), h.UpdateRole)
		users.PUT("/:id/status", admin, access.Audited(rec, "update_user_status", "user"), h.UpdateStatus)
	}
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(c *gin.Context) {
	p := pagination.FromQuery(c)

	users, total, err := h.service.List(c.Request.Context(), c.Query("role"), c.Query("search"), p.Page, p.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, users, total, p.Page, p.Limit)
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Update handles PUT /api/v1/users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req application.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), p.AccountID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	details := map[string]any{}
	if req.FirstName != nil || req.LastName != nil {
		details["profile"] = true
	}
	if req.IsActive != nil {
		details["is_active"] = *req.IsActive
	}
	if req.Password != "" {
		details["password_changed"] = true
	}
	access.AddAuditDetails(c, details)
	response.SuccessWithMessage(c, "user updated", user)
}

// Delete handles DELETE /api/v1/users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), p.AccountID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "user deleted", nil)
}

// UpdateRole handles PUT /api/v1/users/:id/role.
func (h *UserHandler) UpdateRole(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req application.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.service.UpdateRole(c.Request.Context(), p.AccountID, id, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"new_role": req.Role})
	response.SuccessWithMessage(c, "user role updated", user)
}

// UpdateStatus handles PUT /api/v1/users/:id/status.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.service.UpdateStatus(c.Request.Context(), p.AccountID, id, *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"is_active": *req.IsActive})
	response.SuccessWithMessage(c, "user status updated", user)
}

// GetProfile handles GET /api/v1/users/profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	user, err := h.service.Get(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// UpdateProfile handles PUT /api/v1/users/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), p.AccountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.SetAuditResource(c, p.AccountID.String())
	access.AddAuditDetails(c, map[string]any{"first_name": req.FirstName != "", "last_name": req.LastName != ""})
	response.Success(c, user)
}

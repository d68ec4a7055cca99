package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

// AuthHandler handles HTTP requests for registration, login and tokens.
type AuthHandler struct {
	service *application.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *application.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes registers all auth routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, authz *access.Authorizer) {
	a := r.Group("/auth")
	{
		a.POST("/register", h.Register)
		a.POST("/login", h.Login)
		a.POST("/refresh", h.Refresh)
		a.POST("/logout", authz.Gate(access.AnyUser), h.Logout)
		a.GET("/me", authz.Gate(access.AnyUser), h.Me)
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req application.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req application.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req application.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	if err := h.service.Logout(c.Request.Context(), p.TokenID, p.ExpiresAt); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "logged out", nil)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	result, err := h.service.Me(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

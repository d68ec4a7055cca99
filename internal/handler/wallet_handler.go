package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/pkg/pagination"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

// WalletHandler handles HTTP requests for wallets and coins.
type WalletHandler struct {
	service *application.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(service *application.WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

// RegisterRoutes registers all wallet routes.
func (h *WalletHandler) RegisterRoutes(r *gin.RouterGroup, authz *access.Authorizer, rec *access.Recorder) {
	anyUser := authz.Gate(access.AnyUser)
	admin := authz.Gate(access.AdminOnly)

	wallet := r.Group("/wallet")
	{
		wallet.GET("", anyUser, h.GetWallet)
		wallet.GET("/balance", anyUser, h.Balance)
		wallet.GET("/transactions", anyUser, h.Transactions)
		wallet.POST("/spend", anyUser, access.Audited(rec, "spend_coins", "wallet"), h.Spend)
		wallet.POST("/reward", anyUser, h.Reward)

		wallet.POST("/add-coins", admin, access.Audited(rec, "add_coins", "wallet"), h.AddCoins)
		wallet.GET("/admin/stats", admin, h.Stats)
	}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	wallet, err := h.service.GetWallet(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, wallet)
}

// Balance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) Balance(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), p.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"balance": balance})
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) Transactions(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	page := pagination.FromQuery(c)

	txs, total, err := h.service.Transactions(c.Request.Context(), p.AccountID, c.Query("type"), page.Page, page.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, txs, total, page.Page, page.Limit)
}

// Spend handles POST /api/v1/wallet/spend.
func (h *WalletHandler) Spend(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.SpendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Spend(c.Request.Context(), p.AccountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.SetAuditResource(c, result.Transaction.ID.String())
	access.AddAuditDetails(c, map[string]any{"amount": req.Amount.String()})
	response.Success(c, result)
}

// Reward handles POST /api/v1/wallet/reward.
func (h *WalletHandler) Reward(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Reward(c.Request.Context(), p.AccountID, req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AddCoins handles POST /api/v1/wallet/add-coins.
func (h *WalletHandler) AddCoins(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.AddCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AddCoins(c.Request.Context(), p.AccountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.SetAuditResource(c, req.AccountID.String())
	access.AddAuditDetails(c, map[string]any{"amount": req.Amount.String(), "description": req.Description})
	response.Success(c, result)
}

// Stats handles GET /api/v1/wallet/admin/stats.
func (h *WalletHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

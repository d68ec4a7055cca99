package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marrakech-reviews/service-community/internal/access"
	"github.com/marrakech-reviews/service-community/internal/application"
	"github.com/marrakech-reviews/service-community/pkg/pagination"
	"github.com/marrakech-reviews/service-community/pkg/response"
)

// ReviewHandler handles HTTP requests for reviews and their moderation.
type ReviewHandler struct {
	service *application.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *application.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// RegisterRoutes registers all review routes. Listing and reading published
// reviews needs no token.
func (h *ReviewHandler) RegisterRoutes(r *gin.RouterGroup, authz *access.Authorizer, rec *access.Recorder) {
	anyUser := authz.Gate(access.AnyUser)
	staff := authz.Gate(access.ModeratorOrAdmin)

	reviews := r.Group("/reviews")
	{
		reviews.GET("", h.List)
		reviews.GET("/categories", h.Categories)
		reviews.GET("/mine", anyUser, h.Mine)
		reviews.POST("", anyUser, access.Audited(rec, "create_review", "review"), h.Create)
		reviews.GET("/:id", h.Get)
		reviews.PUT("/:id", anyUser, access.Audited(rec, "update_review", "review"), h.Update)
		reviews.DELETE("/:id", anyUser, access.Audited(rec, "delete_review", "review"), h.Delete)
		reviews.POST("/:id/helpful", anyUser, h.MarkHelpful)

		reviews.GET("/admin", staff, h.ModerationQueue)
		reviews.GET("/admin/stats", staff, h.Stats)
		reviews.PUT("/admin/:id/status", staff, access.Audited(rec, "moderate_review", "review"), h.Moderate)
	}
}

// List handles GET /api/v1/reviews.
func (h *ReviewHandler) List(c *gin.Context) {
	p := pagination.FromQuery(c)

	reviews, total, err := h.service.ListPublished(c.Request.Context(), reviewQuery(c), p.Page, p.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, reviews, total, p.Page, p.Limit)
}

// Categories handles GET /api/v1/reviews/categories.
func (h *ReviewHandler) Categories(c *gin.Context) {
	response.Success(c, h.service.Categories())
}

// Get handles GET /api/v1/reviews/:id.
func (h *ReviewHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	review, err := h.service.GetPublished(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, review)
}

// Mine handles GET /api/v1/reviews/mine.
func (h *ReviewHandler) Mine(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	page := pagination.FromQuery(c)

	reviews, total, err := h.service.MyReviews(c.Request.Context(), p.AccountID, page.Page, page.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, reviews, total, page.Page, page.Limit)
}

// Create handles POST /api/v1/reviews.
func (h *ReviewHandler) Create(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}

	var req application.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.service.Create(c.Request.Context(), p.AccountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.SetAuditResource(c, review.ID.String())
	access.AddAuditDetails(c, map[string]any{"category": review.Category, "rating": review.Rating})
	response.Created(c, review)
}

// Update handles PUT /api/v1/reviews/:id.
func (h *ReviewHandler) Update(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req application.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	review, err := h.service.Update(c.Request.Context(), p.AccountID, p.Role, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"status": review.Status})
	response.SuccessWithMessage(c, "review updated", review)
}

// Delete handles DELETE /api/v1/reviews/:id.
func (h *ReviewHandler) Delete(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), p.AccountID, p.Role, id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "review deleted", nil)
}

// MarkHelpful handles POST /api/v1/reviews/:id/helpful.
func (h *ReviewHandler) MarkHelpful(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.MarkHelpful(c.Request.Context(), p.AccountID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "review marked as helpful", nil)
}

// ModerationQueue handles GET /api/v1/reviews/admin.
func (h *ReviewHandler) ModerationQueue(c *gin.Context) {
	p := pagination.FromQuery(c)
	q := reviewQuery(c)
	q.Status = c.Query("status")
	q.Author = c.Query("author")
	var ok bool
	if q.From, ok = queryTime(c, "date_from"); !ok {
		return
	}
	if q.To, ok = queryTime(c, "date_to"); !ok {
		return
	}

	reviews, total, err := h.service.ListForModeration(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, reviews, total, p.Page, p.Limit)
}

// Stats handles GET /api/v1/reviews/admin/stats.
func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// Moderate handles PUT /api/v1/reviews/admin/:id/status.
func (h *ReviewHandler) Moderate(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req application.ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Moderate(c.Request.Context(), p.AccountID, id, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	access.AddAuditDetails(c, map[string]any{"status": result.Review.Status, "rewarded": result.Rewarded})
	response.SuccessWithMessage(c, "review status updated", result)
}

func reviewQuery(c *gin.Context) application.ReviewQuery {
	minRating, _ := strconv.Atoi(c.DefaultQuery("min_rating", c.Query("rating")))
	return application.ReviewQuery{
		Category:  c.Query("category"),
		Location:  c.Query("location"),
		Search:    c.Query("search"),
		MinRating: minRating,
	}
}

// queryTime parses an optional RFC 3339 or YYYY-MM-DD query parameter.
func queryTime(c *gin.Context, key string) (time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	response.BadRequest(c, "invalid "+key)
	return time.Time{}, false
}

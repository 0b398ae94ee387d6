package posts

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/internal/pending"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

const maxContentLen = 2000

type Handler struct {
	Repo   *Repo
	Notify *notify.Service
}

func NewHandler(repo *Repo, svc *notify.Service) *Handler {
	return &Handler{Repo: repo, Notify: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.list)
	rg.GET("/:id", h.getByID)
	rg.POST("", requireAuth, h.create)
	rg.DELETE("/:id", requireAuth, h.delete)
}

type createReq struct {
	RestaurantID        *int64                 `json:"restaurant_id"`
	Content             string                 `json:"content"`
	Rating              *int                   `json:"rating"`
	ImageURL            string                 `json:"image_url"`
	SuggestedRestaurant *pending.SubmitRequest `json:"suggested_restaurant"`
}

func (r createReq) validate() error {
	content := strings.TrimSpace(r.Content)
	if content == "" {
		return errors.New("content is required")
	}
	if len(content) > maxContentLen {
		return errors.New("content must be at most 2000 characters")
	}
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		return errors.New("rating must be between 1 and 5")
	}
	if r.RestaurantID != nil && *r.RestaurantID <= 0 {
		return errors.New("invalid restaurant_id")
	}
	if r.SuggestedRestaurant != nil {
		if r.RestaurantID != nil {
			return errors.New("provide restaurant_id or suggested_restaurant, not both")
		}
		return r.SuggestedRestaurant.Validate()
	}
	return nil
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := auth.MustGetClaims(c).UserID

	var suggestion *models.PendingRestaurant
	if req.SuggestedRestaurant != nil {
		suggestion = req.SuggestedRestaurant.ToModel(userID, nil)
	}

	post, err := h.Repo.Create(c.Request.Context(), &models.Post{
		UserID:       userID,
		RestaurantID: req.RestaurantID,
		Content:      req.Content,
		Rating:       req.Rating,
		ImageURL:     strings.TrimSpace(req.ImageURL),
	}, suggestion)
	if errors.Is(err, ErrRestaurantNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if suggestion != nil {
		pending.AnnounceSubmission(c, h.Notify, suggestion)
		c.JSON(http.StatusCreated, gin.H{"post": post, "pending_restaurant": suggestion})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (h *Handler) list(c *gin.Context) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := ListQuery{UserID: strings.TrimSpace(c.Query("user_id")), Limit: limit, Offset: offset}
	if raw := c.Query("restaurant_id"); raw != "" {
		if q.RestaurantID, err = utils.ParseID(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid restaurant_id"})
			return
		}
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := auth.MustGetClaims(c).UserID

	ok, err := h.Repo.Delete(c.Request.Context(), id, userID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		author, err := h.Repo.AuthorID(c.Request.Context(), id)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		if author == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "only the author can delete this post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

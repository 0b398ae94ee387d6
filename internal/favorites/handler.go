package favorites

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/pkg/utils"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.Use(requireAuth)
	rg.GET("", h.list)
	rg.GET("/:restaurantId", h.check)
	rg.POST("/:restaurantId", h.add)
	rg.DELETE("/:restaurantId", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, total, err := h.Repo.List(c.Request.Context(), auth.MustGetClaims(c).UserID, limit, offset)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) check(c *gin.Context) {
	restaurantID, err := utils.ParseID(c.Param("restaurantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ok, err := h.Repo.Exists(c.Request.Context(), auth.MustGetClaims(c).UserID, restaurantID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": ok})
}

func (h *Handler) add(c *gin.Context) {
	restaurantID, err := utils.ParseID(c.Param("restaurantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.Repo.Add(c.Request.Context(), auth.MustGetClaims(c).UserID, restaurantID)
	switch {
	case errors.Is(err, ErrAlreadyFavorited):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRestaurantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		apierr.Respond(c, err)
	default:
		c.JSON(http.StatusCreated, gin.H{"favorited": true, "restaurant_id": restaurantID})
	}
}

func (h *Handler) remove(c *gin.Context) {
	restaurantID, err := utils.ParseID(c.Param("restaurantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.Repo.Remove(c.Request.Context(), auth.MustGetClaims(c).UserID, restaurantID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

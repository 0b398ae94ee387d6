package search

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/auth"
	"beastfood/internal/restaurants"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

type Handler struct {
	Aggregator *Aggregator
	Ingestor   *Ingestor
}

func NewHandler(agg *Aggregator, ing *Ingestor) *Handler {
	return &Handler{Aggregator: agg, Ingestor: ing}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/search", h.search)
	rg.GET("/sources", h.sources)
	rg.POST("/create-restaurant", requireAuth, h.createRestaurant)
}

// ParseFilters reads and validates the optional search filters.
func ParseFilters(typ, minPrice, maxPrice, minRating string) (models.SearchFilters, string) {
	f := models.SearchFilters{Type: strings.ToLower(strings.TrimSpace(typ))}

	var err error
	if f.MinPrice, err = utils.ParseOptionalInt(minPrice); err != nil || f.MinPrice < 0 || f.MinPrice > 5 {
		return f, "min_price must be between 1 and 5"
	}
	if f.MaxPrice, err = utils.ParseOptionalInt(maxPrice); err != nil || f.MaxPrice < 0 || f.MaxPrice > 5 {
		return f, "max_price must be between 1 and 5"
	}
	if f.MinPrice > 0 && f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return f, "min_price cannot exceed max_price"
	}
	if f.MinRating, err = utils.ParseOptionalFloat(minRating); err != nil || f.MinRating < 0 || f.MinRating > 5 {
		return f, "min_rating must be between 0 and 5"
	}
	return f, ""
}

func (h *Handler) search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if len(term) > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q must be at most 100 characters"})
		return
	}
	f, msg := ParseFilters(c.Query("type"), c.Query("min_price"), c.Query("max_price"), c.Query("min_rating"))
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, h.Aggregator.Search(c.Request.Context(), term, f))
}

func (h *Handler) sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.Aggregator.Sources()})
}

func (h *Handler) createRestaurant(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rest, err := h.Ingestor.Ingest(c.Request.Context(), req, auth.MustGetClaims(c).UserID)
	if err != nil {
		restaurants.RespondDuplicate(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"restaurant": rest})
}

package places

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/search"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

const defaultNearbyKm = 5.0

type Handler struct {
	Google *search.GooglePlaces
	Mirror *Mirror
}

func NewHandler(g *search.GooglePlaces, mirror *Mirror) *Handler {
	return &Handler{Google: g, Mirror: mirror}
}

// RegisterGoogleRoutes mounts /api/google-places.
func (h *Handler) RegisterGoogleRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.googleSearch)
	rg.GET("/details/:placeId", h.googleDetails)
	rg.GET("/cached", h.googleCached)
}

// RegisterOSMRoutes mounts /api/osm-estabelecimentos.
func (h *Handler) RegisterOSMRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.osmList)
	rg.GET("/nearby", h.osmNearby)
}

func (h *Handler) googleSearch(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	if !h.Google.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google places is not configured"})
		return
	}

	results, err := h.Google.Search(c.Request.Context(), q, models.SearchFilters{Type: strings.TrimSpace(c.Query("type"))})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "google places request failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "results": results, "total": len(results)})
}

func (h *Handler) googleDetails(c *gin.Context) {
	if !h.Google.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google places is not configured"})
		return
	}
	placeID := strings.TrimSpace(c.Param("placeId"))

	place, err := h.Google.Details(c.Request.Context(), placeID)
	if errors.Is(err, search.ErrSourceDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google places is not configured"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "google places request failed"})
		return
	}
	if place == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "place not found"})
		return
	}
	c.JSON(http.StatusOK, place)
}

func (h *Handler) googleCached(c *gin.Context) {
	limit, _, err := utils.ParsePagination(c.Query("limit"), "", 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := h.Mirror.CachedGoogle(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) osmList(c *gin.Context) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, total, err := h.Mirror.ListOSM(c.Request.Context(), OSMQuery{
		Q:      c.Query("q"),
		Type:   c.Query("type"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "items": items})
}

func (h *Handler) osmNearby(c *gin.Context) {
	lat, lng, err := utils.ParseCoords(c.Query("lat"), c.Query("lng"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	radius, err := utils.ParseOptionalFloat(c.Query("radius_km"))
	if err != nil || radius < 0 || radius > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "radius_km must be between 0 and 50"})
		return
	}
	if radius == 0 {
		radius = defaultNearbyKm
	}
	limit, _, err := utils.ParsePagination(c.Query("limit"), "", 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.Mirror.NearbyOSM(c.Request.Context(), lat, lng, radius, limit)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

package owner

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/restaurants"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

const maxListItems = 30

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.Use(requireAuth, auth.RequireRole(auth.RoleOwner, auth.RoleAdmin))
	rg.GET("/restaurants", h.mine)
	rg.PUT("/restaurants/:id", h.update)
	rg.PUT("/restaurants/:id/hours", h.hours)
	rg.PUT("/restaurants/:id/services", h.services)
	rg.PUT("/restaurants/:id/highlights", h.highlights)
}

func (h *Handler) mine(c *gin.Context) {
	items, err := h.Service.Mine(c.Request.Context(), auth.MustGetClaims(c).UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) update(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req restaurants.UpdateFields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := restaurants.ValidateUpdate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := auth.MustGetClaims(c)
	rest, err := h.Service.Update(c.Request.Context(), id, claims.UserID, claims.IsAdmin(), req)
	if err != nil {
		restaurants.RespondDuplicate(c, err)
		return
	}
	c.JSON(http.StatusOK, rest)
}

type hoursReq struct {
	Hours []models.OperatingHour `json:"hours"`
}

func (h *Handler) hours(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req hoursReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	claims := auth.MustGetClaims(c)
	if err := h.Service.ReplaceHours(c.Request.Context(), id, claims.UserID, claims.IsAdmin(), req.Hours); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operating_hours": req.Hours})
}

type listReq struct {
	Items []string `json:"items"`
}

func (h *Handler) services(c *gin.Context) {
	h.replaceList(c, "services", h.Service.ReplaceServices)
}

func (h *Handler) highlights(c *gin.Context) {
	h.replaceList(c, "highlights", h.Service.ReplaceHighlights)
}

type replaceFn = func(ctx context.Context, id int64, userID string, admin bool, values []string) error

func (h *Handler) replaceList(c *gin.Context, key string, fn replaceFn) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req listReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.Items) > maxListItems {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many items"})
		return
	}

	claims := auth.MustGetClaims(c)
	if err := fn(c.Request.Context(), id, claims.UserID, claims.IsAdmin(), req.Items); err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: req.Items})
}

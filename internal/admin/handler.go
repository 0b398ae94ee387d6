package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/internal/restaurants"
	"beastfood/pkg/utils"
)

type Handler struct {
	Repo        *Repo
	Restaurants *restaurants.Repo
	Registry    *notify.Registry
}

func NewHandler(repo *Repo, rest *restaurants.Repo, registry *notify.Registry) *Handler {
	return &Handler{Repo: repo, Restaurants: rest, Registry: registry}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.Use(requireAuth, auth.RequireRole(auth.RoleAdmin))
	rg.GET("/stats", h.stats)
	rg.PUT("/users/:id/role", h.setRole)
	rg.PUT("/restaurants/:id/owner", h.setOwner)
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Repo.Stats(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	body := gin.H{"stats": st}
	if h.Registry != nil {
		body["live"] = h.Registry.Stats()
	}
	c.JSON(http.StatusOK, body)
}

type roleReq struct {
	Role string `json:"role"`
}

func (h *Handler) setRole(c *gin.Context) {
	var req roleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case auth.RoleUser, auth.RoleOwner, auth.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be one of: user, owner, admin"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	ok, err := h.Repo.SetRole(c.Request.Context(), id, role)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
}

type ownerReq struct {
	OwnerID string `json:"owner_id"`
}

// setOwner assigns (or with an empty owner_id, clears) a restaurant's owner.
func (h *Handler) setOwner(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req ownerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ownerID := strings.TrimSpace(req.OwnerID)

	if ownerID != "" {
		exists, err := h.Repo.UserExists(c.Request.Context(), ownerID)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
	}

	ok, err := h.Restaurants.SetOwner(c.Request.Context(), id, ownerID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "restaurant not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "owner_id": ownerID})
}

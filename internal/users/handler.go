package users

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/posts"
	"beastfood/pkg/utils"
)

const (
	maxNameLen = 100
	maxBioLen  = 500
)

type Handler struct {
	Repo  *Repo
	Posts *posts.Repo
}

func NewHandler(repo *Repo, postsRepo *posts.Repo) *Handler {
	return &Handler{Repo: repo, Posts: postsRepo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.PUT("/me", requireAuth, h.updateMe)
	rg.GET("/:id", h.profile)
	rg.GET("/:id/posts", h.posts)
}

func (h *Handler) profile(c *gin.Context) {
	p, err := h.Repo.Profile(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) updateMe(c *gin.Context) {
	var req ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Name != nil && len(strings.TrimSpace(*req.Name)) > maxNameLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be at most 100 characters"})
		return
	}
	if req.Bio != nil && len(strings.TrimSpace(*req.Bio)) > maxBioLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bio must be at most 500 characters"})
		return
	}

	id := auth.MustGetClaims(c).UserID
	if err := h.Repo.Update(c.Request.Context(), id, req); err != nil {
		apierr.Respond(c, err)
		return
	}
	p, err := h.Repo.Profile(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) posts(c *gin.Context) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := h.Posts.List(c.Request.Context(), posts.ListQuery{
		UserID: strings.TrimSpace(c.Param("id")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
}

package follows

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

type Handler struct {
	Repo   *Repo
	Notify *notify.Service
}

func NewHandler(repo *Repo, svc *notify.Service) *Handler {
	return &Handler{Repo: repo, Notify: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/:userId/followers", h.followers)
	rg.GET("/:userId/following", h.following)
	rg.POST("/:userId", requireAuth, h.follow)
	rg.DELETE("/:userId", requireAuth, h.unfollow)
}

func (h *Handler) follow(c *gin.Context) {
	target := strings.TrimSpace(c.Param("userId"))
	claims := auth.MustGetClaims(c)
	if target == claims.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you cannot follow yourself"})
		return
	}

	err := h.Repo.Follow(c.Request.Context(), claims.UserID, target)
	switch {
	case errors.Is(err, ErrAlreadyFollowing):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		apierr.Respond(c, err)
		return
	}

	h.Notify.Notify(c.Request.Context(), notify.Input{
		UserID:     target,
		ActorID:    claims.UserID,
		Type:       models.NotifyFollow,
		Message:    fmt.Sprintf("%s começou a seguir você", claims.Username),
		EntityType: "user",
	})
	c.JSON(http.StatusCreated, gin.H{"following": true})
}

func (h *Handler) unfollow(c *gin.Context) {
	ok, err := h.Repo.Unfollow(c.Request.Context(), auth.MustGetClaims(c).UserID, strings.TrimSpace(c.Param("userId")))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not following this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": false})
}

func (h *Handler) followers(c *gin.Context) {
	h.listWith(c, h.Repo.Followers)
}

func (h *Handler) following(c *gin.Context) {
	h.listWith(c, h.Repo.Following)
}

func (h *Handler) listWith(c *gin.Context, fn func(ctx context.Context, userID string, limit, offset int) ([]models.UserSummary, error)) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := fn(c.Request.Context(), strings.TrimSpace(c.Param("userId")), limit, offset)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
}

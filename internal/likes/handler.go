package likes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/internal/posts"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

type Handler struct {
	Repo   *Repo
	Posts  *posts.Repo
	Notify *notify.Service
}

func NewHandler(repo *Repo, postsRepo *posts.Repo, svc *notify.Service) *Handler {
	return &Handler{Repo: repo, Posts: postsRepo, Notify: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.Use(requireAuth)
	rg.POST("/:postId", h.like)
	rg.DELETE("/:postId", h.unlike)
}

func (h *Handler) like(c *gin.Context) {
	postID, err := utils.ParseID(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := auth.MustGetClaims(c)

	err = h.Repo.Like(c.Request.Context(), postID, claims.UserID)
	switch {
	case errors.Is(err, ErrAlreadyLiked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		apierr.Respond(c, err)
		return
	}

	if author, err := h.Posts.AuthorID(c.Request.Context(), postID); err == nil {
		h.Notify.Notify(c.Request.Context(), notify.Input{
			UserID:     author,
			ActorID:    claims.UserID,
			Type:       models.NotifyLike,
			Message:    fmt.Sprintf("%s curtiu seu post", claims.Username),
			EntityType: "post",
			EntityID:   &postID,
		})
	}

	count, err := h.Repo.Count(c.Request.Context(), postID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"liked": true, "like_count": count})
}

func (h *Handler) unlike(c *gin.Context) {
	postID, err := utils.ParseID(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.Repo.Unlike(c.Request.Context(), postID, auth.MustGetClaims(c).UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "like not found"})
		return
	}

	count, err := h.Repo.Count(c.Request.Context(), postID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": false, "like_count": count})
}

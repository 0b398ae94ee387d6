package comments

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/internal/posts"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

const maxCommentLen = 1000

type Handler struct {
	Repo   *Repo
	Posts  *posts.Repo
	Notify *notify.Service
}

func NewHandler(repo *Repo, postsRepo *posts.Repo, svc *notify.Service) *Handler {
	return &Handler{Repo: repo, Posts: postsRepo, Notify: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/post/:postId", h.listByPost)
	rg.POST("", requireAuth, h.create)
	rg.DELETE("/:id", requireAuth, h.delete)
}

type createReq struct {
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if req.PostID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post_id required"})
		return
	}
	if content == "" || len(content) > maxCommentLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content must be 1-1000 characters"})
		return
	}

	claims := auth.MustGetClaims(c)
	comment, err := h.Repo.Create(c.Request.Context(), req.PostID, claims.UserID, content)
	if errors.Is(err, ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	if author, err := h.Posts.AuthorID(c.Request.Context(), req.PostID); err == nil {
		postID := req.PostID
		h.Notify.Notify(c.Request.Context(), notify.Input{
			UserID:     author,
			ActorID:    claims.UserID,
			Type:       models.NotifyComment,
			Message:    fmt.Sprintf("%s comentou no seu post", claims.Username),
			EntityType: "post",
			EntityID:   &postID,
		})
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) listByPost(c *gin.Context) {
	postID, err := utils.ParseID(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := h.Repo.ListByPost(c.Request.Context(), postID, limit, offset)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": limit, "offset": offset, "items": items})
}

func (h *Handler) delete(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := auth.MustGetClaims(c)

	ok, err := h.Repo.Delete(c.Request.Context(), id, claims.UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if ok {
		c.JSON(http.StatusOK, gin.H{"message": "deleted"})
		return
	}

	existing, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "only the author can delete this comment"})
}

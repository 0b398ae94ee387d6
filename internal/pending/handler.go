package pending

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/internal/notify"
	"beastfood/internal/restaurants"
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
	admin := auth.RequireRole(auth.RoleAdmin)

	rg.POST("", requireAuth, h.submit)
	rg.GET("", requireAuth, admin, h.list)
	rg.GET("/:id", requireAuth, admin, h.get)
	rg.POST("/:id/approve", requireAuth, admin, h.approve)
	rg.POST("/:id/reject", requireAuth, admin, h.reject)
}

// SubmitRequest is the suggestion payload, also embedded in post creation.
type SubmitRequest struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	PriceLevel  int      `json:"price_level"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (s SubmitRequest) Validate() error {
	return restaurants.Validate(s.Name, s.Address, s.PriceLevel, s.Latitude, s.Longitude)
}

// ToModel builds the pending row; postID may be nil.
func (s SubmitRequest) ToModel(userID string, postID *int64) *models.PendingRestaurant {
	return &models.PendingRestaurant{
		Name:        strings.TrimSpace(s.Name),
		Address:     strings.TrimSpace(s.Address),
		City:        s.City,
		State:       s.State,
		Category:    strings.ToLower(strings.TrimSpace(s.Category)),
		Description: s.Description,
		PriceLevel:  s.PriceLevel,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		SubmittedBy: userID,
		PostID:      postID,
	}
}

// AnnounceSubmission tells every admin about a new suggestion.
func AnnounceSubmission(c *gin.Context, svc *notify.Service, p *models.PendingRestaurant) {
	id := p.ID
	svc.NotifyAdmins(c.Request.Context(), notify.Input{
		ActorID:    p.SubmittedBy,
		Type:       models.NotifyNewSuggestion,
		Message:    fmt.Sprintf("Nova sugestão de restaurante: %s", p.Name),
		EntityType: "pending_restaurant",
		EntityID:   &id,
	})
}

func (h *Handler) submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := req.ToModel(auth.MustGetClaims(c).UserID, nil)
	if err := h.Repo.Insert(c.Request.Context(), h.Repo.DB, p); err != nil {
		apierr.Respond(c, err)
		return
	}
	AnnounceSubmission(c, h.Notify, p)
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := strings.TrimSpace(c.DefaultQuery("status", models.PendingStatusPending))
	switch status {
	case models.PendingStatusPending, models.PendingStatusApproved, models.PendingStatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: pending, approved, rejected"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) get(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if p == nil {
		apierr.Respond(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) approve(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	adminID := auth.MustGetClaims(c).UserID

	p, rest, err := h.Repo.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		restaurants.RespondDuplicate(c, err)
		return
	}

	restID := rest.ID
	h.Notify.Notify(c.Request.Context(), notify.Input{
		UserID:     p.SubmittedBy,
		ActorID:    adminID,
		Type:       models.NotifyRestaurantApproved,
		Message:    fmt.Sprintf("Sua sugestão %q foi aprovada!", p.Name),
		EntityType: "restaurant",
		EntityID:   &restID,
	})
	c.JSON(http.StatusOK, gin.H{"pending": p, "restaurant": rest})
}

type rejectReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req rejectReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	adminID := auth.MustGetClaims(c).UserID

	p, err := h.Repo.Reject(c.Request.Context(), id, adminID, req.Reason)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	msg := fmt.Sprintf("Sua sugestão %q foi recusada.", p.Name)
	if p.RejectionReason != "" {
		msg += " Motivo: " + p.RejectionReason
	}
	pid := p.ID
	h.Notify.Notify(c.Request.Context(), notify.Input{
		UserID:     p.SubmittedBy,
		ActorID:    adminID,
		Type:       models.NotifyRestaurantRejected,
		Message:    msg,
		EntityType: "pending_restaurant",
		EntityID:   &pid,
	})
	c.JSON(http.StatusOK, p)
}

package restaurants

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"beastfood/internal/apierr"
	"beastfood/internal/auth"
	"beastfood/pkg/models"
	"beastfood/pkg/utils"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	admin := auth.RequireRole(auth.RoleAdmin)

	rg.GET("", h.list)          // GET /restaurants
	rg.GET("/nearby", h.nearby) // GET /restaurants/nearby?lat=&lng=&radius_km=
	rg.GET("/:id", h.getByID)   // GET /restaurants/:id
	rg.POST("", requireAuth, h.create)
	rg.POST("/:id/photos", requireAuth, h.addPhoto)
	rg.PUT("/:id", requireAuth, admin, h.update)
	rg.DELETE("/:id", requireAuth, admin, h.delete)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset, err := utils.ParsePagination(c.Query("limit"), c.Query("offset"), 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := ListQuery{
		Q:        c.Query("q"),
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	}
	minPrice, err1 := utils.ParseOptionalInt(c.Query("min_price"))
	maxPrice, err2 := utils.ParseOptionalInt(c.Query("max_price"))
	minRating, err3 := utils.ParseOptionalFloat(c.Query("min_rating"))
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price or rating filter"})
		return
	}
	q.MinPrice, q.MaxPrice, q.MinRating = minPrice, maxPrice, minRating

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) nearby(c *gin.Context) {
	lat, lng, err := utils.ParseCoords(c.Query("lat"), c.Query("lng"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	radius, err := utils.ParseOptionalFloat(c.Query("radius_km"))
	if err != nil || radius < 0 || radius > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "radius_km must be between 0 and 100"})
		return
	}
	if radius == 0 {
		radius = 5
	}
	limit, _, err := utils.ParsePagination(c.Query("limit"), "", 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.Repo.Nearby(c.Request.Context(), lat, lng, radius, limit)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "radius_km": radius})
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.Repo.GetDetail(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

type createReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Category    string   `json:"category"`
	PriceLevel  int      `json:"price_level"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Phone       string   `json:"phone"`
	Website     string   `json:"website"`
	ImageURL    string   `json:"image_url"`
}

// Validate checks the fields shared by every restaurant write path.
func Validate(name, address string, price int, lat, lng *float64) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(address) == "" {
		return errors.New("name and address are required")
	}
	if price != 0 && (price < 1 || price > 5) {
		return errors.New("price_level must be between 1 and 5")
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return errors.New("latitude must be between -90 and 90")
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := Validate(req.Name, req.Address, req.PriceLevel, req.Latitude, req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rest := &models.Restaurant{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		State:       req.State,
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		PriceLevel:  req.PriceLevel,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Phone:       req.Phone,
		Website:     req.Website,
		ImageURL:    req.ImageURL,
		Source:      "user",
		Status:      models.RestaurantActive,
		CreatedBy:   auth.MustGetClaims(c).UserID,
	}

	if err := h.Repo.CreateUnique(c.Request.Context(), rest); err != nil {
		RespondDuplicate(c, err)
		return
	}
	c.JSON(http.StatusCreated, rest)
}

// RespondDuplicate writes 409 with the conflicting row for duplicates and
// falls back to apierr for anything else.
func RespondDuplicate(c *gin.Context, err error) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		body := gin.H{"error": ErrDuplicate.Error()}
		if dup.Existing != nil {
			body["restaurant"] = dup.Existing
		}
		c.JSON(http.StatusConflict, body)
		return
	}
	apierr.Respond(c, err)
}

func (h *Handler) update(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req UpdateFields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := ValidateUpdate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.Repo.Update(c.Request.Context(), id, req)
	if err != nil {
		RespondDuplicate(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	rest, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, rest)
}

func ValidateUpdate(u UpdateFields) error {
	name, address, price := "x", "x", 0
	if u.Name != nil {
		name = *u.Name
	}
	if u.Address != nil {
		address = *u.Address
	}
	if u.PriceLevel != nil {
		price = *u.PriceLevel
		if price == 0 {
			return errors.New("price_level must be between 1 and 5")
		}
	}
	return Validate(name, address, price, u.Latitude, u.Longitude)
}

func (h *Handler) delete(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ok, err := h.Repo.SetStatus(c.Request.Context(), id, models.RestaurantInactive)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type photoReq struct {
	URL string `json:"url"`
}

func (h *Handler) addPhoto(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req photoReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	rest, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if rest == nil || rest.Status != models.RestaurantActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	p, err := h.Repo.AddPhoto(c.Request.Context(), id, strings.TrimSpace(req.URL), auth.MustGetClaims(c).UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

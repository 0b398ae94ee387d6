package auth

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"beastfood/internal/apierr"
	"beastfood/pkg/database"
)

const RefreshCookie = "refresh_token"

type GoogleProfiler interface {
	Profile(ctx context.Context, accessToken string) (*GoogleProfile, error)
}

type Handler struct {
	Repo         *Repo
	Tokens       TokenService
	Google       GoogleProfiler
	CookieSecure bool
}

func NewHandler(repo *Repo, tokens TokenService, google GoogleProfiler, cookieSecure bool) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Google: google, CookieSecure: cookieSecure}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/google", h.google)
	rg.POST("/refresh", h.refresh)

	authed := rg.Group("", AuthMiddleware(h.Tokens, h.Repo))
	authed.GET("/me", h.me)
	authed.POST("/change-password", h.changePassword)
	authed.POST("/logout", h.logout)
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if len(req.Username) < 3 || len(req.Username) > 30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 3-30 chars"})
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Email) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be 8-72 chars"})
		return
	}

	ctx := c.Request.Context()
	if u, err := h.Repo.GetByEmail(ctx, req.Email); err != nil {
		apierr.Respond(c, err)
		return
	} else if u != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}
	if u, err := h.Repo.GetByUsername(ctx, req.Username); err != nil {
		apierr.Respond(c, err)
		return
	} else if u != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Role:         RoleUser,
	}

	if err := h.Repo.CreateUser(ctx, u); err != nil {
		// concurrent registrations race past the checks above
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
			return
		}
		apierr.Respond(c, err)
		return
	}

	h.issueSession(c, http.StatusCreated, &u)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil || u == nil || u.PasswordHash == "" {
		// don't reveal which part failed
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.issueSession(c, http.StatusOK, u)
}

type googleReq struct {
	AccessToken string `json:"access_token"`
}

func (h *Handler) google(c *gin.Context) {
	var req googleReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.AccessToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_token required"})
		return
	}
	if h.Google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google sign-in not configured"})
		return
	}

	ctx := c.Request.Context()
	profile, err := h.Google.Profile(ctx, req.AccessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid google token"})
			return
		}
		apierr.Respond(c, err)
		return
	}

	u, err := h.findOrCreateGoogleUser(ctx, profile)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	h.issueSession(c, http.StatusOK, u)
}

func (h *Handler) findOrCreateGoogleUser(ctx context.Context, p *GoogleProfile) (*User, error) {
	if u, err := h.Repo.GetByGoogleID(ctx, p.Sub); err != nil || u != nil {
		return u, err
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	existing, err := h.Repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := h.Repo.LinkGoogle(ctx, existing.ID, p.Sub, p.Picture); err != nil {
			return nil, err
		}
		existing.GoogleID = p.Sub
		return existing, nil
	}

	u := User{
		ID:        uuid.NewString(),
		Username:  usernameFromEmail(email),
		Email:     email,
		Name:      p.Name,
		AvatarURL: p.Picture,
		GoogleID:  p.Sub,
		Role:      RoleUser,
	}
	if err := h.Repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

var nonUsername = regexp.MustCompile(`[^a-z0-9_]+`)

// usernameFromEmail derives a unique-enough handle: local part plus a short suffix.
func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	local = nonUsername.ReplaceAllString(strings.ToLower(local), "")
	if len(local) > 20 {
		local = local[:20]
	}
	if local == "" {
		local = "user"
	}
	return local + "_" + uuid.NewString()[:6]
}

func (h *Handler) refresh(c *gin.Context) {
	raw, err := c.Cookie(RefreshCookie)
	if err != nil || raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}

	claims, err := h.Tokens.ParseRefresh(raw)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if u == nil || u.TokenVersion != claims.TokenVersion {
		h.clearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	h.issueSession(c, http.StatusOK, u)
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userJSON(u)})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old and new password required"})
		return
	}
	if len(req.NewPassword) < 8 || len(req.NewPassword) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be 8-72 chars"})
		return
	}

	claims := MustGetClaims(c)
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}

	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash)); err != nil {
		apierr.Respond(c, err)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		apierr.Respond(c, err)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) issueSession(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	refresh, refreshExp, err := h.Tokens.SignRefresh(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookie, refresh, int(time.Until(refreshExp).Seconds()), "/api/auth", "", h.CookieSecure, true)

	c.JSON(status, gin.H{
		"user":       userJSON(u),
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookie, "", -1, "/api/auth", "", h.CookieSecure, true)
}

func userJSON(u *User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"name":       u.Name,
		"avatar_url": u.AvatarURL,
		"role":       u.Role,
	}
}

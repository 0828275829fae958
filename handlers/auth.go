package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projecto/projecto/internal/config"
	"github.com/projecto/projecto/internal/tokens"
	"github.com/projecto/projecto/internal/users"
	"github.com/projecto/projecto/pkg/logger"
	"github.com/projecto/projecto/pkg/middleware"
)

// AuthHandler implements email login with registration on demand.
type AuthHandler struct {
	cfg      *config.Config
	usersSvc *users.Service
}

func NewAuthHandler(cfg *config.Config, u *users.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u}
}

// Register routes under the API group. authed routes additionally require a
// verified bearer token.
func (h *AuthHandler) Register(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	rg.POST("/auth/login", h.Login)
	rg.GET("/me", authed, h.Me)
	rg.POST("/profile/changename", authed, h.ChangeName)
}

// Login resolves an email to its user, creating the account on first sight,
// and returns a signed access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.usersSvc.RegisterOrLogin(c.Request.Context(), req.Email)
	if err != nil {
		abortErr(c, err)
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		logger.Errorf("failed to create access token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": access,
		"expires_in":   int(h.cfg.JWT.AccessTokenTTL.Seconds()),
		"user":         u,
	})
}

// Me returns the authenticated user's own record, emails included.
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.usersSvc.Get(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// ChangeName updates the authenticated user's display name.
func (h *AuthHandler) ChangeName(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.usersSvc.ChangeName(c.Request.Context(), middleware.Principal(c), req.Name); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "okay"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/constants"
	"github.com/ArchaicDeity/badge-to-cert/internal/models"
	"github.com/ArchaicDeity/badge-to-cert/internal/service"
)

const authTokenTTLSeconds = 72 * 60 * 60

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.authService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return false
	}
	return true
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string, maxAge int) {
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.AuthTokenCookieName, token, maxAge, "/", "", secure, true)
}

func (h *AuthHandler) Login(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.authService.Login(req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.setAuthCookie(c, token, authTokenTTLSeconds)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setAuthCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *AuthHandler) CreateUser(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.CreateUser(req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"username": c.GetString("username"),
		"role":     c.GetString("role"),
	})
}

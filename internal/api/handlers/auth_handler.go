package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/ora-collab-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-collab-backend/internal/models"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Auth Handler
// ============================================

type AuthHandler struct {
	authService service.AuthService
}

// Register - POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bind(c, &req) {
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{
		User:  service.ToUserResponse(user),
		Token: token,
	})
}

// Login - POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		User:  service.ToUserResponse(user),
		Token: token,
	})
}

// Logout - DELETE /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

// Me - GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), ident)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.ToUserResponse(user))
}

// ChangePassword - PATCH /auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	ident, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), ident, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Password updated successfully"})
}

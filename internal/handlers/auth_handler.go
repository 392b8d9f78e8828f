package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Role     string `json:"role" binding:"omitempty,role"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, token, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, authResponse{User: u, Token: token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, authResponse{User: u, Token: token})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	u, err := h.auth.Profile(c.Request.Context(), actorFrom(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email" binding:"omitempty,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.auth.UpdateProfile(c.Request.Context(), actorFrom(c).UserID, req.Name, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), actorFrom(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Password changed")
}

package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/dto"
	"github.com/ignatzorin/taskmarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskmarket-backend/internal/http/response"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
)

// AuthService операции учётных записей, которые нужны HTTP слою.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput, meta service.SessionMeta) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput, meta service.SessionMeta) (*service.AuthResult, error)
	Refresh(ctx context.Context, oldToken string, meta service.SessionMeta) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, name string, image *string) (*models.User, error)
}

// AuthHandler предоставляет HTTP слой для регистрации и логина.
type AuthHandler struct {
	auth      AuthService
	validator *validation.Validator
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth AuthService, v *validation.Validator) *AuthHandler {
	return &AuthHandler{auth: auth, validator: v}
}

func sessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		UserAgent: c.GetHeader("User-Agent"),
		IP:        c.ClientIP(),
	}
}

// Register обрабатывает POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	}, sessionMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Login обрабатывает POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, sessionMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Refresh обрабатывает POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, sessionMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tokens)
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "сессия завершена")
}

// Me обрабатывает GET /me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// UpdateMe обрабатывает PUT /me.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateProfileRequest
	if err := common.BindJSON(c, h.validator, &req); err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, req.Name, req.Image)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

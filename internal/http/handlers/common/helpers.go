package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/service"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
)

var (
	// ErrUserNotInContext пользователь не найден в контексте запроса.
	ErrUserNotInContext = apperror.New(apperror.ErrCodeUnauthorized, "требуется авторизация")

	ErrInvalidUUID = apperror.New(apperror.ErrCodeBadRequest, "неверный формат UUID")
)

// CurrentUserID извлекает id пользователя, положенный AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotInContext
	}

	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, ErrUserNotInContext
	}

	return userID, nil
}

// CurrentActor собирает пользователя и его роль из контекста.
func CurrentActor(c *gin.Context) (service.Actor, error) {
	userID, err := CurrentUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{
		ID:   userID,
		Role: valueobject.Role(c.GetString(middleware.ContextRoleKey)),
	}, nil
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeBadRequest, "параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// BindJSON разбирает тело запроса и проверяет его валидатором.
func BindJSON(c *gin.Context, v *validation.Validator, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректное тело запроса")
	}
	return v.Validate(req)
}

// BindQuery разбирает query параметры и проверяет их валидатором.
func BindQuery(c *gin.Context, v *validation.Validator, req any) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректные параметры запроса")
	}
	return v.Validate(req)
}

// ParseIntQuery разбирает целый query параметр со значением по умолчанию.
func ParseIntQuery(c *gin.Context, key string, defaultValue int) int {
	str := c.Query(key)
	if str == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(str)
	if err != nil {
		return defaultValue
	}

	return value
}

// GetPagination возвращает limit и offset из query.
func GetPagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", defaultLimit)
	offset = ParseIntQuery(c, "offset", 0)
	return
}

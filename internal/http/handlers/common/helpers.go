package common

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/quizzo-backend/internal/http/middleware"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
	"github.com/ignatzorin/quizzo-backend/internal/service"
	"github.com/ignatzorin/quizzo-backend/internal/validation"
)

// CurrentUserID достаёт ID пользователя, положенный AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// BindJSON разбирает тело запроса. Ошибки валидатора превращаются
// в VALIDATION_ERROR со списком сообщений по полям.
func BindJSON(c *gin.Context, req interface{}) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	if msgs, ok := validation.Messages(err); ok {
		return apperror.Validation("Validation failed", msgs...)
	}
	if errors.Is(err, io.EOF) {
		return apperror.Validation("Request body is required")
	}
	return apperror.Wrap(err, apperror.ErrCodeBadRequest, "Invalid request body")
}

// SessionMeta описывает клиента для записи в refresh-сессию.
func SessionMeta(c *gin.Context) service.SessionMeta {
	return service.SessionMeta{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

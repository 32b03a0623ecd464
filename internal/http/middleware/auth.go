package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/quizzo-backend/internal/http/response"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
	"github.com/ignatzorin/quizzo-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
)

// NearExpiryHeader подсказывает клиенту, что access токен пора обновить.
const NearExpiryHeader = "X-Token-Near-Expiry"

// AuthMiddleware проверяет JWT access токен из заголовка Authorization.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if !strings.HasPrefix(auth, "Bearer ") || raw == "" {
			response.Abort(c, apperror.ErrNoToken)
			return
		}

		claims, err := tokens.Verify(raw, service.TokenTypeAccess)
		if err != nil {
			response.Abort(c, apperror.ErrAccessDenied)
			return
		}

		userID, err := claims.UserID()
		if err != nil || userID == uuid.Nil {
			response.Abort(c, apperror.ErrAccessDenied)
			return
		}

		if tokens.IsNearExpiry(raw, service.NearExpiryThreshold) {
			c.Header(NearExpiryHeader, "true")
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/quizzo-backend/internal/http/response"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
)

// ErrorHandler отдаёт клиенту последнюю ошибку, добавленную через c.Error.
// AppError отдаётся как есть, остальное маскируется под 500. С debug в ответ
// попадает текст причины.
func ErrorHandler(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := response.Body(err, debugMode)

		entry := logger.L().WithFields(logrus.Fields{
			"error":  err.Error(),
			"status": status,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"ip":     c.ClientIP(),
		})
		if status >= http.StatusInternalServerError {
			entry.Error("Request error")
		} else {
			entry.Debug("Request rejected")
		}

		c.JSON(status, body)
	}
}

// Recovery перехватывает panic в обработчиках. Стек уходит в лог, а в ответ только при debug.
func Recovery(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.L().WithFields(logrus.Fields{
					"panic":  fmt.Sprint(r),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("Panic recovered:\n" + stack)
				response.Internal(c, stack, debugMode)
			}
		}()
		c.Next()
	}
}

// NoRoute отвечает 404 на неизвестные пути.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Abort(c, apperror.New(apperror.ErrCodeRouteNotFound, fmt.Sprintf("Route %s not found", c.Request.URL.Path)))
	}
}

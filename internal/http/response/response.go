package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
)

const internalMessage = "Something went wrong!"

// ErrorBody - единый формат ошибки API.
type ErrorBody struct {
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Errors  []string `json:"errors,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Stack   string   `json:"stack,omitempty"`
}

// MessageBody - ответ, в котором есть только сообщение.
type MessageBody struct {
	Message string `json:"message"`
}

func OK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

func Created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageBody{Message: message})
}

// Body строит тело ошибки. Для неизвестных ошибок отдаётся 500 без подробностей,
// а при debug в detail попадает текст причины.
func Body(err error, debug bool) (int, ErrorBody) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body := ErrorBody{
			Message: appErr.Message,
			Code:    string(appErr.Code),
			Errors:  appErr.Details,
		}
		if debug && appErr.Cause != nil {
			body.Detail = appErr.Cause.Error()
		}
		return appErr.HTTPStatus, body
	}

	body := ErrorBody{
		Message: internalMessage,
		Code:    string(apperror.ErrCodeInternal),
	}
	if debug && err != nil {
		body.Detail = err.Error()
	}
	return http.StatusInternalServerError, body
}

// Abort прерывает цепочку обработчиков с ошибкой.
func Abort(c *gin.Context, err error) {
	status, body := Body(err, false)
	c.AbortWithStatusJSON(status, body)
}

// Internal прерывает запрос с 500 и, при debug, стеком.
func Internal(c *gin.Context, stack string, debug bool) {
	body := ErrorBody{
		Message: internalMessage,
		Code:    string(apperror.ErrCodeInternal),
	}
	if debug {
		body.Stack = stack
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse возвращает стандартизированный ответ с ошибкой
func (h *Handler) ErrorResponse(c *gin.Context, err error, statusCode int, message string, showError bool) {
	errorMessage := message
	if showError && err != nil {
		errorMessage = message + ": " + err.Error()
	}

	h.logger.Error(message, "error", err, "statusCode", statusCode)
	c.AbortWithStatusJSON(statusCode, gin.H{
		"status": "error",
		"error": gin.H{
			"code":    statusCode,
			"message": errorMessage,
		},
	})
}

// BadRequest возвращает ошибку 400
func (h *Handler) BadRequest(c *gin.Context, err error, message string) {
	if message == "" {
		message = apperrors.BadRequest
	}
	h.ErrorResponse(c, err, http.StatusBadRequest, message, true)
}

// InternalError возвращает ошибку 500
func (h *Handler) InternalError(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusInternalServerError, apperrors.InternalServerError, false)
}

// NotFound возвращает ошибку 404
func (h *Handler) NotFound(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusNotFound, apperrors.NotFound, true)
}

// HandleError подбирает HTTP-статус по классу ошибки рантайма
func (h *Handler) HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		h.BadRequest(c, err, "")
	case errors.Is(err, apperrors.ErrGroupNotFound):
		h.NotFound(c, err)
	case errors.Is(err, apperrors.ErrGroupExists):
		h.ErrorResponse(c, err, http.StatusConflict, apperrors.Conflict, true)
	case errors.Is(err, apperrors.ErrThrottleTimeout), errors.Is(err, apperrors.ErrNotStarted):
		h.ErrorResponse(c, err, http.StatusServiceUnavailable, apperrors.ServiceUnavailable, true)
	case errors.Is(err, apperrors.ErrConnectTimeout):
		h.ErrorResponse(c, err, http.StatusGatewayTimeout, apperrors.GatewayTimeout, true)
	case errors.Is(err, apperrors.ErrTransport), errors.Is(err, apperrors.ErrMaxRetry):
		h.ErrorResponse(c, err, http.StatusBadGateway, apperrors.BadGateway, true)
	default:
		h.InternalError(c, err)
	}
}

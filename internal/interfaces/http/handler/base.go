package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/dropship/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// RespondError translates domain and integration errors into the wire
// envelope. Rate limits surface as 429 with the retry hint; supplier API
// failures as upstream errors.
func (h *BaseHandler) RespondError(c *gin.Context, err error) {
	var rateLimitErr *integration.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.JSON(http.StatusTooManyRequests,
			dto.NewRateLimitedResponse(err.Error(), rateLimitErr.WaitSeconds()))
		return
	}
	if errors.Is(err, integration.ErrRateLimited) {
		c.JSON(http.StatusTooManyRequests, dto.NewRateLimitedResponse(err.Error(), 0))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	switch {
	case errors.Is(err, integration.ErrConfiguration):
		h.ErrorWithCode(c, dto.ErrCodeSupplierConfig, err.Error())
	case errors.Is(err, integration.ErrTimeout):
		h.ErrorWithCode(c, dto.ErrCodeUpstreamTimeout, err.Error())
	case errors.Is(err, integration.ErrTransport),
		errors.Is(err, integration.ErrMalformedResponse),
		errors.Is(err, integration.ErrAuthenticationFailed):
		h.ErrorWithCode(c, dto.ErrCodeUpstream, err.Error())
	case errors.Is(err, integration.ErrProductNotFound),
		errors.Is(err, integration.ErrOrderNotFound):
		h.NotFound(c, err.Error())
	default:
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, err.Error())
	}
}

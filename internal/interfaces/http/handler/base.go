// Package handler contains the gin handlers of the billing API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/domain/shared"
	"github.com/communal/backend/internal/infrastructure/logger"
	"github.com/communal/backend/internal/interfaces/http/dto"
	"github.com/communal/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindError sends the response for a failed ShouldBind call
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts an error into an HTTP response. Domain errors keep
// their message and map their code to a status; anything else is logged and
// hidden behind a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Request failed", zap.String("code", domainErr.Code), zap.Error(err))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unexpected error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// parseID reads a positive integer path parameter. It writes the 400
// response itself and reports false when the parameter is unusable.
func (h *BaseHandler) parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.BadRequest(c, "Invalid "+name+" path parameter")
		return 0, false
	}
	return id, true
}

// parseQueryID reads a required positive integer query parameter
func (h *BaseHandler) parseQueryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		h.BadRequest(c, "Query parameter "+name+" is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.BadRequest(c, "Invalid "+name+" query parameter")
		return 0, false
	}
	return id, true
}

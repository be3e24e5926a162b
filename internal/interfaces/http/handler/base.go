package handler

import (
	"errors"
	"net/http"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/farmstore/backend/internal/infrastructure/logger"
	"github.com/farmstore/backend/internal/interfaces/http/dto"
	"github.com/farmstore/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// sessionID returns the resolved session id, answering 400 when there is none
func (h *BaseHandler) sessionID(c *gin.Context) (string, bool) {
	id := middleware.GetSessionID(c)
	if id == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeSessionRequired, "X-Session-ID header is required")
		return "", false
	}
	return id, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, meta dto.Meta) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, meta))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any, meta dto.Meta) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponseWithMeta(data, meta))
}

// Accepted sends a 202 response for work kept locally to be completed later
func (h *BaseHandler) Accepted(c *gin.Context, data any, meta dto.Meta) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponseWithMeta(data, meta))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts an error to an HTTP response. Domain errors keep their
// code, message and details; anything else is a 500 without internals.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	h.HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError with a data payload, used when a failed
// operation still has something to report (such as a submission trace)
func (h *BaseHandler) HandleErrorWithData(c *gin.Context, err error, data any) {
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		resp := dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID).WithDetails(domainErr.Details)
		resp.Data = data
		c.JSON(dto.GetHTTPStatus(code), resp)
		return
	}
	if shared.IsConnectivityError(err) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeUnavailable, "Backing store is unreachable", requestID)
		resp.Data = data
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	logger.GetGinLogger(c).Error("unhandled error", zap.Error(err))
	resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An unexpected error occurred", requestID)
	resp.Data = data
	c.JSON(http.StatusInternalServerError, resp)
}

// bind decodes the JSON body into req, answering 400 on failure. An empty body
// leaves req at its zero value.
func (h *BaseHandler) bind(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/erp/personportal/internal/domain/person"
	"github.com/erp/personportal/internal/domain/shared"
	"github.com/erp/personportal/internal/infrastructure/logger"
	"github.com/erp/personportal/internal/interfaces/http/dto"
	"github.com/erp/personportal/internal/interfaces/http/middleware"
	"github.com/erp/personportal/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// errorMessagePrefix starts every user-visible failure message.
const errorMessagePrefix = "Error occured : "

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError writes the JSON error body for err. Upstream transport
// failures become 502, binding errors 400 with field details, domain errors
// use their code's status, anything else is a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, person.ErrUnavailable):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamUnavailable, "Person API is unavailable")
	case errors.Is(err, person.ErrRejected):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamRejected, "Person API rejected the request")
	case errors.As(err, &validationErrs):
		middleware.HandleValidationError(c, err)
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
	default:
		logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}

// Flash queues a message for the next rendered page.
func (h *BaseHandler) Flash(c *gin.Context, key, message string) {
	middleware.PutFlash(c, key, message)
}

// FlashError queues "Error occured : <cause>" under key.
func (h *BaseHandler) FlashError(c *gin.Context, key string, cause string) {
	middleware.PutFlash(c, key, errorMessagePrefix+cause)
}

// Render renders page, consuming every pending flash message of the session.
func (h *BaseHandler) Render(c *gin.Context, status int, page, title string, data any) {
	c.HTML(status, page, view.Page{
		Title: title,
		Flash: middleware.TakeFlash(c),
		User:  signedInUser(c),
		Data:  data,
	})
}

// signedInUser names the user behind the access token, or "" without one.
func signedInUser(c *gin.Context) string {
	claims := middleware.GetAccessClaims(c)
	if claims == nil {
		return ""
	}
	if claims.DisplayName != "" {
		return claims.DisplayName
	}
	return claims.Subject
}

// RedirectTo sends the browser to location with a 302.
func (h *BaseHandler) RedirectTo(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fail renders a store or validation error as JSON. what names the entity
// in the message ("Risk", "Audit").
func (h *Handlers) fail(c *gin.Context, what string, err error) {
	_ = c.Error(err)

	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		h.log.Warn("validation failed",
			zap.String("ip", c.ClientIP()),
			zap.String("url", c.Request.URL.RequestURI()),
			zap.Any("errors", ve.Fields),
		)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation failed", "errors": ve.Fields})

	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": what + " not found"})

	case errors.Is(err, apperr.ErrConflict):
		h.metrics.Conflict(what)
		c.JSON(http.StatusConflict, gin.H{"message": what + " identifier already exists", "code": "conflict"})

	case errors.Is(err, apperr.ErrUnavailable):
		h.log.Error("store unavailable", zap.String("url", c.Request.URL.RequestURI()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Service temporarily unavailable"})

	default:
		h.log.Error("request failed",
			zap.String("entity", what),
			zap.String("url", c.Request.URL.RequestURI()),
			zap.Error(err),
		)
		c.JSON(apperr.HTTPStatus(err), gin.H{"message": "Server error"})
	}
}

func message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// bind decodes the JSON body into v and validates it.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		var (
			tooLarge *http.MaxBytesError
			typeErr  *json.UnmarshalTypeError
			dateErr  *time.ParseError
		)
		switch {
		case errors.As(err, &tooLarge):
			return apperr.Invalid("body", "request body too large")
		case errors.As(err, &typeErr):
			return apperr.Invalid(typeErr.Field, "has the wrong type")
		case errors.As(err, &dateErr), errors.Is(err, errBadDate):
			return apperr.Invalid("body", "invalid date, expected YYYY-MM-DD or RFC 3339")
		default:
			return apperr.Invalid("body", "malformed JSON")
		}
	}
	return validation.Struct(v)
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"price-scout/errs"
)

// APIError is the JSON error body.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func validationError(message string) *APIError {
	return &APIError{Type: "VALIDATION_ERROR", Message: message}
}

func notFound(message string) *APIError {
	return &APIError{Type: "NOT_FOUND", Message: message}
}

func handleError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case "VALIDATION_ERROR":
			c.JSON(http.StatusBadRequest, apiErr)
		case "NOT_FOUND":
			c.JSON(http.StatusNotFound, apiErr)
		default:
			c.JSON(http.StatusInternalServerError, apiErr)
		}
		return
	}

	body := &APIError{Type: string(errs.KindOf(err)), Message: err.Error()}
	switch errs.KindOf(err) {
	case errs.KindExtraction, errs.KindComputation:
		c.JSON(http.StatusUnprocessableEntity, body)
	case errs.KindConfig:
		c.JSON(http.StatusBadRequest, body)
	case errs.KindFetch:
		c.JSON(http.StatusBadGateway, body)
	case errs.KindAttachmentExhausted:
		c.JSON(http.StatusConflict, body)
	default:
		c.JSON(http.StatusInternalServerError, &APIError{Type: "INTERNAL_ERROR", Message: "Internal server error", Details: err.Error()})
	}
}

func (e *APIError) Error() string {
	return e.Message
}

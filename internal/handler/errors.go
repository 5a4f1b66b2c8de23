package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/apperr"
	"backend/pkg/response"
)

// fail maps the error taxonomy onto HTTP statuses and writes the error
// envelope. Unrecognized errors become an opaque 500; their internal text
// never reaches the client.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperr.ErrIllegalState),
		errors.Is(err, apperr.ErrIllegalTransition),
		errors.Is(err, apperr.ErrInvalidState):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperr.ErrIntegrity):
		log.Printf("INTEGRITY FAILURE: %v", err)
		status, message = http.StatusInternalServerError, "document integrity check failed"
	}

	c.JSON(status, response.Error(status, message))
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AndrivA89/family-graph/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadRequest, "MALFORMED_INPUT"
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, domain.ErrCycle):
		return http.StatusUnprocessableEntity, "RELATION_CYCLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "BAD_REQUEST"})
}

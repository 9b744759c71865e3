package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/steamlens/errors"
	"github.com/kbukum/steamlens/server/middleware"
)

// DataResponse is the success envelope used by non-diagnostic routes.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err in the {"error": ...} shape. Errors that are
// not an *AppError become INTERNAL_ERROR. The request ID is echoed in the
// body, and a Retry-After header is set when the error carries a cool-down.
func RespondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	resp := appErr.ToResponse()
	resp.Error.RequestID = c.GetString(middleware.RequestIDKey)
	if secs, ok := appErr.Details["retry_in_seconds"].(float64); ok {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(secs))))
	}
	c.JSON(appErr.HTTPStatus, resp)
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

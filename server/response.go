package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/edgecam/errors"
)

// DataResponse wraps successful admin responses.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err with the status its code maps to. Errors that
// carry no code are reported as 500 INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK writes data as a 200 {"data": ...} body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

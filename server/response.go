package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/speakerid/errors"
)

// DataResponse wraps every successful API body.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as an error envelope. Errors that are not
// AppErrors become INTERNAL_ERROR with the cause hidden.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// Package httputils provides HTTP utility functions.
package httputils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
)

// WriteResponse writes the unified envelope. Errors are mapped through their
// Errno so each category keeps its own status and code; server-side failures
// are logged with their cause.
func WriteResponse(c *gin.Context, err error, data any) {
	requestID := middleware.GetRequestID(c)

	if err != nil {
		errno := errors.FromError(err)
		if errno.HTTPStatus() >= http.StatusInternalServerError {
			logger.GetLogger(c.Request.Context()).Errorw("request failed",
				"path", c.FullPath(),
				"code", errno.Code,
				"error", err.Error(),
			)
		}
		resp := response.Err(errno).WithRequestID(requestID)
		c.JSON(resp.HTTPStatus(), resp)
		return
	}

	// data can be *response.Response (e.g. from response.Page) or raw data
	resp, ok := data.(*response.Response)
	if !ok {
		resp = response.Success(data)
	}
	resp.WithRequestID(requestID)
	c.JSON(resp.HTTPStatus(), resp)
}

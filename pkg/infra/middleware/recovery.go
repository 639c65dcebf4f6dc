package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
)

// Recovery converts handler panics into an ErrPanic envelope and logs the stack.
func Recovery(enableStackTrace bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := debug.Stack()
			logger.GetLogger(c.Request.Context()).Errorw("panic recovered",
				"panic", fmt.Sprint(r),
				"path", c.Request.URL.Path,
				"stack", string(stack),
			)

			msg := fmt.Sprintf("panic: %v", r)
			if enableStackTrace {
				msg = fmt.Sprintf("%s\n%s", msg, stack)
			}
			resp := response.Err(errors.ErrPanic.WithMessage(msg)).WithRequestID(GetRequestID(c))
			c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
		}()
		c.Next()
	}
}

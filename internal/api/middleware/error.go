package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/govee-bridge-go/pkg/errors"
	"github.com/frostdev-ops/govee-bridge-go/pkg/utils"
)

// ErrorHandlingMiddleware recovers panics and renders collected errors as
// JSON envelopes with the right status code.
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.WithFields(logrus.Fields{
					"panic":      recovered,
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"request_id": GetRequestID(c),
					"stack":      string(debug.Stack()),
				}).Error("Panic recovered in HTTP handler")

				utils.SendError(c, http.StatusInternalServerError, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			logger.WithError(err).WithFields(logrus.Fields{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": GetRequestID(c),
			}).Error("Request failed")

			utils.SendError(c, errors.GetStatusCode(err), err.Error())
		}
	}
}

package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otel-lab/internal/infrastructure/tracing"
)

// InternalErrorMessage is the body text rendered for a recovered panic.
const InternalErrorMessage = "internal server error"

// Faults is the outermost middleware and the one place handler faults are
// logged. It recovers handler panics and renders errors attached with
// c.Error as 500 {"error": msg} when the handler wrote nothing.
func Faults(logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNop()
	}

	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}
			logger.For(c.Request.Context()).Error("handler panic",
				zap.String("path", c.Request.URL.Path),
				zap.Error(tracing.FaultFromPanic(r)),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": InternalErrorMessage})
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last()
		logger.For(c.Request.Context()).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err.Err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

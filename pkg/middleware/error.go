package middleware

import (
	"net/http"

	"partnerbot/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last handler error. BaseError values keep their mapped
// status and shape; anything else degrades to a plain 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		if v, ok := last.Err.(errutil.BaseError); ok {
			c.JSON(v.Code.HTTPStatus(), v.JSON())
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": errutil.StatusInternal, "message": "internal error"},
		})
	}
}

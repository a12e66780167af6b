package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/gin-gonic/gin"
)

// AdminOnly rejects callers without the admin flag set by SessionMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.IsAdmin(c.Request.Context()) {
			c.JSON(http.StatusForbidden, gin.H{"error": utils.ErrForbidden.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}

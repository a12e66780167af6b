package middlewares

import (
	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const HeaderCorrelationId = "X-Correlation-Id"

// CorrelationMiddleware tags each request with an id, reusing the caller's when supplied.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Request.Header.Get(HeaderCorrelationId)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(HeaderCorrelationId, id)
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		for _, e := range c.Errors {
			config.GetLogger().WithFields(logrus.Fields{
				"correlation_id": id,
				"user_id":        userId,
				"method":         c.Request.Method,
				"path":           c.FullPath(),
				"status":         c.Writer.Status(),
			}).Error(e.Err)
		}
	}
}

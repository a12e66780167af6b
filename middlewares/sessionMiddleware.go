package middlewares

import (
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/gin-gonic/gin"
)

const (
	HeaderUserId       = "X-User-Id"
	HeaderUserName     = "X-User-Name"
	HeaderRegisterId   = "X-Register-Id"
	HeaderIsAdmin      = "X-Is-Admin"
	HeaderCanEditPrice = "X-Can-Edit-Price"
)

func headerBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Request.Header.Get(name)))
	return err == nil && v
}

// SessionMiddleware copies the caller's attribution headers into the request context.
// The headers are trusted as set by the front end.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id, err := strconv.Atoi(c.Request.Header.Get(HeaderUserId)); err == nil {
			ctx = utils.SetUserIdInContext(ctx, id)
		}
		if name := strings.TrimSpace(c.Request.Header.Get(HeaderUserName)); name != "" {
			ctx = utils.SetUserNameInContext(ctx, name)
		}
		if id, err := strconv.Atoi(c.Request.Header.Get(HeaderRegisterId)); err == nil {
			ctx = utils.SetRegisterIdInContext(ctx, id)
		}
		ctx = utils.SetIsAdminInContext(ctx, headerBool(c, HeaderIsAdmin))
		ctx = utils.SetCanEditPriceInContext(ctx, headerBool(c, HeaderCanEditPrice))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

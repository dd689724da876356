package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/scportal/search-api/pkg/errors"
	"github.com/scportal/search-api/pkg/response"
)

// Negotiate rejects requests whose Accept header matches none of the offered
// content types with 406. A missing Accept header accepts anything.
func Negotiate(offered ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Accept") == "" {
			c.Next()
			return
		}
		if c.NegotiateFormat(offered...) == "" {
			response.Error(c, appErrors.ErrNotAcceptable)
			c.Abort()
			return
		}
		c.Next()
	}
}

package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// Browsers only search, request auth codes and size downloads. Admin
	// configuration updates are not offered cross-origin.
	allowedMethods = "GET, POST, OPTIONS"
	allowedHeaders = "Authorization, Accept, Content-Type, X-Requested-With, X-Request-ID"
	// cfg.txt manifests are saved by filename; the request id ties a browser
	// report to server logs.
	exposedHeaders = "Content-Disposition, X-Request-ID"
)

// New returns a CORS middleware for the search API. An empty origin list
// allows every origin without credentials; listed origins may send the portal
// bearer token.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && hasOrigin(originSet, origin):
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		case allowAll:
			header.Set("Access-Control-Allow-Origin", "*")
		}

		header.Set("Access-Control-Allow-Headers", allowedHeaders)
		header.Set("Access-Control-Allow-Methods", allowedMethods)
		header.Set("Access-Control-Expose-Headers", exposedHeaders)
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	_, ok := originSet[strings.TrimRight(origin, "/")]
	return ok
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware decorates an http.Handler. Installed on the server mux it sees
// admin routes and the /ws/stream upgrade alike.
type Middleware func(http.Handler) http.Handler

// Chain nests middlewares so that middlewares[0] sees the request first.
func Chain(middlewares ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := range middlewares {
			h = middlewares[len(middlewares)-1-i](h)
		}
		return h
	}
}

// GinWrap runs mw inside the gin chain for a single route group. The
// wrapped writer is gin's own, so response-recording middleware such as
// RequestLogger belongs on the server instead.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)
	}
}

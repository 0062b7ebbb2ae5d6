package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zf7c/studylab_go_server/config"
)

// CORS 跨域中间件。只回显允许列表里的 Origin，预检请求直接 204 短路。
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", joinStrings(cfg.AllowedMethods))
		c.Header("Access-Control-Allow-Headers", joinStrings(cfg.AllowedHeaders))
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if origin == a {
			return true
		}
	}
	return false
}

func joinStrings(strs []string) string {
	out := ""
	for i, s := range strs {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"devops_proxy/internal/logger"
)

// NewRouter builds the gin engine with the proxy routes attached. CORS is
// wide open, matching the service's intended use behind internal tooling.
func NewRouter(h *ProxyHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinLogMiddleware())
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/projects", h.ListProjects)
	r.POST("/bugs", h.CreateBug)

	return r
}

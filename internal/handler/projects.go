package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListProjects handles GET /projects. Each call issues one fresh upstream
// request; nothing is cached and the upstream records are forwarded verbatim.
func (h *ProxyHandler) ListProjects(c *gin.Context) {
	projects, err := h.client.ListProjects(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, "fetching projects", err)
		return
	}

	if projects == nil {
		projects = []json.RawMessage{}
	}
	c.JSON(http.StatusOK, projects)
}

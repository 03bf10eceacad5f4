package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devops_proxy/internal/config"
	"devops_proxy/internal/logger"
	"devops_proxy/internal/notify"
	"devops_proxy/internal/service/azuredevops"
)

// ProxyHandler translates inbound REST calls into Azure DevOps API calls.
// It holds no per-request state; the injected client and config are read-only.
type ProxyHandler struct {
	cfg      *config.Config
	client   azuredevops.Client
	notifier notify.Notifier
}

// New creates a ProxyHandler. The notifier may be nil when Slack
// notifications are not configured.
func New(cfg *config.Config, client azuredevops.Client, notifier notify.Notifier) *ProxyHandler {
	return &ProxyHandler{
		cfg:      cfg,
		client:   client,
		notifier: notifier,
	}
}

// respondUpstreamError converts a client error into the outbound error
// response. Upstream non-2xx statuses are surfaced with the upstream status
// and body; transport failures get a generic 502; anything else is a 500.
func respondUpstreamError(c *gin.Context, action string, err error) {
	log := logger.GetLogger()

	var upstreamErr *azuredevops.UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		log.Error("azure devops api error",
			zap.String("action", action),
			zap.Int("azure_status", upstreamErr.StatusCode))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":          "Azure DevOps API error " + action,
			"azure_status":   upstreamErr.StatusCode,
			"azure_response": upstreamErr.Body,
		})
	case errors.Is(err, azuredevops.ErrUserNotFound):
		log.Warn("assignee not found", zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, azuredevops.ErrUnavailable):
		log.Error("azure devops unreachable", zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to reach Azure DevOps"})
	default:
		log.Error("unexpected error", zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devops_proxy/internal/logger"
	"devops_proxy/internal/model"
)

// CreateBug handles POST /bugs. Validation happens before any upstream call;
// repeated identical requests create duplicate bugs upstream.
func (h *ProxyHandler) CreateBug(c *gin.Context) {
	var req model.BugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validateBugRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bug, err := h.client.CreateBug(c.Request.Context(), &req)
	if err != nil {
		respondUpstreamError(c, "creating bug", err)
		return
	}

	if h.notifier != nil {
		// Notification failure must not fail the request
		if err := h.notifier.BugCreated(bug); err != nil {
			logger.GetLogger().Warn("failed to send bug notification",
				zap.Int("bug_id", bug.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, bug)
}

func (h *ProxyHandler) validateBugRequest(req *model.BugRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("title is required")
	}
	if req.Project == "" && h.cfg.Project == "" {
		return errors.New("project is required when no default project is configured")
	}
	if req.Priority != 0 && (req.Priority < 1 || req.Priority > 4) {
		return errors.New("priority must be between 1 and 4")
	}
	if req.Effort < 0 {
		return errors.New("effort must not be negative")
	}
	if req.UserStoryID < 0 {
		return errors.New("userStoryId must be a positive work item id")
	}
	if req.PlannedStartDate != "" {
		if _, err := time.Parse("2006-01-02", req.PlannedStartDate); err != nil {
			return errors.New("plannedStartDate must use the YYYY-MM-DD format")
		}
	}
	return nil
}

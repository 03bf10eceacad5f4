package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"devops_proxy/internal/model"
	"devops_proxy/internal/service/azuredevops"
)

// registerDevOpsTools registers the proxy operations as MCP tools
func registerDevOpsTools(s *server.MCPServer, client azuredevops.Client) error {
	listProjectsTool := mcp.NewTool("list_projects",
		mcp.WithDescription("List the projects of the configured Azure DevOps organization"),
	)

	createBugTool := mcp.NewTool("create_bug",
		mcp.WithDescription("Create a Bug work item in Azure DevOps"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Bug title"),
		),
		mcp.WithString("project",
			mcp.Description("Target project (defaults to the configured project)"),
		),
		mcp.WithString("description",
			mcp.Description("Bug description"),
		),
		mcp.WithString("repro_steps",
			mcp.Description("Steps to reproduce the bug"),
		),
		mcp.WithString("assigned_to",
			mcp.Description("Assignee email or display name"),
		),
		mcp.WithNumber("user_story_id",
			mcp.Description("Parent user story work item id"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority from 1 (highest) to 4"),
		),
		mcp.WithString("severity",
			mcp.Description("Severity, e.g. '2 - High'"),
		),
	)

	s.AddTool(listProjectsTool, makeListProjectsHandler(client))
	s.AddTool(createBugTool, makeCreateBugHandler(client))

	return nil
}

func makeListProjectsHandler(client azuredevops.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := client.ListProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %v", err)
		}

		jsonResult, err := json.Marshal(projects)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %v", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	}
}

func makeCreateBugHandler(client azuredevops.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, ok := request.Params.Arguments["title"].(string)
		if !ok || title == "" {
			return nil, fmt.Errorf("invalid title parameter")
		}

		req := &model.BugRequest{Title: title}
		if v, ok := request.Params.Arguments["project"].(string); ok {
			req.Project = v
		}
		if v, ok := request.Params.Arguments["description"].(string); ok {
			req.Description = v
		}
		if v, ok := request.Params.Arguments["repro_steps"].(string); ok {
			req.ReproSteps = v
		}
		if v, ok := request.Params.Arguments["assigned_to"].(string); ok {
			req.AssignedTo = v
		}
		if v, ok := request.Params.Arguments["user_story_id"].(float64); ok {
			req.UserStoryID = int(v)
		}
		if v, ok := request.Params.Arguments["priority"].(float64); ok {
			req.Priority = int(v)
		}
		if v, ok := request.Params.Arguments["severity"].(string); ok {
			req.Severity = v
		}

		if req.Priority != 0 && (req.Priority < 1 || req.Priority > 4) {
			return nil, fmt.Errorf("priority must be between 1 and 4")
		}

		bug, err := client.CreateBug(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create bug: %v", err)
		}

		jsonResult, err := json.Marshal(bug)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %v", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	}
}

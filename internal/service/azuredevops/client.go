package azuredevops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"devops_proxy/internal/model"
)

const (
	apiVersion             = "7.1-preview"
	entitlementsAPIVersion = "6.0-preview.3"
)

// Client is the upstream capability the handlers depend on. Test doubles
// replace it without touching handler logic.
type Client interface {
	ListProjects(ctx context.Context) ([]json.RawMessage, error)
	CreateBug(ctx context.Context, req *model.BugRequest) (*model.BugResult, error)
}

// HTTPClient talks to the Azure DevOps REST API for a single organization.
type HTTPClient struct {
	baseURL        string // https://dev.azure.com/{org}
	entitlementURL string // https://vsaex.dev.azure.com/{org}
	authHeader     string
	defaultProject string
	httpClient     *http.Client
}

// NewClient creates a client for the given organization, authenticated with
// the personal access token.
func NewClient(org, pat, defaultProject string) *HTTPClient {
	return NewClientWithBaseURL(
		fmt.Sprintf("https://dev.azure.com/%s", org),
		fmt.Sprintf("https://vsaex.dev.azure.com/%s", org),
		pat,
		defaultProject,
	)
}

// NewClientWithBaseURL creates a client against explicit base URLs.
func NewClientWithBaseURL(baseURL, entitlementURL, pat, defaultProject string) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		entitlementURL: strings.TrimRight(entitlementURL, "/"),
		authHeader:     buildAuthHeader(pat),
		defaultProject: defaultProject,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// buildAuthHeader derives the Basic auth header Azure DevOps expects for a
// PAT: the token is used as the password with an empty username.
func buildAuthHeader(pat string) string {
	token := base64.StdEncoding.EncodeToString([]byte(":" + pat))
	return "Basic " + token
}

// ListProjects fetches the organization's projects. Azure wraps the list in a
// {count, value} envelope which is unwrapped here; a bare array is accepted
// as-is. Entries are returned verbatim so unknown upstream fields survive.
func (c *HTTPClient) ListProjects(ctx context.Context) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/_apis/projects?api-version=%s", c.baseURL, apiVersion)

	body, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var projects []json.RawMessage
		if err := json.Unmarshal(trimmed, &projects); err != nil {
			return nil, fmt.Errorf("failed to decode project list: %v", err)
		}
		return projects, nil
	}

	var list model.ProjectList
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("failed to decode project list: %v", err)
	}
	return list.Value, nil
}

// CreateBug creates a Bug work item from the validated request. The project
// falls back to the client's default when the request omits one.
func (c *HTTPClient) CreateBug(ctx context.Context, req *model.BugRequest) (*model.BugResult, error) {
	project := req.Project
	if project == "" {
		project = c.defaultProject
	}
	if project == "" {
		return nil, fmt.Errorf("no project specified and no default configured")
	}

	assignee := req.AssignedTo
	if assignee != "" && !strings.Contains(assignee, "@") {
		// Looks like a display name, resolve it through user entitlements
		principal, err := c.findUserPrincipalName(ctx, assignee)
		if err != nil {
			return nil, err
		}
		assignee = principal
	}

	ops := buildPatchOps(req, project, assignee, c.baseURL)
	payload, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch operations: %v", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/$Bug?api-version=%s",
		c.baseURL, url.PathEscape(project), apiVersion)

	body, err := c.do(ctx, http.MethodPost, endpoint, "application/json-patch+json", payload)
	if err != nil {
		return nil, err
	}

	var item model.WorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode created work item: %v", err)
	}
	return item.ToResult(), nil
}

// buildPatchOps assembles the JSON Patch document for a work item create.
func buildPatchOps(req *model.BugRequest, project, assignee, baseURL string) []model.PatchOp {
	add := func(ops []model.PatchOp, field string, value any) []model.PatchOp {
		return append(ops, model.PatchOp{Op: "add", Path: "/fields/" + field, Value: value})
	}

	ops := add(nil, "System.Title", req.Title)
	if req.Description != "" {
		ops = add(ops, "System.Description", req.Description)
	}
	if req.ReproSteps != "" {
		ops = add(ops, "Microsoft.VSTS.TCM.ReproSteps", req.ReproSteps)
	}
	if assignee != "" {
		ops = add(ops, "System.AssignedTo", assignee)
	}
	if req.Priority != 0 {
		ops = add(ops, "Microsoft.VSTS.Common.Priority", req.Priority)
	}
	if req.Severity != "" {
		ops = add(ops, "Microsoft.VSTS.Common.Severity", req.Severity)
	}
	if req.Activity != "" {
		ops = add(ops, "Microsoft.VSTS.Common.Activity", req.Activity)
	}
	if req.Effort != 0 {
		ops = add(ops, "Microsoft.VSTS.Scheduling.Effort", req.Effort)
	}
	if req.PlannedStartDate != "" {
		// Azure expects a full timestamp for date fields
		ops = add(ops, "Microsoft.VSTS.Scheduling.StartDate", req.PlannedStartDate+"T00:00:00-05:00")
	}
	for field, value := range req.Fields {
		ops = add(ops, field, value)
	}
	if req.UserStoryID != 0 {
		ops = append(ops, model.PatchOp{
			Op:   "add",
			Path: "/relations/-",
			Value: map[string]any{
				"rel": "System.LinkTypes.Hierarchy-Reverse",
				"url": fmt.Sprintf("%s/%s/_apis/wit/workItems/%d",
					baseURL, url.PathEscape(project), req.UserStoryID),
				"attributes": map[string]any{"comment": "Parent User Story"},
			},
		})
	}
	return ops
}

// findUserPrincipalName resolves a display name to a principal name through
// the user entitlements API. Returns ErrUserNotFound when no entitlement
// matches.
func (c *HTTPClient) findUserPrincipalName(ctx context.Context, displayName string) (string, error) {
	filter := url.QueryEscape(fmt.Sprintf("name eq '%s'", displayName))
	endpoint := fmt.Sprintf("%s/_apis/userentitlements?api-version=%s&$filter=%s",
		c.entitlementURL, entitlementsAPIVersion, filter)

	body, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode < 500 {
			// Azure rejected the lookup itself, the assignee cannot be resolved
			return "", fmt.Errorf("%w: %q", ErrUserNotFound, displayName)
		}
		// transport failures and upstream 5xx keep their own taxonomy
		return "", err
	}

	var entitlements model.UserEntitlements
	if err := json.Unmarshal(body, &entitlements); err != nil {
		return "", fmt.Errorf("failed to decode user entitlements: %v", err)
	}

	users := entitlements.Members
	if len(users) == 0 {
		users = entitlements.Value
	}

	want := strings.ToLower(strings.TrimSpace(displayName))
	for _, u := range users {
		name := u.User.DisplayName
		if name == "" {
			name = u.Name
		}
		if strings.ToLower(strings.TrimSpace(name)) != want {
			continue
		}
		if u.User.PrincipalName != "" {
			return u.User.PrincipalName, nil
		}
		if u.User.MailAddress != "" {
			return u.User.MailAddress, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUserNotFound, displayName)
}

// do issues a single request and returns the response body. Non-2xx statuses
// become *UpstreamError; transport failures are returned wrapped so callers
// can tell the two apart.
func (c *HTTPClient) do(ctx context.Context, method, endpoint, contentType string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Azure DevOps response: %v", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       normalizeErrorBody(body),
		}
	}

	return body, nil
}

// normalizeErrorBody keeps the upstream error body embeddable in a JSON
// response even when Azure returns plain text.
func normalizeErrorBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if json.Valid(trimmed) && len(trimmed) > 0 {
		return trimmed
	}
	wrapped, _ := json.Marshal(map[string]string{"raw_text": string(body)})
	return wrapped
}

var _ Client = (*HTTPClient)(nil)

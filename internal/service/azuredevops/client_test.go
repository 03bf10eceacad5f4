package azuredevops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devops_proxy/internal/model"
)

// base64(":test-pat") — the PAT is sent as a Basic auth password
const wantAuthHeader = "Basic OnRlc3QtcGF0"

func newTestClient(serverURL, entitlementURL string) *HTTPClient {
	return NewClientWithBaseURL(serverURL, entitlementURL, "test-pat", "Alpha")
}

func TestBuildAuthHeader(t *testing.T) {
	assert.Equal(t, wantAuthHeader, buildAuthHeader("test-pat"))
}

func TestListProjects_UnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_apis/projects", r.URL.Path)
		assert.Equal(t, apiVersion, r.URL.Query().Get("api-version"))
		assert.Equal(t, wantAuthHeader, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":2,"value":[{"id":"p1","name":"Alpha","visibility":"private"},{"id":"p2","name":"Beta"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	projects, err := client.ListProjects(context.Background())

	require.NoError(t, err)
	require.Len(t, projects, 2)
	// entries survive verbatim, including fields the proxy does not model
	assert.JSONEq(t, `{"id":"p1","name":"Alpha","visibility":"private"}`, string(projects[0]))
	assert.JSONEq(t, `{"id":"p2","name":"Beta"}`, string(projects[1]))
}

func TestListProjects_AcceptsBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"p1","name":"Alpha"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	projects, err := client.ListProjects(context.Background())

	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.JSONEq(t, `{"id":"p1","name":"Alpha"}`, string(projects[0]))
}

func TestListProjects_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"TF400813: not authorized"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.ListProjects(context.Background())

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.JSONEq(t, `{"message":"TF400813: not authorized"}`, string(upstreamErr.Body))
}

func TestListProjects_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.ListProjects(context.Background())

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.JSONEq(t, `{"raw_text":"upstream down"}`, string(upstreamErr.Body))
}

func TestListProjects_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL, server.URL)
	_, err := client.ListProjects(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCreateBug_SendsPatchDocument(t *testing.T) {
	var gotOps []model.PatchOp
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Alpha/_apis/wit/workitems/$Bug", r.URL.Path)
		assert.Equal(t, "application/json-patch+json", r.Header.Get("Content-Type"))
		assert.Equal(t, wantAuthHeader, r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOps))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":42,"fields":{"System.Title":"Login button broken","System.State":"New"},"url":"https://dev.azure.com/org/_workitems/42"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	bug, err := client.CreateBug(context.Background(), &model.BugRequest{
		Title:       "Login button broken",
		Description: "Clicking login does nothing",
		Priority:    2,
		UserStoryID: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, 42, bug.ID)
	assert.Equal(t, "Login button broken", bug.Title)
	assert.Equal(t, "New", bug.State)
	assert.Equal(t, "https://dev.azure.com/org/_workitems/42", bug.URL)

	require.NotEmpty(t, gotOps)
	assert.Equal(t, "add", gotOps[0].Op)
	assert.Equal(t, "/fields/System.Title", gotOps[0].Path)
	assert.Equal(t, "Login button broken", gotOps[0].Value)

	paths := make([]string, 0, len(gotOps))
	for _, op := range gotOps {
		paths = append(paths, op.Path)
	}
	assert.Contains(t, paths, "/fields/System.Description")
	assert.Contains(t, paths, "/fields/Microsoft.VSTS.Common.Priority")
	assert.Contains(t, paths, "/relations/-")
}

func TestCreateBug_FlatResponsePassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":42,"title":"Login button broken","state":"New","url":"https://dev.azure.com/org/_workitems/42"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	bug, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "Login button broken"})

	require.NoError(t, err)
	assert.Equal(t, &model.BugResult{
		ID:    42,
		Title: "Login button broken",
		State: "New",
		URL:   "https://dev.azure.com/org/_workitems/42",
	}, bug)
}

func TestCreateBug_ProjectFromRequestOverridesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Gamma/_apis/wit/workitems/$Bug", r.URL.Path)
		w.Write([]byte(`{"id":1,"title":"t","state":"New","url":"u"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t", Project: "Gamma"})
	require.NoError(t, err)
}

func TestCreateBug_NoProject(t *testing.T) {
	client := NewClientWithBaseURL("http://unused", "http://unused", "test-pat", "")
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no project")
}

func TestCreateBug_ExtraFieldsAndCustomPaths(t *testing.T) {
	var gotOps []model.PatchOp
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOps))
		w.Write([]byte(`{"id":1,"title":"t","state":"New","url":"u"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{
		Title:  "t",
		Fields: map[string]any{"Custom.Cliente": "ACME"},
	})
	require.NoError(t, err)

	found := false
	for _, op := range gotOps {
		if op.Path == "/fields/Custom.Cliente" {
			found = true
			assert.Equal(t, "ACME", op.Value)
		}
	}
	assert.True(t, found, "custom field op missing: %v", gotOps)
}

func TestCreateBug_ResolvesDisplayNameAssignee(t *testing.T) {
	entitlements := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_apis/userentitlements", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("$filter"), "Jane Doe")
		w.Write([]byte(`{"members":[{"user":{"displayName":"Jane Doe","principalName":"jane@example.com"}}]}`))
	}))
	defer entitlements.Close()

	var gotOps []model.PatchOp
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOps))
		w.Write([]byte(`{"id":1,"title":"t","state":"New","url":"u"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, entitlements.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t", AssignedTo: "Jane Doe"})
	require.NoError(t, err)

	found := false
	for _, op := range gotOps {
		if op.Path == "/fields/System.AssignedTo" {
			found = true
			assert.Equal(t, "jane@example.com", op.Value)
		}
	}
	assert.True(t, found, "assignee op missing: %v", gotOps)
}

func TestCreateBug_EmailAssigneeSkipsLookup(t *testing.T) {
	entitlementCalls := 0
	entitlements := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entitlementCalls++
	}))
	defer entitlements.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1,"title":"t","state":"New","url":"u"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, entitlements.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t", AssignedTo: "jane@example.com"})

	require.NoError(t, err)
	assert.Equal(t, 0, entitlementCalls)
}

func TestCreateBug_AssigneeNotFound(t *testing.T) {
	entitlements := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"members":[]}`))
	}))
	defer entitlements.Close()

	workItemCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workItemCalls++
	}))
	defer server.Close()

	client := newTestClient(server.URL, entitlements.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t", AssignedTo: "Nobody Here"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserNotFound)
	// resolution failure must prevent the work item call
	assert.Equal(t, 0, workItemCalls)
}

func TestCreateBug_EntitlementsUnreachable(t *testing.T) {
	entitlements := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	entitlements.Close() // connection refused from here on

	workItemCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workItemCalls++
	}))
	defer server.Close()

	client := newTestClient(server.URL, entitlements.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t", AssignedTo: "Jane Doe"})

	// an outage during assignee resolution is an outage, not a missing user
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, errors.Is(err, ErrUserNotFound))
	assert.Equal(t, 0, workItemCalls)
}

func TestCreateBug_EntitlementsServerError(t *testing.T) {
	entitlements := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"entitlements backend down"}`))
	}))
	defer entitlements.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := newTestClient(server.URL, entitlements.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t", AssignedTo: "Jane Doe"})

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	assert.False(t, errors.Is(err, ErrUserNotFound))
}

func TestCreateBug_EntitlementsRejected(t *testing.T) {
	entitlements := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"no entitlements access"}`))
	}))
	defer entitlements.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := newTestClient(server.URL, entitlements.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t", AssignedTo: "Jane Doe"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFindUserPrincipalName_FallsBackToMailAddress(t *testing.T) {
	entitlements := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"user":{"displayName":"Jane Doe","mailAddress":"jane@example.com"}}]}`))
	}))
	defer entitlements.Close()

	client := newTestClient("http://unused", entitlements.URL)
	principal, err := client.findUserPrincipalName(context.Background(), "jane doe")

	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", principal)
}

func TestCreateBug_UpstreamErrorMirrored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"TF401320: field rule violation"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.CreateBug(context.Background(), &model.BugRequest{Title: "t"})

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusBadRequest, upstreamErr.StatusCode)
	assert.Contains(t, string(upstreamErr.Body), "TF401320")
}

package model

import "encoding/json"

// ProjectList represents the envelope Azure DevOps wraps project listings in.
// Entries stay raw so upstream fields pass through the proxy untouched.
type ProjectList struct {
	Count int               `json:"count"`
	Value []json.RawMessage `json:"value"`
}

// BugRequest is the inbound payload for creating a Bug work item.
// Title is the only required field; everything else is forwarded when present.
type BugRequest struct {
	Project          string         `json:"project,omitempty"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	ReproSteps       string         `json:"reproSteps,omitempty"`
	AssignedTo       string         `json:"assignedTo,omitempty"`
	UserStoryID      int            `json:"userStoryId,omitempty"`
	Priority         int            `json:"priority,omitempty"`
	Severity         string         `json:"severity,omitempty"`
	Activity         string         `json:"activity,omitempty"`
	Effort           float64        `json:"effort,omitempty"`
	PlannedStartDate string         `json:"plannedStartDate,omitempty"`
	Fields           map[string]any `json:"fields,omitempty"`
}

// BugResult is the reshaped work item returned to the caller
type BugResult struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	State string `json:"state"`
	URL   string `json:"url"`
}

// WorkItem represents an Azure DevOps work item response. Azure returns the
// interesting values under "fields"; stubs and already-reshaped upstreams may
// return them flat, so both layouts are kept.
type WorkItem struct {
	ID     int                        `json:"id"`
	Title  string                     `json:"title"`
	State  string                     `json:"state"`
	URL    string                     `json:"url"`
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
}

// ToResult flattens a WorkItem into the response shape, preferring the
// System.* fields when Azure supplied them.
func (w *WorkItem) ToResult() *BugResult {
	result := &BugResult{
		ID:    w.ID,
		Title: w.Title,
		State: w.State,
		URL:   w.URL,
	}
	if raw, ok := w.Fields["System.Title"]; ok {
		_ = json.Unmarshal(raw, &result.Title)
	}
	if raw, ok := w.Fields["System.State"]; ok {
		_ = json.Unmarshal(raw, &result.State)
	}
	return result
}

// PatchOp is a single JSON Patch operation in a work item create request
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// UserEntitlements represents the response from the user entitlements API.
// Depending on the api-version the users come back under "members" or "value".
type UserEntitlements struct {
	Members []UserEntitlement `json:"members"`
	Value   []UserEntitlement `json:"value"`
}

// UserEntitlement represents a single entitlement record
type UserEntitlement struct {
	User EntitledUser `json:"user"`
	Name string       `json:"name"`
}

// EntitledUser represents the user inside an entitlement record
type EntitledUser struct {
	DisplayName   string `json:"displayName"`
	PrincipalName string `json:"principalName"`
	MailAddress   string `json:"mailAddress"`
}

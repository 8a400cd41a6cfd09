package desksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal agencydesk HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	UserID      int64
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID       int64  `json:"id"`
	ClientID int64  `json:"client_id"`
	LeadID   int64  `json:"lead_id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

type Stage struct {
	ID      int64   `json:"id"`
	Type    string  `json:"type"`
	Status  string  `json:"status"`
	DueDate *string `json:"due_date,omitempty"`
}

type File struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// ProjectDetail is a project with its provisioned stages and files.
type ProjectDetail struct {
	Project Project `json:"project"`
	Stages  []Stage `json:"stages"`
	Files   []File  `json:"files"`
}

type Task struct {
	ID        int64   `json:"id"`
	ProjectID int64   `json:"project_id"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	Priority  string  `json:"priority"`
	OwnerID   *int64  `json:"owner_id,omitempty"`
	DueDate   *string `json:"due_date,omitempty"`
}

// NewTask holds the fields accepted when creating a task.
type NewTask struct {
	ProjectID int64   `json:"project_id"`
	StageID   *int64  `json:"stage_id,omitempty"`
	Title     string  `json:"title"`
	OwnerID   *int64  `json:"owner_id,omitempty"`
	DueDate   *string `json:"due_date,omitempty"`
	Priority  string  `json:"priority,omitempty"`
}

type Approval struct {
	ID               int64   `json:"id"`
	TaskID           int64   `json:"task_id"`
	PeerReviewerID   *int64  `json:"peer_reviewer_id,omitempty"`
	SeniorApproverID *int64  `json:"senior_approver_id,omitempty"`
	PeerStatus       string  `json:"peer_status"`
	SeniorStatus     string  `json:"senior_status"`
	PeerNotes        *string `json:"peer_notes,omitempty"`
	SeniorNotes      *string `json:"senior_notes,omitempty"`
}

type KPICount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type Overview struct {
	Period           string     `json:"period"`
	KPICounts        []KPICount `json:"kpi_counts"`
	OverdueTasks     int        `json:"overdue_tasks"`
	TasksDueThisWeek int        `json:"tasks_due_this_week"`
	OpenRisks        int        `json:"open_risks"`
	PendingApprovals int        `json:"pending_approvals"`
}

type ProjectHealth struct {
	ProjectID      int64  `json:"project_id"`
	Name           string `json:"name"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	OverdueTasks   int    `json:"overdue_tasks"`
	OpenRisks      int    `json:"open_risks"`
	Health         string `json:"health"`
}

// APIError wraps non-2xx responses. Code and Message are filled from the error envelope when present.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project and returns it with its provisioned stages and files.
func (c *Client) CreateProject(ctx context.Context, clientID, leadID int64, name string) (ProjectDetail, error) {
	body := map[string]any{
		"client_id": clientID,
		"lead_id":   leadID,
		"name":      name,
	}
	var resp ProjectDetail
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

func (c *Client) GetProject(ctx context.Context, id int64) (ProjectDetail, error) {
	var resp ProjectDetail
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, t NewTask) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", t, &resp)
	return resp, err
}

// ListTasks returns a project's tasks. filter is an optional AIP-160 expression.
func (c *Client) ListTasks(ctx context.Context, projectID int64, filter string) ([]Task, error) {
	q := url.Values{}
	if projectID > 0 {
		q.Set("project_id", strconv.FormatInt(projectID, 10))
	}
	if filter != "" {
		q.Set("filter", filter)
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, withQuery("tasks", q), nil, &resp)
	return resp, err
}

// SetTaskStatus moves a task to status.
func (c *Client) SetTaskStatus(ctx context.Context, id int64, status string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d", id), map[string]any{"status": status}, &resp)
	return resp, err
}

// OpenApproval opens a review gate on a task; zero reviewer ids are omitted.
func (c *Client) OpenApproval(ctx context.Context, taskID, peerID, seniorID int64) (Approval, error) {
	body := map[string]any{"task_id": taskID}
	if peerID > 0 {
		body["peer_reviewer_id"] = peerID
	}
	if seniorID > 0 {
		body["senior_approver_id"] = seniorID
	}
	var resp Approval
	err := c.do(ctx, http.MethodPost, "approvals", body, &resp)
	return resp, err
}

func (c *Client) PendingApprovals(ctx context.Context, userID int64) ([]Approval, error) {
	q := url.Values{}
	if userID > 0 {
		q.Set("user_id", strconv.FormatInt(userID, 10))
	}
	var resp []Approval
	err := c.do(ctx, http.MethodGet, withQuery("approvals/pending", q), nil, &resp)
	return resp, err
}

// PeerDecision records the peer stage; status is "approved" or "rejected".
func (c *Client) PeerDecision(ctx context.Context, id int64, status, notes string) (Approval, error) {
	return c.decide(ctx, id, "peer", status, notes)
}

// SeniorDecision records the senior stage, which settles the task.
func (c *Client) SeniorDecision(ctx context.Context, id int64, status, notes string) (Approval, error) {
	return c.decide(ctx, id, "senior", status, notes)
}

func (c *Client) decide(ctx context.Context, id int64, stage, status, notes string) (Approval, error) {
	body := map[string]any{"status": status}
	if notes != "" {
		body["notes"] = notes
	}
	var resp Approval
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("approvals/%d/%s", id, stage), body, &resp)
	return resp, err
}

// Overview returns KPI counts for period (YYYY-MM, empty for the current month).
func (c *Client) Overview(ctx context.Context, period string) (Overview, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	var resp Overview
	err := c.do(ctx, http.MethodGet, withQuery("analytics/overview", q), nil, &resp)
	return resp, err
}

func (c *Client) ProjectHealth(ctx context.Context) ([]ProjectHealth, error) {
	var resp []ProjectHealth
	err := c.do(ctx, http.MethodGet, "analytics/project-health", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.UserID > 0:
		req.Header.Set("X-User-Id", strconv.FormatInt(c.UserID, 10))
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}

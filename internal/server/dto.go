package server

import (
	"agencydesk/internal/engine"
)

// Request payloads

type CreateUserRequest struct {
	Email string `json:"email" minLength:"3"`
	Name  string `json:"name" minLength:"1"`
	Role  string `json:"role,omitempty" enum:"admin,account_lead,project_lead,specialist"`
}

type CreateClientRequest struct {
	Name   string `json:"name" minLength:"1"`
	Sector string `json:"sector,omitempty"`
	Status string `json:"status,omitempty" enum:"active,inactive,prospect"`
}

type CreateProjectRequest struct {
	ClientID  int64   `json:"client_id" minimum:"1"`
	LeadID    int64   `json:"lead_id" minimum:"1"`
	Name      string  `json:"name" minLength:"1"`
	StartDate *string `json:"start_date,omitempty" example:"2026-03-01"`
	EndDate   *string `json:"end_date,omitempty" example:"2026-06-30"`
}

type UpdateProjectRequest struct {
	Status string `json:"status" enum:"active,completed,on_hold,cancelled"`
}

type UpdateStageRequest struct {
	Status  string  `json:"status" enum:"pending,in_progress,completed"`
	DueDate *string `json:"due_date,omitempty" example:"2026-03-31"`
}

type CreateTaskRequest struct {
	ProjectID   int64   `json:"project_id" minimum:"1"`
	StageID     *int64  `json:"stage_id,omitempty"`
	Title       string  `json:"title" minLength:"1"`
	Description string  `json:"description,omitempty"`
	OwnerID     *int64  `json:"owner_id,omitempty" minimum:"0"`
	DueDate     *string `json:"due_date,omitempty" example:"2026-03-20"`
	Priority    string  `json:"priority,omitempty" enum:"urgent,high,medium,low"`
	ContractRef string  `json:"contract_ref,omitempty"`
}

func (r CreateTaskRequest) options() engine.TaskCreateOptions {
	return engine.TaskCreateOptions{
		ProjectID:   r.ProjectID,
		StageID:     r.StageID,
		Title:       r.Title,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		DueDate:     r.DueDate,
		Priority:    r.Priority,
		ContractRef: r.ContractRef,
	}
}

// UpdateTaskRequest is a partial update: omitted fields are left unchanged, an empty
// due_date clears it.
type UpdateTaskRequest struct {
	Status      *string `json:"status,omitempty" enum:"pending,in_progress,review,blocked,completed,approved"`
	Description *string `json:"description,omitempty"`
	OwnerID     *int64  `json:"owner_id,omitempty" minimum:"0" doc:"0 clears the owner"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty" enum:"urgent,high,medium,low"`
}

func (r UpdateTaskRequest) options() engine.TaskUpdateOptions {
	return engine.TaskUpdateOptions{
		Status:      r.Status,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		DueDate:     r.DueDate,
		Priority:    r.Priority,
	}
}

type OpenApprovalRequest struct {
	TaskID           int64  `json:"task_id" minimum:"1"`
	PeerReviewerID   *int64 `json:"peer_reviewer_id,omitempty"`
	SeniorApproverID *int64 `json:"senior_approver_id,omitempty"`
}

type DecisionRequest struct {
	Status string  `json:"status" enum:"approved,rejected"`
	Notes  *string `json:"notes,omitempty"`
}

type CreateRiskRequest struct {
	ProjectID   int64  `json:"project_id" minimum:"1"`
	Description string `json:"description" minLength:"1"`
	Likelihood  string `json:"likelihood" enum:"low,medium,high"`
	Impact      string `json:"impact" enum:"low,medium,high"`
	Mitigation  string `json:"mitigation,omitempty"`
	OwnerID     *int64 `json:"owner_id,omitempty"`
}

type UpdateRiskRequest struct {
	Status     string  `json:"status" enum:"open,mitigated,closed"`
	Mitigation *string `json:"mitigation,omitempty"`
}

type CreateEscalationRequest struct {
	ProjectID   int64  `json:"project_id" minimum:"1"`
	TaskID      *int64 `json:"task_id,omitempty"`
	Description string `json:"description" minLength:"1"`
	Severity    string `json:"severity" enum:"low,medium,high,critical"`
	AssignedTo  *int64 `json:"assigned_to,omitempty"`
}

type CreateBriefRequest struct {
	ProjectID         int64    `json:"project_id" minimum:"1"`
	Objectives        string   `json:"objectives" minLength:"1"`
	Audience          string   `json:"audience,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	Channels          []string `json:"channels,omitempty"`
	Timeline          string   `json:"timeline,omitempty"`
	ApprovalsRequired []string `json:"approvals_required,omitempty"`
}

func (r CreateBriefRequest) options() engine.BriefCreateOptions {
	return engine.BriefCreateOptions{
		ProjectID:         r.ProjectID,
		Objectives:        r.Objectives,
		Audience:          r.Audience,
		Tone:              r.Tone,
		Channels:          r.Channels,
		Timeline:          r.Timeline,
		ApprovalsRequired: r.ApprovalsRequired,
	}
}

type SignOffBriefRequest struct {
	ClientSignOff string `json:"client_sign_off" minLength:"1" doc:"name of the client signatory"`
}

// Responses

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// output wraps a response body for huma.
type output[T any] struct {
	Body T `json:"body"`
}

func respond[T any](v T) *output[T] {
	return &output[T]{Body: v}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

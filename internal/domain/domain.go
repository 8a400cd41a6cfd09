package domain

type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role" enum:"admin,account_lead,project_lead,specialist"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Client struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Sector    string `json:"sector,omitempty"`
	Status    string `json:"status" enum:"active,inactive,prospect"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Project struct {
	ID        int64   `json:"id"`
	ClientID  int64   `json:"client_id"`
	LeadID    int64   `json:"lead_id"`
	Name      string  `json:"name"`
	StartDate *string `json:"start_date,omitempty" format:"date"`
	EndDate   *string `json:"end_date,omitempty" format:"date"`
	Status    string  `json:"status" enum:"active,completed,on_hold,cancelled"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Stage struct {
	ID        int64   `json:"id"`
	ProjectID int64   `json:"project_id"`
	Type      string  `json:"type" enum:"onboarding,brief_strategy,execution,qa_review,delivery_reporting,post_project_review"`
	Status    string  `json:"status" enum:"pending,in_progress,completed"`
	DueDate   *string `json:"due_date,omitempty" format:"date"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

// File is a project artifact record; it carries no content.
type File struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Kind      string `json:"kind" enum:"brief,contract_summary,contact_report,finance_note,project_tracker"`
	Name      string `json:"name"`
	CreatedBy int64  `json:"created_by"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Task struct {
	ID          int64   `json:"id"`
	ProjectID   int64   `json:"project_id"`
	StageID     *int64  `json:"stage_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	OwnerID     *int64  `json:"owner_id,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
	Priority    string  `json:"priority" enum:"urgent,high,medium,low"`
	Status      string  `json:"status" enum:"pending,in_progress,review,blocked,completed,approved"`
	ContractRef string  `json:"contract_ref,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type Approval struct {
	ID               int64   `json:"id"`
	TaskID           int64   `json:"task_id"`
	PeerReviewerID   *int64  `json:"peer_reviewer_id,omitempty"`
	SeniorApproverID *int64  `json:"senior_approver_id,omitempty"`
	PeerStatus       string  `json:"peer_status" enum:"pending,approved,rejected"`
	SeniorStatus     string  `json:"senior_status" enum:"pending,approved,rejected"`
	PeerNotes        *string `json:"peer_notes,omitempty"`
	SeniorNotes      *string `json:"senior_notes,omitempty"`
	PeerReviewedAt   *string `json:"peer_reviewed_at,omitempty" format:"date-time"`
	SeniorApprovedAt *string `json:"senior_approved_at,omitempty" format:"date-time"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

// Unresolved reports whether the gate can still change the bound task.
func (a Approval) Unresolved() bool {
	return a.SeniorStatus == DecisionPending && a.PeerStatus != DecisionRejected
}

type Risk struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Description string `json:"description"`
	Likelihood  string `json:"likelihood" enum:"low,medium,high"`
	Impact      string `json:"impact" enum:"low,medium,high"`
	Mitigation  string `json:"mitigation,omitempty"`
	OwnerID     *int64 `json:"owner_id,omitempty"`
	Status      string `json:"status" enum:"open,mitigated,closed"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Escalation struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	TaskID      *int64 `json:"task_id,omitempty"`
	Description string `json:"description"`
	Severity    string `json:"severity" enum:"low,medium,high,critical"`
	Status      string `json:"status" enum:"open,resolved"`
	EscalatedBy int64  `json:"escalated_by"`
	AssignedTo  *int64 `json:"assigned_to,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// Brief is a project's creative brief. It starts as a draft and becomes approved once
// the client signs it off.
type Brief struct {
	ID                int64    `json:"id"`
	ProjectID         int64    `json:"project_id"`
	Objectives        string   `json:"objectives"`
	Audience          string   `json:"audience,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	Channels          []string `json:"channels"`
	Timeline          string   `json:"timeline,omitempty"`
	ApprovalsRequired []string `json:"approvals_required"`
	Status            string   `json:"status" enum:"draft,approved"`
	ClientSignOff     *string  `json:"client_sign_off,omitempty"`
	ClientSignOffDate *string  `json:"client_sign_off_date,omitempty" format:"date-time"`
	CreatedBy         int64    `json:"created_by"`
	CreatedAt         string   `json:"created_at" format:"date-time"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
}

// KPIEvent is an append-only counter fact.
type KPIEvent struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Type      string `json:"type"`
	Period    string `json:"period"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type AuditEntry struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   *int64 `json:"resource_id,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Actor is the caller identity every operation acts under.
type Actor struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role,omitempty"`
	Source string `json:"source,omitempty"`
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
	DueSoonDays      int        `json:"due_soon_days"`
	OpenRisks        int        `json:"open_risks"`
	PendingApprovals int        `json:"pending_approvals"`
}

type ProjectHealth struct {
	ProjectID      int64  `json:"project_id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	OverdueTasks   int    `json:"overdue_tasks"`
	OpenRisks      int    `json:"open_risks"`
	Health         Health `json:"health" enum:"good,moderate,poor"`
}

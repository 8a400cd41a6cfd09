package domain

const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskBlocked    = "blocked"
	TaskCompleted  = "completed"
	TaskApproved   = "approved"
)

const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectOnHold    = "on_hold"
	ProjectCancelled = "cancelled"
)

const (
	StagePending    = "pending"
	StageInProgress = "in_progress"
	StageCompleted  = "completed"
)

const (
	RiskOpen      = "open"
	RiskMitigated = "mitigated"
	RiskClosed    = "closed"
)

const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	EscalationOpen     = "open"
	EscalationResolved = "resolved"
)

const (
	BriefDraft    = "draft"
	BriefApproved = "approved"
)

const RoleAdmin = "admin"

// KPIEscalation is the KPI event type appended for every escalation.
const KPIEscalation = "escalation"

// StageTypes is the canonical, ordered stage set every project owns.
var StageTypes = []string{
	"onboarding",
	"brief_strategy",
	"execution",
	"qa_review",
	"delivery_reporting",
	"post_project_review",
}

// FileSpec names one mandatory project artifact.
type FileSpec struct {
	Kind string
	Name string
}

// MandatoryFiles is the canonical, ordered file set every project owns.
var MandatoryFiles = []FileSpec{
	{Kind: "brief", Name: "Client Brief"},
	{Kind: "contract_summary", Name: "Contract Summary"},
	{Kind: "contact_report", Name: "Contact Reports"},
	{Kind: "finance_note", Name: "Finance Notes (Admin Only)"},
	{Kind: "project_tracker", Name: "Project Tracker"},
}

var (
	TaskStatuses       = []string{TaskPending, TaskInProgress, TaskReview, TaskBlocked, TaskCompleted, TaskApproved}
	Priorities         = []string{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
	ProjectStatuses    = []string{ProjectActive, ProjectCompleted, ProjectOnHold, ProjectCancelled}
	StageStatuses      = []string{StagePending, StageInProgress, StageCompleted}
	RiskLevels         = []string{"low", "medium", "high"}
	RiskStatuses       = []string{RiskOpen, RiskMitigated, RiskClosed}
	Decisions          = []string{DecisionApproved, DecisionRejected}
	ClientStatuses     = []string{"active", "inactive", "prospect"}
	UserRoles          = []string{RoleAdmin, "account_lead", "project_lead", "specialist"}
	Severities         = []string{"low", "medium", "high", "critical"}
	EscalationStatuses = []string{EscalationOpen, EscalationResolved}
)

// OneOf reports whether v is a member of set.
func OneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// PriorityRank orders priorities for listings; unknown values sort last.
func PriorityRank(p string) int {
	for i, v := range Priorities {
		if v == p {
			return i
		}
	}
	return len(Priorities)
}

// StageRank returns the canonical position of a stage type.
func StageRank(t string) int {
	for i, v := range StageTypes {
		if v == t {
			return i
		}
	}
	return len(StageTypes)
}

// Health is the derived project health label.
type Health string

const (
	HealthGood     Health = "good"
	HealthModerate Health = "moderate"
	HealthPoor     Health = "poor"
)

// ClassifyHealth derives the label from overdue task and open risk counts.
func ClassifyHealth(overdueTasks, openRisks int) Health {
	switch {
	case overdueTasks == 0 && openRisks == 0:
		return HealthGood
	case overdueTasks < 3 && openRisks < 2:
		return HealthModerate
	default:
		return HealthPoor
	}
}

// TaskClosed reports whether a task no longer counts as outstanding work.
func TaskClosed(status string) bool {
	return status == TaskCompleted || status == TaskApproved
}

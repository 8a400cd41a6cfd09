package engine

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

type RiskCreateOptions struct {
	ProjectID   int64
	Description string
	Likelihood  string
	Impact      string
	Mitigation  string
	OwnerID     *int64
}

func (e Engine) CreateRisk(ctx context.Context, actor domain.Actor, opts RiskCreateOptions) (rk domain.Risk, err error) {
	ctx, span := e.startSpan(ctx, "CreateRisk", attribute.Int64("project.id", opts.ProjectID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return rk, err
	}
	if err := positive("project_id", opts.ProjectID); err != nil {
		return rk, err
	}
	if err := required("description", opts.Description); err != nil {
		return rk, err
	}
	if err := oneOf("likelihood", opts.Likelihood, domain.RiskLevels); err != nil {
		return rk, err
	}
	if err := oneOf("impact", opts.Impact, domain.RiskLevels); err != nil {
		return rk, err
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return rk, lookupErr("project", opts.ProjectID, err)
	}
	if err := e.ensureUser(ctx, "owner_id", opts.OwnerID); err != nil {
		return rk, err
	}
	now := e.stamp()
	rk = domain.Risk{
		ProjectID:   opts.ProjectID,
		Description: strings.TrimSpace(opts.Description),
		Likelihood:  opts.Likelihood,
		Impact:      opts.Impact,
		Mitigation:  opts.Mitigation,
		OwnerID:     positiveOrNil(opts.OwnerID),
		Status:      domain.RiskOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if rk.ID, err = e.Repo.InsertRisk(ctx, rk); err != nil {
		return domain.Risk{}, storeErr("insert risk", err)
	}
	e.record(ctx, actor, "create", "risks", rk.ID)
	return rk, nil
}

// ListRisks lists open risks first, highest impact first; projectID zero lists all projects.
func (e Engine) ListRisks(ctx context.Context, actor domain.Actor, projectID int64) ([]domain.Risk, error) {
	risks, err := e.Repo.ListRisks(ctx, projectID)
	if err != nil {
		return nil, storeErr("list risks", err)
	}
	e.record(ctx, actor, "list", "risks", 0)
	return risks, nil
}

type RiskUpdateOptions struct {
	Status     string
	Mitigation *string
}

func (e Engine) UpdateRisk(ctx context.Context, actor domain.Actor, id int64, opts RiskUpdateOptions) (rk domain.Risk, err error) {
	ctx, span := e.startSpan(ctx, "UpdateRisk", attribute.Int64("risk.id", id))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return rk, err
	}
	if err := oneOf("status", opts.Status, domain.RiskStatuses); err != nil {
		return rk, err
	}
	if err := e.Repo.UpdateRisk(ctx, id, opts.Status, opts.Mitigation, e.stamp()); err != nil {
		return rk, writeErr("update risk", "risk", id, err)
	}
	if rk, err = e.Repo.GetRisk(ctx, id); err != nil {
		return rk, lookupErr("risk", id, err)
	}
	e.record(ctx, actor, "update", "risks", id)
	return rk, nil
}

// ---- escalations ----

type EscalationCreateOptions struct {
	ProjectID   int64
	TaskID      *int64
	Description string
	Severity    string
	AssignedTo  *int64
}

// CreateEscalation stores the escalation and appends its KPI event for the current month
// in the same transaction.
func (e Engine) CreateEscalation(ctx context.Context, actor domain.Actor, opts EscalationCreateOptions) (esc domain.Escalation, err error) {
	ctx, span := e.startSpan(ctx, "CreateEscalation", attribute.Int64("project.id", opts.ProjectID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return esc, err
	}
	if err := positive("project_id", opts.ProjectID); err != nil {
		return esc, err
	}
	if err := required("description", opts.Description); err != nil {
		return esc, err
	}
	if err := oneOf("severity", opts.Severity, domain.Severities); err != nil {
		return esc, err
	}
	if err := e.ensureUser(ctx, "assigned_to", opts.AssignedTo); err != nil {
		return esc, err
	}

	now := e.now()
	err = e.inTx(ctx, "create escalation", func(r repo.Repo) error {
		if _, err := r.GetProject(ctx, opts.ProjectID); err != nil {
			return lookupErr("project", opts.ProjectID, err)
		}
		if opts.TaskID != nil && *opts.TaskID > 0 {
			t, err := r.GetTask(ctx, *opts.TaskID)
			if err != nil {
				return lookupErr("task", *opts.TaskID, err)
			}
			if t.ProjectID != opts.ProjectID {
				return invalid("task_id", "belongs to another project")
			}
		}
		esc = domain.Escalation{
			ProjectID:   opts.ProjectID,
			TaskID:      positiveOrNil(opts.TaskID),
			Description: strings.TrimSpace(opts.Description),
			Severity:    opts.Severity,
			Status:      domain.EscalationOpen,
			EscalatedBy: actor.UserID,
			AssignedTo:  positiveOrNil(opts.AssignedTo),
			CreatedAt:   now.Format(timeLayout),
		}
		id, err := r.InsertEscalation(ctx, esc)
		if err != nil {
			return storeErr("insert escalation", err)
		}
		esc.ID = id
		_, err = r.InsertKPIEvent(ctx, domain.KPIEvent{
			ProjectID: opts.ProjectID,
			Type:      domain.KPIEscalation,
			Period:    now.Format(periodLayout),
			CreatedAt: esc.CreatedAt,
		})
		return storeErr("insert kpi event", err)
	})
	if err != nil {
		return domain.Escalation{}, err
	}
	e.record(ctx, actor, "create", "escalations", esc.ID)
	return esc, nil
}

// ListEscalations orders by severity, critical first, then newest.
func (e Engine) ListEscalations(ctx context.Context, actor domain.Actor, projectID int64, status string) ([]domain.Escalation, error) {
	if status != "" {
		if err := oneOf("status", status, domain.EscalationStatuses); err != nil {
			return nil, err
		}
	}
	list, err := e.Repo.ListEscalations(ctx, projectID, status)
	if err != nil {
		return nil, storeErr("list escalations", err)
	}
	e.record(ctx, actor, "list", "escalations", 0)
	return list, nil
}

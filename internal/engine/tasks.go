package engine

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ProjectID   int64
	StageID     *int64
	Title       string
	Description string
	OwnerID     *int64
	DueDate     *string
	Priority    string
	ContractRef string
}

func (e Engine) CreateTask(ctx context.Context, actor domain.Actor, opts TaskCreateOptions) (t domain.Task, err error) {
	ctx, span := e.startSpan(ctx, "CreateTask", attribute.Int64("project.id", opts.ProjectID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return t, err
	}
	if err := positive("project_id", opts.ProjectID); err != nil {
		return t, err
	}
	if err := required("title", opts.Title); err != nil {
		return t, err
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if err := oneOf("priority", opts.Priority, domain.Priorities); err != nil {
		return t, err
	}
	if err := validDate("due_date", opts.DueDate); err != nil {
		return t, err
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return t, lookupErr("project", opts.ProjectID, err)
	}
	if opts.StageID != nil && *opts.StageID > 0 {
		st, err := e.Repo.GetStage(ctx, *opts.StageID)
		if err != nil {
			return t, lookupErr("stage", *opts.StageID, err)
		}
		if st.ProjectID != opts.ProjectID {
			return t, invalid("stage_id", fmt.Sprintf("belongs to project %d", st.ProjectID))
		}
	}
	if err := e.ensureUser(ctx, "owner_id", opts.OwnerID); err != nil {
		return t, err
	}

	now := e.stamp()
	t = domain.Task{
		ProjectID:   opts.ProjectID,
		StageID:     positiveOrNil(opts.StageID),
		Title:       strings.TrimSpace(opts.Title),
		Description: opts.Description,
		OwnerID:     positiveOrNil(opts.OwnerID),
		DueDate:     emptyOrNil(opts.DueDate),
		Priority:    opts.Priority,
		Status:      domain.TaskPending,
		ContractRef: opts.ContractRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.ID, err = e.Repo.InsertTask(ctx, t); err != nil {
		return domain.Task{}, storeErr("insert task", err)
	}
	span.SetAttributes(attribute.Int64("task.id", t.ID))
	e.record(ctx, actor, "create", "tasks", t.ID)
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, actor domain.Actor, id int64) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, lookupErr("task", id, err)
	}
	e.record(ctx, actor, "view", "tasks", id)
	return t, nil
}

type TaskListOptions struct {
	ProjectID int64
	OwnerID   int64
	Status    string
	// Filter is an AIP-160 expression over status, priority, owner_id, stage_id, project_id and due_date.
	Filter string
}

// ListTasks orders by priority rank, then due date with undated tasks last.
func (e Engine) ListTasks(ctx context.Context, actor domain.Actor, opts TaskListOptions) ([]domain.Task, error) {
	if opts.Status != "" {
		if err := oneOf("status", opts.Status, domain.TaskStatuses); err != nil {
			return nil, err
		}
	}
	cond, err := repo.ParseTaskFilter(opts.Filter)
	if err != nil {
		return nil, invalid("filter", err.Error())
	}
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskQuery{ProjectID: opts.ProjectID, OwnerID: opts.OwnerID, Status: opts.Status, Filter: cond})
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	e.record(ctx, actor, "list", "tasks", 0)
	return tasks, nil
}

// TaskUpdateOptions is a manual edit. Nil fields are untouched; a zero OwnerID or
// empty DueDate clears the field.
type TaskUpdateOptions struct {
	Status      *string
	Description *string
	OwnerID     *int64
	DueDate     *string
	Priority    *string
}

func (e Engine) UpdateTask(ctx context.Context, actor domain.Actor, id int64, opts TaskUpdateOptions) (t domain.Task, err error) {
	ctx, span := e.startSpan(ctx, "UpdateTask", attribute.Int64("task.id", id))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return t, err
	}
	upd := repo.TaskUpdate(opts)
	if upd.Empty() {
		return t, invalid("update", "has no fields")
	}
	if opts.Status != nil {
		if err := oneOf("status", *opts.Status, domain.TaskStatuses); err != nil {
			return t, err
		}
	}
	if opts.Priority != nil {
		if err := oneOf("priority", *opts.Priority, domain.Priorities); err != nil {
			return t, err
		}
	}
	if err := validDate("due_date", opts.DueDate); err != nil {
		return t, err
	}
	if err := e.ensureUser(ctx, "owner_id", opts.OwnerID); err != nil {
		return t, err
	}

	err = e.inTx(ctx, "update task", func(r repo.Repo) error {
		current, err := r.GetTask(ctx, id)
		if err != nil {
			return lookupErr("task", id, err)
		}
		if opts.Status != nil {
			if err := ensureTaskTransition(current.Status, *opts.Status, e.config().Policies.Tasks.StrictTransitions); err != nil {
				return err
			}
		}
		if err := r.UpdateTask(ctx, id, upd, e.stamp()); err != nil {
			return writeErr("update task", "task", id, err)
		}
		t, err = r.GetTask(ctx, id)
		return storeErr("get task", err)
	})
	if err != nil {
		return domain.Task{}, err
	}
	e.record(ctx, actor, "update", "tasks", id)
	return t, nil
}

var strictTaskTransitions = map[string][]string{
	domain.TaskPending:    {domain.TaskInProgress, domain.TaskBlocked, domain.TaskCompleted},
	domain.TaskInProgress: {domain.TaskReview, domain.TaskBlocked, domain.TaskCompleted, domain.TaskPending},
	domain.TaskBlocked:    {domain.TaskPending, domain.TaskInProgress},
	domain.TaskReview:     {domain.TaskInProgress, domain.TaskApproved},
	domain.TaskCompleted:  {domain.TaskInProgress},
	domain.TaskApproved:   {domain.TaskInProgress},
}

// ensureTaskTransition gates manual status edits. Without strict mode every valid
// status is reachable from every other.
func ensureTaskTransition(oldStatus, newStatus string, strict bool) error {
	if !strict || oldStatus == newStatus {
		return nil
	}
	if domain.OneOf(newStatus, strictTaskTransitions[oldStatus]) {
		return nil
	}
	return ConflictError{Reason: fmt.Sprintf("invalid task status transition %s -> %s", oldStatus, newStatus)}
}

// ensureUser checks an optional user reference. Zero means unset; negative ids are rejected.
func (e Engine) ensureUser(ctx context.Context, field string, id *int64) error {
	if id == nil || *id == 0 {
		return nil
	}
	if *id < 0 {
		return invalid(field, "must be a positive user id")
	}
	ok, err := e.Repo.UserExists(ctx, *id)
	if err != nil {
		return storeErr("get user", err)
	}
	if !ok {
		return NotFoundError{Kind: "user", ID: *id}
	}
	return nil
}

func positiveOrNil(v *int64) *int64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func emptyOrNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

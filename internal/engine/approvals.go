package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

type ApprovalOpenOptions struct {
	TaskID           int64
	PeerReviewerID   *int64
	SeniorApproverID *int64
}

// OpenApproval creates a two-sided gate on a task and moves the task to review,
// whatever its previous status.
func (e Engine) OpenApproval(ctx context.Context, actor domain.Actor, opts ApprovalOpenOptions) (a domain.Approval, err error) {
	ctx, span := e.startSpan(ctx, "OpenApproval", attribute.Int64("task.id", opts.TaskID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return a, err
	}
	if err := positive("task_id", opts.TaskID); err != nil {
		return a, err
	}
	if err := e.ensureUser(ctx, "peer_reviewer_id", opts.PeerReviewerID); err != nil {
		return a, err
	}
	if err := e.ensureUser(ctx, "senior_approver_id", opts.SeniorApproverID); err != nil {
		return a, err
	}

	now := e.stamp()
	err = e.inTx(ctx, "open approval", func(r repo.Repo) error {
		if _, err := r.GetTask(ctx, opts.TaskID); err != nil {
			return lookupErr("task", opts.TaskID, err)
		}
		if e.config().Policies.Approvals.SingleOpenPerTask {
			n, err := r.CountUnresolvedForTask(ctx, opts.TaskID)
			if err != nil {
				return storeErr("count approvals", err)
			}
			if n > 0 {
				return ConflictError{Reason: fmt.Sprintf("task %d already has an unresolved approval", opts.TaskID)}
			}
		}
		a = domain.Approval{
			TaskID:           opts.TaskID,
			PeerReviewerID:   positiveOrNil(opts.PeerReviewerID),
			SeniorApproverID: positiveOrNil(opts.SeniorApproverID),
			PeerStatus:       domain.DecisionPending,
			SeniorStatus:     domain.DecisionPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		id, err := r.InsertApproval(ctx, a)
		if err != nil {
			return storeErr("insert approval", err)
		}
		a.ID = id
		return storeErr("set task status", r.SetTaskStatus(ctx, opts.TaskID, domain.TaskReview, now))
	})
	if err != nil {
		return domain.Approval{}, err
	}
	span.SetAttributes(attribute.Int64("approval.id", a.ID))
	e.record(ctx, actor, "create", "approvals", a.ID)
	return a, nil
}

type DecisionOptions struct {
	Status string
	Notes  *string
}

func (o DecisionOptions) validate() error {
	return oneOf("status", o.Status, domain.Decisions)
}

// ResolvePeer records the peer decision. It never touches the task; repeating it
// overwrites the previous decision.
func (e Engine) ResolvePeer(ctx context.Context, actor domain.Actor, id int64, opts DecisionOptions) (a domain.Approval, err error) {
	ctx, span := e.startSpan(ctx, "ResolvePeer", attribute.Int64("approval.id", id), attribute.String("decision", opts.Status))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return a, err
	}
	if err := opts.validate(); err != nil {
		return a, err
	}
	actor = e.withRole(ctx, actor)
	err = e.inTx(ctx, "resolve peer", func(r repo.Repo) error {
		current, err := r.GetApproval(ctx, id)
		if err != nil {
			return lookupErr("approval", id, err)
		}
		if err := e.Policy.ResolvePeer(actor, current); err != nil {
			return err
		}
		if err := r.RecordPeerDecision(ctx, id, opts.Status, opts.Notes, e.stamp()); err != nil {
			return writeErr("record peer decision", "approval", id, err)
		}
		a, err = r.GetApproval(ctx, id)
		return storeErr("get approval", err)
	})
	if err != nil {
		return domain.Approval{}, err
	}
	e.record(ctx, actor, "peer_review", "approvals", id)
	return a, nil
}

// ResolveSenior records the senior decision. Approval moves the bound task to approved;
// rejection leaves the task as it is.
func (e Engine) ResolveSenior(ctx context.Context, actor domain.Actor, id int64, opts DecisionOptions) (a domain.Approval, err error) {
	ctx, span := e.startSpan(ctx, "ResolveSenior", attribute.Int64("approval.id", id), attribute.String("decision", opts.Status))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return a, err
	}
	if err := opts.validate(); err != nil {
		return a, err
	}
	actor = e.withRole(ctx, actor)
	err = e.inTx(ctx, "resolve senior", func(r repo.Repo) error {
		current, err := r.GetApproval(ctx, id)
		if err != nil {
			return lookupErr("approval", id, err)
		}
		if err := e.Policy.ResolveSenior(actor, current); err != nil {
			return err
		}
		if e.config().Policies.Approvals.RequirePeerBeforeSenior && current.PeerStatus != domain.DecisionApproved {
			return ConflictError{Reason: fmt.Sprintf("approval %d: peer review is %s, senior decision needs it approved", id, current.PeerStatus)}
		}
		now := e.stamp()
		if err := r.RecordSeniorDecision(ctx, id, opts.Status, opts.Notes, now); err != nil {
			return writeErr("record senior decision", "approval", id, err)
		}
		if opts.Status == domain.DecisionApproved {
			if err := r.SetTaskStatus(ctx, current.TaskID, domain.TaskApproved, now); err != nil {
				return writeErr("set task status", "task", current.TaskID, err)
			}
		}
		a, err = r.GetApproval(ctx, id)
		return storeErr("get approval", err)
	})
	if err != nil {
		return domain.Approval{}, err
	}
	e.record(ctx, actor, "senior_approve", "approvals", id)
	return a, nil
}

func (e Engine) GetApproval(ctx context.Context, actor domain.Actor, id int64) (domain.Approval, error) {
	a, err := e.Repo.GetApproval(ctx, id)
	if err != nil {
		return domain.Approval{}, lookupErr("approval", id, err)
	}
	e.record(ctx, actor, "view", "approvals", id)
	return a, nil
}

// ListApprovalsForTask returns every gate ever opened on the task, newest first.
func (e Engine) ListApprovalsForTask(ctx context.Context, actor domain.Actor, taskID int64) ([]domain.Approval, error) {
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return nil, lookupErr("task", taskID, err)
	}
	list, err := e.Repo.ListApprovalsForTask(ctx, taskID)
	if err != nil {
		return nil, storeErr("list approvals", err)
	}
	e.record(ctx, actor, "list", "approvals", 0)
	return list, nil
}

// ListPendingApprovals returns approvals waiting on userID, or on the actor when userID is zero.
// A senior approver only sees a gate once its peer side is approved.
func (e Engine) ListPendingApprovals(ctx context.Context, actor domain.Actor, userID int64) ([]domain.Approval, error) {
	if userID <= 0 {
		userID = actor.UserID
	}
	if err := positive("user_id", userID); err != nil {
		return nil, err
	}
	list, err := e.Repo.ListPendingFor(ctx, userID)
	if err != nil {
		return nil, storeErr("list pending approvals", err)
	}
	e.record(ctx, actor, "list", "approvals", 0)
	return list, nil
}

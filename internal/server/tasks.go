package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*output[domain.Task], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, actor, input.Body.options())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks by priority then due date",
		Description: "filter takes an AIP-160 expression over status, priority, owner_id, stage_id, project_id and due_date.",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID int64  `query:"project_id"`
		OwnerID   int64  `query:"owner_id"`
		Status    string `query:"status" enum:"pending,in_progress,review,blocked,completed,approved"`
		Filter    string `query:"filter" example:"priority = \"urgent\" AND due_date < \"2026-04-01\""`
	}) (*output[[]domain.Task], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		tasks, err := e.ListTasks(ctx, actor, engine.TaskListOptions{
			ProjectID: input.ProjectID,
			OwnerID:   input.OwnerID,
			Status:    input.Status,
			Filter:    input.Filter,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(tasks)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Task], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.GetTask(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id" minimum:"1"`
		Body UpdateTaskRequest
	}) (*output[domain.Task], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.UpdateTask(ctx, actor, input.ID, input.Body.options())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-approvals",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}/approvals",
		Summary:     "List approvals opened on a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[[]domain.Approval], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		list, err := e.ListApprovalsForTask(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(list)), nil
	})
}

func registerApprovals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "open-approval",
		Method:        http.MethodPost,
		Path:          "/approvals",
		Summary:       "Open an approval and move the task to review",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body OpenApprovalRequest
	}) (*output[domain.Approval], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.OpenApproval(ctx, actor, engine.ApprovalOpenOptions{
			TaskID:           input.Body.TaskID,
			PeerReviewerID:   input.Body.PeerReviewerID,
			SeniorApproverID: input.Body.SeniorApproverID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-pending-approvals",
		Method:      http.MethodGet,
		Path:        "/approvals/pending",
		Summary:     "Approvals waiting on a user",
		Description: "Defaults to the authenticated user. Senior approvers only see approvals whose peer review is approved.",
	}, func(ctx context.Context, input *struct {
		UserID int64 `query:"user_id"`
	}) (*output[[]domain.Approval], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		list, err := e.ListPendingApprovals(ctx, actor, input.UserID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(list)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-approval",
		Method:      http.MethodGet,
		Path:        "/approvals/{id}",
		Summary:     "Get approval",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Approval], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.GetApproval(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(a), nil
	})

	type decisionInput struct {
		ID   int64 `path:"id" minimum:"1"`
		Body DecisionRequest
	}

	huma.Register(api, huma.Operation{
		OperationID: "resolve-peer",
		Method:      http.MethodPatch,
		Path:        "/approvals/{id}/peer",
		Summary:     "Record the peer review decision",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *decisionInput) (*output[domain.Approval], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.ResolvePeer(ctx, actor, input.ID, engine.DecisionOptions{Status: input.Body.Status, Notes: input.Body.Notes})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-senior",
		Method:      http.MethodPatch,
		Path:        "/approvals/{id}/senior",
		Summary:     "Record the senior decision; approval completes the task",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *decisionInput) (*output[domain.Approval], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.ResolveSenior(ctx, actor, input.ID, engine.DecisionOptions{Status: input.Body.Status, Notes: input.Body.Notes})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(a), nil
	})
}

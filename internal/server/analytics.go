package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

func registerRisks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-risk",
		Method:        http.MethodPost,
		Path:          "/risks",
		Summary:       "Create risk",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateRiskRequest
	}) (*output[domain.Risk], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rk, err := e.CreateRisk(ctx, actor, engine.RiskCreateOptions{
			ProjectID:   input.Body.ProjectID,
			Description: input.Body.Description,
			Likelihood:  input.Body.Likelihood,
			Impact:      input.Body.Impact,
			Mitigation:  input.Body.Mitigation,
			OwnerID:     input.Body.OwnerID,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(rk), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-risks",
		Method:      http.MethodGet,
		Path:        "/risks",
		Summary:     "List risks, open first, highest impact first",
	}, func(ctx context.Context, input *struct {
		ProjectID int64 `query:"project_id"`
	}) (*output[[]domain.Risk], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		risks, err := e.ListRisks(ctx, actor, input.ProjectID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(risks)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-risk",
		Method:      http.MethodPatch,
		Path:        "/risks/{id}",
		Summary:     "Update risk status and mitigation",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id" minimum:"1"`
		Body UpdateRiskRequest
	}) (*output[domain.Risk], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rk, err := e.UpdateRisk(ctx, actor, input.ID, engine.RiskUpdateOptions{
			Status:     input.Body.Status,
			Mitigation: input.Body.Mitigation,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(rk), nil
	})
}

func registerEscalations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-escalation",
		Method:        http.MethodPost,
		Path:          "/escalations",
		Summary:       "Raise an escalation",
		Description:   "Also appends an escalation KPI event for the current month.",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateEscalationRequest
	}) (*output[domain.Escalation], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		esc, err := e.CreateEscalation(ctx, actor, engine.EscalationCreateOptions{
			ProjectID:   input.Body.ProjectID,
			TaskID:      input.Body.TaskID,
			Description: input.Body.Description,
			Severity:    input.Body.Severity,
			AssignedTo:  input.Body.AssignedTo,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(esc), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-escalations",
		Method:      http.MethodGet,
		Path:        "/escalations",
		Summary:     "List escalations, most severe first",
	}, func(ctx context.Context, input *struct {
		ProjectID int64  `query:"project_id"`
		Status    string `query:"status" enum:"open,resolved"`
	}) (*output[[]domain.Escalation], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		list, err := e.ListEscalations(ctx, actor, input.ProjectID, input.Status)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(list)), nil
	})
}

func registerAnalytics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "analytics-overview",
		Method:      http.MethodGet,
		Path:        "/analytics/overview",
		Summary:     "KPI counts and workload counters",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Period string `query:"period" example:"2026-03" doc:"YYYY-MM, defaults to the current month"`
	}) (*output[domain.Overview], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		o, err := e.Overview(ctx, actor, input.Period)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		o.KPICounts = nonNilSlice(o.KPICounts)
		return respond(o), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "analytics-project-health",
		Method:      http.MethodGet,
		Path:        "/analytics/project-health",
		Summary:     "Health of active projects, most overdue first",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.ProjectHealth], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rows, err := e.ProjectHealth(ctx, actor)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(rows)), nil
	})
}

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
	"agencydesk/internal/repo"
)

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project with its stages and mandatory files",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest
	}) (*output[engine.ProjectDetail], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateProject(ctx, actor, engine.ProjectCreateOptions{
			ClientID:  input.Body.ClientID,
			LeadID:    input.Body.LeadID,
			Name:      input.Body.Name,
			StartDate: input.Body.StartDate,
			EndDate:   input.Body.EndDate,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ClientID int64  `query:"client_id"`
		LeadID   int64  `query:"lead_id"`
		Status   string `query:"status" enum:"active,completed,on_hold,cancelled"`
	}) (*output[[]domain.Project], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListProjects(ctx, actor, repo.ProjectFilter{
			ClientID: input.ClientID,
			LeadID:   input.LeadID,
			Status:   input.Status,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project with stages, files and risks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[engine.ProjectDetail], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.GetProject(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(d), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update project status",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id" minimum:"1"`
		Body UpdateProjectRequest
	}) (*output[domain.Project], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProjectStatus(ctx, actor, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reprovision-project",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/reprovision",
		Summary:     "Recreate missing stages and mandatory files",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *idPath) (*output[engine.ReprovisionResult], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.ReprovisionProject(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		res.AddedStages = nonNilSlice(res.AddedStages)
		res.AddedFiles = nonNilSlice(res.AddedFiles)
		return respond(res), nil
	})
}

func registerStages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "update-stage",
		Method:      http.MethodPatch,
		Path:        "/stages/{id}",
		Summary:     "Update stage status and due date",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id" minimum:"1"`
		Body UpdateStageRequest
	}) (*output[domain.Stage], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		st, err := e.UpdateStage(ctx, actor, input.ID, engine.StageUpdateOptions{
			Status:  input.Body.Status,
			DueDate: input.Body.DueDate,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(st), nil
	})
}

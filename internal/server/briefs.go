package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

func registerBriefs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-brief",
		Method:        http.MethodPost,
		Path:          "/briefs",
		Summary:       "Create project brief (draft)",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateBriefRequest
	}) (*output[domain.Brief], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.CreateBrief(ctx, actor, input.Body.options())
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(b), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project-brief",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/brief",
		Summary:     "Get project brief",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Brief], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.GetProjectBrief(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(b), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sign-off-brief",
		Method:      http.MethodPatch,
		Path:        "/briefs/{id}/sign-off",
		Summary:     "Record client sign-off and approve the brief",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id" minimum:"1"`
		Body SignOffBriefRequest
	}) (*output[domain.Brief], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.SignOffBrief(ctx, actor, input.ID, input.Body.ClientSignOff)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(b), nil
	})
}

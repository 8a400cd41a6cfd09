package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

type idPath struct {
	ID int64 `path:"id" minimum:"1"`
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*output[domain.User], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.Me(ctx, actor)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(u), nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest
	}) (*output[domain.User], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.CreateUser(ctx, actor, engine.UserCreateOptions{
			Email: input.Body.Email,
			Name:  input.Body.Name,
			Role:  input.Body.Role,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.User], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		users, err := e.ListUsers(ctx, actor)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(users)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.User], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.GetUser(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(u), nil
	})
}

func registerClients(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-client",
		Method:        http.MethodPost,
		Path:          "/clients",
		Summary:       "Create client",
		DefaultStatus: http.StatusCreated,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *struct {
		Body CreateClientRequest
	}) (*output[domain.Client], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateClient(ctx, actor, engine.ClientCreateOptions{
			Name:   input.Body.Name,
			Sector: input.Body.Sector,
			Status: input.Body.Status,
		})
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-clients",
		Method:      http.MethodGet,
		Path:        "/clients",
		Summary:     "List clients",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.Client], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		clients, err := e.ListClients(ctx, actor)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(nonNilSlice(clients)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-client",
		Method:      http.MethodGet,
		Path:        "/clients/{id}",
		Summary:     "Get client",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Client], error) {
		actor, authErr := actorFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.GetClient(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(ctx, err)
		}
		return respond(c), nil
	})
}

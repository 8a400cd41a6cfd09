package engine

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

type UserCreateOptions struct {
	Email string
	Name  string
	Role  string
}

// CreateUser does not require an acting user so the first account can be bootstrapped.
func (e Engine) CreateUser(ctx context.Context, actor domain.Actor, opts UserCreateOptions) (u domain.User, err error) {
	ctx, span := e.startSpan(ctx, "CreateUser")
	defer func() { endSpan(span, err) }()

	opts.Email = strings.ToLower(strings.TrimSpace(opts.Email))
	opts.Name = strings.TrimSpace(opts.Name)
	if err := required("email", opts.Email); err != nil {
		return u, err
	}
	if !strings.Contains(opts.Email, "@") {
		return u, invalid("email", "must be an email address")
	}
	if err := required("name", opts.Name); err != nil {
		return u, err
	}
	if opts.Role == "" {
		opts.Role = "specialist"
	}
	if err := oneOf("role", opts.Role, domain.UserRoles); err != nil {
		return u, err
	}
	if _, err := e.Repo.GetUserByEmail(ctx, opts.Email); err == nil {
		return u, ConflictError{Reason: "user with email " + opts.Email + " already exists"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return u, storeErr("get user", err)
	}

	u = domain.User{Email: opts.Email, Name: opts.Name, Role: opts.Role, CreatedAt: e.stamp()}
	u.ID, err = e.Repo.InsertUser(ctx, u)
	if err != nil {
		return domain.User{}, storeErr("insert user", err)
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))
	e.record(ctx, actor, "create", "users", u.ID)
	return u, nil
}

func (e Engine) GetUser(ctx context.Context, actor domain.Actor, id int64) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, lookupErr("user", id, err)
	}
	e.record(ctx, actor, "view", "users", id)
	return u, nil
}

// Me returns the acting user.
func (e Engine) Me(ctx context.Context, actor domain.Actor) (domain.User, error) {
	if err := requireActor(actor); err != nil {
		return domain.User{}, err
	}
	u, err := e.Repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return domain.User{}, lookupErr("user", actor.UserID, err)
	}
	return u, nil
}

func (e Engine) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	users, err := e.Repo.ListUsers(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	e.record(ctx, actor, "list", "users", 0)
	return users, nil
}

// ---- clients ----

type ClientCreateOptions struct {
	Name   string
	Sector string
	Status string
}

func (e Engine) CreateClient(ctx context.Context, actor domain.Actor, opts ClientCreateOptions) (c domain.Client, err error) {
	ctx, span := e.startSpan(ctx, "CreateClient")
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return c, err
	}
	if err := required("name", opts.Name); err != nil {
		return c, err
	}
	if opts.Status == "" {
		opts.Status = "active"
	}
	if err := oneOf("status", opts.Status, domain.ClientStatuses); err != nil {
		return c, err
	}
	now := e.stamp()
	c = domain.Client{Name: strings.TrimSpace(opts.Name), Sector: strings.TrimSpace(opts.Sector), Status: opts.Status, CreatedAt: now, UpdatedAt: now}
	c.ID, err = e.Repo.InsertClient(ctx, c)
	if err != nil {
		return domain.Client{}, storeErr("insert client", err)
	}
	span.SetAttributes(attribute.Int64("client.id", c.ID))
	e.record(ctx, actor, "create", "clients", c.ID)
	return c, nil
}

func (e Engine) GetClient(ctx context.Context, actor domain.Actor, id int64) (domain.Client, error) {
	c, err := e.Repo.GetClient(ctx, id)
	if err != nil {
		return domain.Client{}, lookupErr("client", id, err)
	}
	e.record(ctx, actor, "view", "clients", id)
	return c, nil
}

func (e Engine) ListClients(ctx context.Context, actor domain.Actor) ([]domain.Client, error) {
	clients, err := e.Repo.ListClients(ctx)
	if err != nil {
		return nil, storeErr("list clients", err)
	}
	e.record(ctx, actor, "list", "clients", 0)
	return clients, nil
}

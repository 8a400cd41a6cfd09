package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

type BriefCreateOptions struct {
	ProjectID         int64
	Objectives        string
	Audience          string
	Tone              string
	Channels          []string
	Timeline          string
	ApprovalsRequired []string
}

// CreateBrief stores the project's brief as a draft. A project holds one brief.
func (e Engine) CreateBrief(ctx context.Context, actor domain.Actor, opts BriefCreateOptions) (b domain.Brief, err error) {
	ctx, span := e.startSpan(ctx, "CreateBrief", attribute.Int64("project.id", opts.ProjectID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return b, err
	}
	if err := positive("project_id", opts.ProjectID); err != nil {
		return b, err
	}
	if err := required("objectives", opts.Objectives); err != nil {
		return b, err
	}

	now := e.stamp()
	err = e.inTx(ctx, "create brief", func(r repo.Repo) error {
		if _, err := r.GetProject(ctx, opts.ProjectID); err != nil {
			return lookupErr("project", opts.ProjectID, err)
		}
		existing, err := r.GetBriefForProject(ctx, opts.ProjectID)
		switch {
		case err == nil:
			return ConflictError{Reason: fmt.Sprintf("project %d already has brief %d", opts.ProjectID, existing.ID)}
		case !errors.Is(err, repo.ErrNotFound):
			return storeErr("get brief", err)
		}
		b = domain.Brief{
			ProjectID:         opts.ProjectID,
			Objectives:        strings.TrimSpace(opts.Objectives),
			Audience:          opts.Audience,
			Tone:              opts.Tone,
			Channels:          compactList(opts.Channels),
			Timeline:          opts.Timeline,
			ApprovalsRequired: compactList(opts.ApprovalsRequired),
			Status:            domain.BriefDraft,
			CreatedBy:         actor.UserID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		b.ID, err = r.InsertBrief(ctx, b)
		return storeErr("insert brief", err)
	})
	if err != nil {
		return domain.Brief{}, err
	}
	span.SetAttributes(attribute.Int64("brief.id", b.ID))
	e.record(ctx, actor, "create", "briefs", b.ID)
	return b, nil
}

// GetProjectBrief returns the brief of a project.
func (e Engine) GetProjectBrief(ctx context.Context, actor domain.Actor, projectID int64) (domain.Brief, error) {
	b, err := e.Repo.GetBriefForProject(ctx, projectID)
	if err != nil {
		return domain.Brief{}, lookupErr("brief for project", projectID, err)
	}
	e.record(ctx, actor, "view", "briefs", b.ID)
	return b, nil
}

// SignOffBrief records who signed the brief off for the client and approves it.
// A brief is signed off once.
func (e Engine) SignOffBrief(ctx context.Context, actor domain.Actor, id int64, signedBy string) (b domain.Brief, err error) {
	ctx, span := e.startSpan(ctx, "SignOffBrief", attribute.Int64("brief.id", id))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return b, err
	}
	if err := required("client_sign_off", signedBy); err != nil {
		return b, err
	}
	err = e.inTx(ctx, "sign off brief", func(r repo.Repo) error {
		current, err := r.GetBrief(ctx, id)
		if err != nil {
			return lookupErr("brief", id, err)
		}
		if current.Status != domain.BriefDraft {
			return ConflictError{Reason: fmt.Sprintf("brief %d is already %s", id, current.Status)}
		}
		if err := r.SignOffBrief(ctx, id, strings.TrimSpace(signedBy), e.stamp()); err != nil {
			return writeErr("sign off brief", "brief", id, err)
		}
		b, err = r.GetBrief(ctx, id)
		return storeErr("get brief", err)
	})
	if err != nil {
		return domain.Brief{}, err
	}
	e.record(ctx, actor, "sign_off", "briefs", id)
	return b, nil
}

// compactList trims entries and drops empty ones.
func compactList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

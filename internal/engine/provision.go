package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

type ProjectCreateOptions struct {
	ClientID  int64
	LeadID    int64
	Name      string
	StartDate *string
	EndDate   *string
}

// ProjectDetail is a project with everything provisioned under it.
type ProjectDetail struct {
	Project domain.Project `json:"project"`
	Stages  []domain.Stage `json:"stages"`
	Files   []domain.File  `json:"files"`
	Risks   []domain.Risk  `json:"risks,omitempty"`
}

// ReprovisionResult lists the stage types and file kinds that had to be added.
type ReprovisionResult struct {
	ProjectID   int64    `json:"project_id"`
	AddedStages []string `json:"added_stages"`
	AddedFiles  []string `json:"added_files"`
}

func (o ProjectCreateOptions) validate() error {
	if err := positive("client_id", o.ClientID); err != nil {
		return err
	}
	if err := positive("lead_id", o.LeadID); err != nil {
		return err
	}
	if err := required("name", o.Name); err != nil {
		return err
	}
	if err := validDate("start_date", o.StartDate); err != nil {
		return err
	}
	if err := validDate("end_date", o.EndDate); err != nil {
		return err
	}
	if o.StartDate != nil && o.EndDate != nil && *o.StartDate != "" && *o.EndDate != "" && *o.EndDate < *o.StartDate {
		return invalid("end_date", "must not be before start_date")
	}
	return nil
}

// CreateProject inserts the project with its six stages and five mandatory files in one transaction.
func (e Engine) CreateProject(ctx context.Context, actor domain.Actor, opts ProjectCreateOptions) (d ProjectDetail, err error) {
	ctx, span := e.startSpan(ctx, "CreateProject",
		attribute.Int64("client.id", opts.ClientID), attribute.Int64("lead.id", opts.LeadID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return d, err
	}
	if err := opts.validate(); err != nil {
		return d, err
	}

	now := e.stamp()
	err = e.inTx(ctx, "create project", func(r repo.Repo) error {
		if _, err := r.GetClient(ctx, opts.ClientID); err != nil {
			return lookupErr("client", opts.ClientID, err)
		}
		if _, err := r.GetUser(ctx, opts.LeadID); err != nil {
			return lookupErr("user", opts.LeadID, err)
		}
		p := domain.Project{
			ClientID:  opts.ClientID,
			LeadID:    opts.LeadID,
			Name:      opts.Name,
			StartDate: opts.StartDate,
			EndDate:   opts.EndDate,
			Status:    domain.ProjectActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		id, err := r.InsertProject(ctx, p)
		if err != nil {
			return storeErr("insert project", err)
		}
		p.ID = id
		if _, _, err := provision(ctx, r, id, actor.UserID, now); err != nil {
			return err
		}
		d, err = loadDetail(ctx, r, p, false)
		return err
	})
	if err != nil {
		return ProjectDetail{}, err
	}
	span.SetAttributes(attribute.Int64("project.id", d.Project.ID))
	e.record(ctx, actor, "create", "projects", d.Project.ID)
	return d, nil
}

// provision adds whichever canonical stages and files the project lacks, in canonical order.
func provision(ctx context.Context, r repo.Repo, projectID, createdBy int64, now string) (stages, files []string, err error) {
	stages, files = []string{}, []string{}
	for _, t := range domain.StageTypes {
		added, err := r.EnsureStage(ctx, domain.Stage{ProjectID: projectID, Type: t, Status: domain.StagePending, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return nil, nil, storeErr("insert stage", err)
		}
		if added {
			stages = append(stages, t)
		}
	}
	for _, f := range domain.MandatoryFiles {
		added, err := r.EnsureFile(ctx, domain.File{ProjectID: projectID, Kind: f.Kind, Name: f.Name, CreatedBy: createdBy, CreatedAt: now})
		if err != nil {
			return nil, nil, storeErr("insert file", err)
		}
		if added {
			files = append(files, f.Kind)
		}
	}
	return stages, files, nil
}

func loadDetail(ctx context.Context, r repo.Repo, p domain.Project, withRisks bool) (ProjectDetail, error) {
	d := ProjectDetail{Project: p}
	var err error
	if d.Stages, err = r.ListStages(ctx, p.ID); err != nil {
		return d, storeErr("list stages", err)
	}
	if d.Files, err = r.ListFiles(ctx, p.ID); err != nil {
		return d, storeErr("list files", err)
	}
	if withRisks {
		if d.Risks, err = r.ListRisks(ctx, p.ID); err != nil {
			return d, storeErr("list risks", err)
		}
	}
	return d, nil
}

// ReprovisionProject fills in any stages or files missing from a project. Running it on a
// complete project changes nothing.
func (e Engine) ReprovisionProject(ctx context.Context, actor domain.Actor, projectID int64) (res ReprovisionResult, err error) {
	ctx, span := e.startSpan(ctx, "ReprovisionProject", attribute.Int64("project.id", projectID))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return res, err
	}
	res.ProjectID = projectID
	err = e.inTx(ctx, "reprovision project", func(r repo.Repo) error {
		if _, err := r.GetProject(ctx, projectID); err != nil {
			return lookupErr("project", projectID, err)
		}
		var err error
		res.AddedStages, res.AddedFiles, err = provision(ctx, r, projectID, actor.UserID, e.stamp())
		return err
	})
	if err != nil {
		return ReprovisionResult{}, err
	}
	if len(res.AddedStages)+len(res.AddedFiles) > 0 {
		e.logger().Info("project reprovisioned", "project_id", projectID,
			"added_stages", len(res.AddedStages), "added_files", len(res.AddedFiles))
	}
	e.record(ctx, actor, "reprovision", "projects", projectID)
	return res, nil
}

func (e Engine) GetProject(ctx context.Context, actor domain.Actor, id int64) (ProjectDetail, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return ProjectDetail{}, lookupErr("project", id, err)
	}
	d, err := loadDetail(ctx, e.Repo, p, true)
	if err != nil {
		return ProjectDetail{}, err
	}
	e.record(ctx, actor, "view", "projects", id)
	return d, nil
}

func (e Engine) ListProjects(ctx context.Context, actor domain.Actor, f repo.ProjectFilter) ([]domain.Project, error) {
	if f.Status != "" {
		if err := oneOf("status", f.Status, domain.ProjectStatuses); err != nil {
			return nil, err
		}
	}
	projects, err := e.Repo.ListProjects(ctx, f)
	if err != nil {
		return nil, storeErr("list projects", err)
	}
	e.record(ctx, actor, "list", "projects", 0)
	return projects, nil
}

func (e Engine) UpdateProjectStatus(ctx context.Context, actor domain.Actor, id int64, status string) (p domain.Project, err error) {
	ctx, span := e.startSpan(ctx, "UpdateProjectStatus", attribute.Int64("project.id", id))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return p, err
	}
	if err := oneOf("status", status, domain.ProjectStatuses); err != nil {
		return p, err
	}
	if err := e.Repo.UpdateProjectStatus(ctx, id, status, e.stamp()); err != nil {
		return p, writeErr("update project", "project", id, err)
	}
	if p, err = e.Repo.GetProject(ctx, id); err != nil {
		return p, lookupErr("project", id, err)
	}
	e.record(ctx, actor, "update", "projects", id)
	return p, nil
}

type StageUpdateOptions struct {
	Status  string
	DueDate *string
}

// UpdateStage sets the stage status and replaces its due date; a nil DueDate clears it.
func (e Engine) UpdateStage(ctx context.Context, actor domain.Actor, id int64, opts StageUpdateOptions) (st domain.Stage, err error) {
	ctx, span := e.startSpan(ctx, "UpdateStage", attribute.Int64("stage.id", id))
	defer func() { endSpan(span, err) }()

	if err := requireActor(actor); err != nil {
		return st, err
	}
	if err := oneOf("status", opts.Status, domain.StageStatuses); err != nil {
		return st, err
	}
	if err := validDate("due_date", opts.DueDate); err != nil {
		return st, err
	}
	if err := e.Repo.UpdateStage(ctx, id, opts.Status, opts.DueDate, e.stamp()); err != nil {
		return st, writeErr("update stage", "stage", id, err)
	}
	if st, err = e.Repo.GetStage(ctx, id); err != nil {
		return st, lookupErr("stage", id, err)
	}
	e.record(ctx, actor, "update", "stages", id)
	return st, nil
}

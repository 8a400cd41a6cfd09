package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"agencydesk/internal/domain"
)

const projectColumns = `id,client_id,lead_id,name,start_date,end_date,status,created_at,updated_at`

func scanProject(s interface{ Scan(...any) error }) (domain.Project, error) {
	var p domain.Project
	var start, end sql.NullString
	err := s.Scan(&p.ID, &p.ClientID, &p.LeadID, &p.Name, &start, &end, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.StartDate = strPtr(start)
	p.EndDate = strPtr(end)
	return p, err
}

func (r Repo) InsertProject(ctx context.Context, p domain.Project) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO projects(client_id,lead_id,name,start_date,end_date,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		p.ClientID, p.LeadID, p.Name, nullableStr(p.StartDate), nullableStr(p.EndDate), p.Status, p.CreatedAt, p.UpdatedAt))
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) ProjectExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "projects", id)
}

// ProjectFilter narrows ListProjects; zero fields are ignored.
type ProjectFilter struct {
	ClientID int64
	LeadID   int64
	Status   string
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilter) ([]domain.Project, error) {
	var (
		clauses []string
		args    []any
	)
	if f.ClientID > 0 {
		clauses = append(clauses, "client_id=?")
		args = append(args, f.ClientID)
	}
	if f.LeadID > 0 {
		clauses = append(clauses, "lead_id=?")
		args = append(args, f.LeadID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProjectStatus(ctx context.Context, id int64, status, now string) error {
	return mustAffect(r.DB.ExecContext(ctx, `UPDATE projects SET status=?, updated_at=? WHERE id=?`, status, now, id))
}

// ---- stages ----

const stageColumns = `id,project_id,type,status,due_date,created_at,updated_at`

func scanStage(s interface{ Scan(...any) error }) (domain.Stage, error) {
	var st domain.Stage
	var due sql.NullString
	err := s.Scan(&st.ID, &st.ProjectID, &st.Type, &st.Status, &due, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return st, ErrNotFound
	}
	st.DueDate = strPtr(due)
	return st, err
}

// EnsureStage inserts the stage unless one of the same type exists. It reports whether a row was added.
func (r Repo) EnsureStage(ctx context.Context, st domain.Stage) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO stages(project_id,type,status,due_date,created_at,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(project_id,type) DO NOTHING`,
		st.ProjectID, st.Type, st.Status, nullableStr(st.DueDate), st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) GetStage(ctx context.Context, id int64) (domain.Stage, error) {
	return scanStage(r.DB.QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE id=?`, id))
}

// ListStages returns a project's stages in canonical order.
func (r Repo) ListStages(ctx context.Context, projectID int64) ([]domain.Stage, error) {
	var order strings.Builder
	order.WriteString("CASE type")
	args := []any{projectID}
	for i, t := range domain.StageTypes {
		order.WriteString(" WHEN ? THEN " + fmt.Sprint(i))
		args = append(args, t)
	}
	order.WriteString(fmt.Sprintf(" ELSE %d END", len(domain.StageTypes)))
	rows, err := r.DB.QueryContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE project_id=? ORDER BY `+order.String()+`, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Stage{}
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func (r Repo) UpdateStage(ctx context.Context, id int64, status string, dueDate *string, now string) error {
	return mustAffect(r.DB.ExecContext(ctx, `UPDATE stages SET status=?, due_date=?, updated_at=? WHERE id=?`,
		status, nullableStr(dueDate), now, id))
}

// ---- files ----

// EnsureFile inserts the file unless one of the same kind exists. It reports whether a row was added.
func (r Repo) EnsureFile(ctx context.Context, f domain.File) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO files(project_id,kind,name,created_by,created_at,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(project_id,kind) DO NOTHING`,
		f.ProjectID, f.Kind, f.Name, f.CreatedBy, f.CreatedAt, f.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) ListFiles(ctx context.Context, projectID int64) ([]domain.File, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,kind,name,created_by,created_at FROM files WHERE project_id=? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.File{}
	for rows.Next() {
		var f domain.File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Kind, &f.Name, &f.CreatedBy, &f.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

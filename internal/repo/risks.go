package repo

import (
	"context"
	"database/sql"
	"strings"

	"agencydesk/internal/domain"
)

const riskColumns = `id,project_id,description,likelihood,impact,COALESCE(mitigation,''),owner_id,status,created_at,updated_at`

func scanRisk(s interface{ Scan(...any) error }) (domain.Risk, error) {
	var rk domain.Risk
	var owner sql.NullInt64
	err := s.Scan(&rk.ID, &rk.ProjectID, &rk.Description, &rk.Likelihood, &rk.Impact, &rk.Mitigation, &owner, &rk.Status, &rk.CreatedAt, &rk.UpdatedAt)
	if err == sql.ErrNoRows {
		return rk, ErrNotFound
	}
	rk.OwnerID = intPtr(owner)
	return rk, err
}

func (r Repo) InsertRisk(ctx context.Context, rk domain.Risk) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO risks(project_id,description,likelihood,impact,mitigation,owner_id,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		rk.ProjectID, rk.Description, rk.Likelihood, rk.Impact, nullable(rk.Mitigation), nullableInt(rk.OwnerID), rk.Status, rk.CreatedAt, rk.UpdatedAt))
}

func (r Repo) GetRisk(ctx context.Context, id int64) (domain.Risk, error) {
	return scanRisk(r.DB.QueryRowContext(ctx, `SELECT `+riskColumns+` FROM risks WHERE id=?`, id))
}

// ListRisks returns open risks first, then mitigated, then closed; high impact first within each.
func (r Repo) ListRisks(ctx context.Context, projectID int64) ([]domain.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks`
	var args []any
	if projectID > 0 {
		query += ` WHERE project_id=?`
		args = append(args, projectID)
	}
	query += ` ORDER BY CASE status WHEN 'open' THEN 1 WHEN 'mitigated' THEN 2 ELSE 3 END,
CASE impact WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Risk{}
	for rows.Next() {
		rk, err := scanRisk(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rk)
	}
	return res, rows.Err()
}

// UpdateRisk sets the status; mitigation is only replaced when non-nil.
func (r Repo) UpdateRisk(ctx context.Context, id int64, status string, mitigation *string, now string) error {
	if mitigation == nil {
		return mustAffect(r.DB.ExecContext(ctx, `UPDATE risks SET status=?, updated_at=? WHERE id=?`, status, now, id))
	}
	return mustAffect(r.DB.ExecContext(ctx, `UPDATE risks SET status=?, mitigation=?, updated_at=? WHERE id=?`,
		status, nullableStr(mitigation), now, id))
}

// ---- escalations ----

const escalationColumns = `id,project_id,task_id,description,severity,status,escalated_by,assigned_to,created_at`

func scanEscalation(s interface{ Scan(...any) error }) (domain.Escalation, error) {
	var e domain.Escalation
	var task, assignee sql.NullInt64
	err := s.Scan(&e.ID, &e.ProjectID, &task, &e.Description, &e.Severity, &e.Status, &e.EscalatedBy, &assignee, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	e.TaskID = intPtr(task)
	e.AssignedTo = intPtr(assignee)
	return e, err
}

func (r Repo) InsertEscalation(ctx context.Context, e domain.Escalation) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO escalations(project_id,task_id,description,severity,status,escalated_by,assigned_to,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ProjectID, nullableInt(e.TaskID), e.Description, e.Severity, e.Status, e.EscalatedBy, nullableInt(e.AssignedTo), e.CreatedAt, e.CreatedAt))
}

func (r Repo) GetEscalation(ctx context.Context, id int64) (domain.Escalation, error) {
	return scanEscalation(r.DB.QueryRowContext(ctx, `SELECT `+escalationColumns+` FROM escalations WHERE id=?`, id))
}

// ListEscalations orders critical first, newest first within a severity.
func (r Repo) ListEscalations(ctx context.Context, projectID int64, status string) ([]domain.Escalation, error) {
	var (
		clauses []string
		args    []any
	)
	if projectID > 0 {
		clauses = append(clauses, "project_id=?")
		args = append(args, projectID)
	}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	query := `SELECT ` + escalationColumns + ` FROM escalations`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY CASE severity WHEN 'critical' THEN 1 WHEN 'high' THEN 2 WHEN 'medium' THEN 3 ELSE 4 END, created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Escalation{}
	for rows.Next() {
		e, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) InsertKPIEvent(ctx context.Context, ev domain.KPIEvent) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO kpi_events(project_id,type,period,created_at) VALUES (?,?,?,?)`,
		ev.ProjectID, ev.Type, ev.Period, ev.CreatedAt))
}

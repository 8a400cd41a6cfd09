package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"agencydesk/internal/domain"
)

const taskColumns = `id,project_id,stage_id,title,COALESCE(description,''),owner_id,due_date,priority,status,COALESCE(contract_ref,''),created_at,updated_at`

// taskOrder ranks by priority, then due date ascending with undated tasks last.
const taskOrder = ` ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END, due_date IS NULL, due_date ASC, id`

func scanTask(s interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var stage, owner sql.NullInt64
	var due sql.NullString
	err := s.Scan(&t.ID, &t.ProjectID, &stage, &t.Title, &t.Description, &owner, &due, &t.Priority, &t.Status, &t.ContractRef, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	t.StageID = intPtr(stage)
	t.OwnerID = intPtr(owner)
	t.DueDate = strPtr(due)
	return t, err
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO tasks(project_id,stage_id,title,description,owner_id,due_date,priority,status,contract_ref,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ProjectID, nullableInt(t.StageID), t.Title, nullable(t.Description), nullableInt(t.OwnerID), nullableStr(t.DueDate),
		t.Priority, t.Status, nullable(t.ContractRef), t.CreatedAt, t.UpdatedAt))
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

// TaskQuery narrows ListTasks; zero fields are ignored.
type TaskQuery struct {
	ProjectID int64
	OwnerID   int64
	Status    string
	Filter    SQLCondition
}

func (r Repo) ListTasks(ctx context.Context, q TaskQuery) ([]domain.Task, error) {
	var (
		clauses []string
		args    []any
	)
	if q.ProjectID > 0 {
		clauses = append(clauses, "project_id=?")
		args = append(args, q.ProjectID)
	}
	if q.OwnerID > 0 {
		clauses = append(clauses, "owner_id=?")
		args = append(args, q.OwnerID)
	}
	if q.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, q.Status)
	}
	if !q.Filter.Empty() {
		clauses = append(clauses, q.Filter.Clause)
		args = append(args, q.Filter.Params...)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, query+taskOrder, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// TaskUpdate carries the fields a manual edit may change. Nil fields are left alone;
// a zero OwnerID or empty DueDate clears the column.
type TaskUpdate struct {
	Status      *string
	Description *string
	OwnerID     *int64
	DueDate     *string
	Priority    *string
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Status == nil && u.Description == nil && u.OwnerID == nil && u.DueDate == nil && u.Priority == nil
}

func (r Repo) UpdateTask(ctx context.Context, id int64, u TaskUpdate, now string) error {
	var (
		fields []string
		args   []any
	)
	if u.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *u.Status)
	}
	if u.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, nullable(*u.Description))
	}
	if u.OwnerID != nil {
		fields = append(fields, "owner_id=?")
		args = append(args, nullableInt(u.OwnerID))
	}
	if u.DueDate != nil {
		fields = append(fields, "due_date=?")
		args = append(args, nullableStr(u.DueDate))
	}
	if u.Priority != nil {
		fields = append(fields, "priority=?")
		args = append(args, *u.Priority)
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, id)
	return mustAffect(r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE tasks SET %s WHERE id=?`, strings.Join(fields, ",")), args...))
}

// SetTaskStatus is the write path for lifecycle-driven transitions.
func (r Repo) SetTaskStatus(ctx context.Context, id int64, status, now string) error {
	return mustAffect(r.DB.ExecContext(ctx, `UPDATE tasks SET status=?, updated_at=? WHERE id=?`, status, now, id))
}

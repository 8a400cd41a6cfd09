package repo

import (
	"context"

	"agencydesk/internal/domain"
)

// Dates are compared as YYYY-MM-DD strings; callers supply today so results do not
// depend on the database clock.

func (r Repo) KPICounts(ctx context.Context, period string) ([]domain.KPICount, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT type, COUNT(*) FROM kpi_events WHERE period=? GROUP BY type ORDER BY type`, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.KPICount{}
	for rows.Next() {
		var c domain.KPICount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// CountOverdueTasks counts open tasks due strictly before today.
func (r Repo) CountOverdueTasks(ctx context.Context, today string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tasks WHERE due_date < ? AND status NOT IN ('completed','approved')`, today)
}

// CountTasksDueBetween counts open tasks due within [from, to].
func (r Repo) CountTasksDueBetween(ctx context.Context, from, to string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM tasks WHERE due_date BETWEEN ? AND ? AND status NOT IN ('completed','approved')`, from, to)
}

func (r Repo) CountOpenRisks(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM risks WHERE status='open'`)
}

// CountPendingApprovals counts approvals with either side still pending.
func (r Repo) CountPendingApprovals(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM approvals WHERE peer_status='pending' OR senior_status='pending'`)
}

// ProjectHealthCounts returns raw per-project counts for active projects, worst first.
// Health is left empty for the caller to classify.
func (r Repo) ProjectHealthCounts(ctx context.Context, today string) ([]domain.ProjectHealth, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT p.id, p.name, p.status,
       COUNT(DISTINCT t.id),
       COUNT(DISTINCT CASE WHEN t.status = 'completed' THEN t.id END),
       COUNT(DISTINCT CASE WHEN t.due_date < ? AND t.status NOT IN ('completed','approved') THEN t.id END) AS overdue,
       COUNT(DISTINCT rk.id) AS risks
FROM projects p
LEFT JOIN tasks t ON t.project_id = p.id
LEFT JOIN risks rk ON rk.project_id = p.id AND rk.status = 'open'
WHERE p.status = 'active'
GROUP BY p.id
ORDER BY overdue DESC, risks DESC, p.id`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ProjectHealth{}
	for rows.Next() {
		var h domain.ProjectHealth
		if err := rows.Scan(&h.ProjectID, &h.Name, &h.Status, &h.TotalTasks, &h.CompletedTasks, &h.OverdueTasks, &h.OpenRisks); err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}

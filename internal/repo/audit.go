package repo

import (
	"context"
	"database/sql"

	"agencydesk/internal/domain"
)

func (r Repo) InsertAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO audit_logs(user_id,action,resource_type,resource_id,request_id,created_at) VALUES (?,?,?,?,?,?)`,
		e.UserID, e.Action, e.ResourceType, nullableInt(e.ResourceID), nullable(e.RequestID), e.CreatedAt)
	return err
}

// ListAuditEntries returns the newest entries first; limit <= 0 means no limit.
func (r Repo) ListAuditEntries(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := `SELECT id,user_id,action,resource_type,resource_id,COALESCE(request_id,''),created_at FROM audit_logs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var rid sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &rid, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ResourceID = intPtr(rid)
		res = append(res, e)
	}
	return res, rows.Err()
}

package repo

import (
	"context"
	"database/sql"

	"agencydesk/internal/domain"
)

const approvalColumns = `id,task_id,peer_reviewer_id,senior_approver_id,peer_status,senior_status,peer_notes,senior_notes,peer_reviewed_at,senior_approved_at,created_at,updated_at`

func scanApproval(s interface{ Scan(...any) error }) (domain.Approval, error) {
	var a domain.Approval
	var peer, senior sql.NullInt64
	var peerNotes, seniorNotes, peerAt, seniorAt sql.NullString
	err := s.Scan(&a.ID, &a.TaskID, &peer, &senior, &a.PeerStatus, &a.SeniorStatus,
		&peerNotes, &seniorNotes, &peerAt, &seniorAt, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	a.PeerReviewerID = intPtr(peer)
	a.SeniorApproverID = intPtr(senior)
	a.PeerNotes = strPtr(peerNotes)
	a.SeniorNotes = strPtr(seniorNotes)
	a.PeerReviewedAt = strPtr(peerAt)
	a.SeniorApprovedAt = strPtr(seniorAt)
	return a, err
}

func (r Repo) listApprovals(ctx context.Context, query string, args ...any) ([]domain.Approval, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Approval{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) InsertApproval(ctx context.Context, a domain.Approval) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO approvals(task_id,peer_reviewer_id,senior_approver_id,peer_status,senior_status,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		a.TaskID, nullableInt(a.PeerReviewerID), nullableInt(a.SeniorApproverID), a.PeerStatus, a.SeniorStatus, a.CreatedAt, a.UpdatedAt))
}

func (r Repo) GetApproval(ctx context.Context, id int64) (domain.Approval, error) {
	return scanApproval(r.DB.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approvals WHERE id=?`, id))
}

func (r Repo) ListApprovalsForTask(ctx context.Context, taskID int64) ([]domain.Approval, error) {
	return r.listApprovals(ctx, `SELECT `+approvalColumns+` FROM approvals WHERE task_id=? ORDER BY created_at DESC, id DESC`, taskID)
}

// ListPendingFor returns approvals awaiting userID. A senior side only waits on the
// user once the peer side is approved.
func (r Repo) ListPendingFor(ctx context.Context, userID int64) ([]domain.Approval, error) {
	return r.listApprovals(ctx, `SELECT `+approvalColumns+` FROM approvals
WHERE (peer_reviewer_id=? AND peer_status='pending')
   OR (senior_approver_id=? AND senior_status='pending' AND peer_status='approved')
ORDER BY created_at DESC, id DESC`, userID, userID)
}

// CountUnresolvedForTask counts approvals on taskID that can still move the task.
func (r Repo) CountUnresolvedForTask(ctx context.Context, taskID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM approvals WHERE task_id=? AND senior_status='pending' AND peer_status!='rejected'`, taskID).Scan(&n)
	return n, err
}

func (r Repo) RecordPeerDecision(ctx context.Context, id int64, status string, notes *string, at string) error {
	return mustAffect(r.DB.ExecContext(ctx, `UPDATE approvals SET peer_status=?, peer_notes=?, peer_reviewed_at=?, updated_at=? WHERE id=?`,
		status, nullableStr(notes), at, at, id))
}

func (r Repo) RecordSeniorDecision(ctx context.Context, id int64, status string, notes *string, at string) error {
	return mustAffect(r.DB.ExecContext(ctx, `UPDATE approvals SET senior_status=?, senior_notes=?, senior_approved_at=?, updated_at=? WHERE id=?`,
		status, nullableStr(notes), at, at, id))
}

package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"agencydesk/internal/domain"
)

const briefColumns = `id,project_id,objectives,COALESCE(audience,''),COALESCE(tone,''),channels,COALESCE(timeline,''),approvals_required,status,client_sign_off,client_sign_off_date,created_by,created_at,updated_at`

func scanBrief(s interface{ Scan(...any) error }) (domain.Brief, error) {
	var b domain.Brief
	var channels, approvals string
	var signOff, signOffDate sql.NullString
	err := s.Scan(&b.ID, &b.ProjectID, &b.Objectives, &b.Audience, &b.Tone, &channels, &b.Timeline, &approvals,
		&b.Status, &signOff, &signOffDate, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	if b.Channels, err = decodeList(channels); err != nil {
		return b, err
	}
	if b.ApprovalsRequired, err = decodeList(approvals); err != nil {
		return b, err
	}
	b.ClientSignOff = strPtr(signOff)
	b.ClientSignOffDate = strPtr(signOffDate)
	return b, nil
}

// encodeList stores a string list as a JSON array; nil becomes [].
func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func decodeList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(raw), &out)
	return out, err
}

func (r Repo) InsertBrief(ctx context.Context, b domain.Brief) (int64, error) {
	channels, err := encodeList(b.Channels)
	if err != nil {
		return 0, err
	}
	approvals, err := encodeList(b.ApprovalsRequired)
	if err != nil {
		return 0, err
	}
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO briefs(project_id,objectives,audience,tone,channels,timeline,approvals_required,status,created_by,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		b.ProjectID, b.Objectives, nullable(b.Audience), nullable(b.Tone), channels, nullable(b.Timeline), approvals, b.Status, b.CreatedBy, b.CreatedAt, b.UpdatedAt))
}

func (r Repo) GetBrief(ctx context.Context, id int64) (domain.Brief, error) {
	return scanBrief(r.DB.QueryRowContext(ctx, `SELECT `+briefColumns+` FROM briefs WHERE id=?`, id))
}

// GetBriefForProject returns the project's brief; a project has at most one.
func (r Repo) GetBriefForProject(ctx context.Context, projectID int64) (domain.Brief, error) {
	return scanBrief(r.DB.QueryRowContext(ctx, `SELECT `+briefColumns+` FROM briefs WHERE project_id=?`, projectID))
}

// SignOffBrief records the client sign-off and approves the brief.
func (r Repo) SignOffBrief(ctx context.Context, id int64, signedBy, now string) error {
	return mustAffect(r.DB.ExecContext(ctx, `UPDATE briefs SET client_sign_off=?, client_sign_off_date=?, status=?, updated_at=? WHERE id=?`,
		signedBy, now, domain.BriefApproved, now, id))
}

package audit

import (
	"context"
	"database/sql"
	"time"

	"agencydesk/internal/domain"
	"agencydesk/internal/repo"
)

type requestIDKey struct{}

// WithRequestID tags ctx so audit entries written under it carry the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Writer appends audit_logs rows.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Record(ctx context.Context, actor domain.Actor, action, resourceType string, resourceID *int64) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	return repo.Repo{DB: w.DB}.InsertAuditEntry(ctx, domain.AuditEntry{
		UserID:       actor.UserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    RequestID(ctx),
		CreatedAt:    now().UTC().Format(time.RFC3339),
	})
}

// List returns the newest audit entries first.
func (w Writer) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return repo.Repo{DB: w.DB}.ListAuditEntries(ctx, limit)
}

package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agencydesk/internal/audit"
	"agencydesk/internal/config"
	"agencydesk/internal/domain"
	"agencydesk/internal/engine/policy"
	"agencydesk/internal/repo"
	"agencydesk/internal/telemetry"
)

// Auditor records who did what. Failures never fail the calling operation.
type Auditor interface {
	Record(ctx context.Context, actor domain.Actor, action, resourceType string, resourceID *int64) error
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Audit  Auditor
	Config *config.Config
	Policy policy.Policy
	Logger *slog.Logger
	Tracer trace.Tracer
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Audit:  audit.Writer{DB: db},
		Config: cfg,
		Policy: policy.FromConfig(cfg),
		Logger: slog.Default(),
		Tracer: telemetry.Tracer(),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Engine) stamp() string {
	return e.now().Format(timeLayout)
}

func (e Engine) today() string {
	return e.now().Format(dateLayout)
}

func (e Engine) config() *config.Config {
	if e.Config == nil {
		return config.Default()
	}
	return e.Config
}

func (e Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e Engine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := e.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}
	return tracer.Start(ctx, "engine."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// inTx runs fn against a transaction-bound repo and commits when fn succeeds.
func (e Engine) inTx(ctx context.Context, op string, fn func(r repo.Repo) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin "+op, err)
	}
	defer tx.Rollback()
	if err := fn(e.Repo.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit "+op, err)
	}
	return nil
}

const auditTimeout = 2 * time.Second

// record writes an audit entry after the primary operation. It never returns an error.
func (e Engine) record(ctx context.Context, actor domain.Actor, action, resourceType string, resourceID int64) {
	if e.Audit == nil {
		return
	}
	var id *int64
	if resourceID > 0 {
		id = &resourceID
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := e.Audit.Record(ctx, actor, action, resourceType, id); err != nil {
		e.logger().Warn("audit write failed",
			"action", action, "resource_type", resourceType, "resource_id", resourceID,
			"user_id", actor.UserID, "err", err)
	}
}

func requireActor(actor domain.Actor) error {
	if actor.UserID <= 0 {
		return invalid("actor", "is required")
	}
	return nil
}

// withRole fills actor.Role from the users table when the caller did not supply it.
func (e Engine) withRole(ctx context.Context, actor domain.Actor) domain.Actor {
	if actor.Role != "" || actor.UserID <= 0 {
		return actor
	}
	if u, err := e.Repo.GetUser(ctx, actor.UserID); err == nil {
		actor.Role = u.Role
	}
	return actor
}

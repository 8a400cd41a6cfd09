package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"agencydesk/internal/domain"
)

// Overview computes the global counters. An empty period means the current month.
// Nothing is cached; every call reads current state.
func (e Engine) Overview(ctx context.Context, actor domain.Actor, period string) (o domain.Overview, err error) {
	ctx, span := e.startSpan(ctx, "Overview")
	defer func() { endSpan(span, err) }()

	now := e.now()
	if period == "" {
		period = now.Format(periodLayout)
	} else if _, perr := time.Parse(periodLayout, period); perr != nil {
		return o, invalid("period", "must be YYYY-MM")
	}
	span.SetAttributes(attribute.String("period", period))

	days := e.config().Analytics.DueSoonDays
	today := now.Format(dateLayout)
	horizon := now.AddDate(0, 0, days).Format(dateLayout)

	o = domain.Overview{Period: period, DueSoonDays: days}
	if o.KPICounts, err = e.Repo.KPICounts(ctx, period); err != nil {
		return o, storeErr("kpi counts", err)
	}
	if o.OverdueTasks, err = e.Repo.CountOverdueTasks(ctx, today); err != nil {
		return o, storeErr("count overdue tasks", err)
	}
	if o.TasksDueThisWeek, err = e.Repo.CountTasksDueBetween(ctx, today, horizon); err != nil {
		return o, storeErr("count due tasks", err)
	}
	if o.OpenRisks, err = e.Repo.CountOpenRisks(ctx); err != nil {
		return o, storeErr("count open risks", err)
	}
	if o.PendingApprovals, err = e.Repo.CountPendingApprovals(ctx); err != nil {
		return o, storeErr("count pending approvals", err)
	}
	e.record(ctx, actor, "view", "analytics", 0)
	return o, nil
}

// ProjectHealth returns per-project counts for active projects, most overdue first,
// each labelled by domain.ClassifyHealth.
func (e Engine) ProjectHealth(ctx context.Context, actor domain.Actor) (rows []domain.ProjectHealth, err error) {
	ctx, span := e.startSpan(ctx, "ProjectHealth")
	defer func() { endSpan(span, err) }()

	rows, err = e.Repo.ProjectHealthCounts(ctx, e.today())
	if err != nil {
		return nil, storeErr("project health", err)
	}
	for i := range rows {
		rows[i].Health = domain.ClassifyHealth(rows[i].OverdueTasks, rows[i].OpenRisks)
	}
	span.SetAttributes(attribute.Int("projects", len(rows)))
	e.record(ctx, actor, "view", "analytics", 0)
	return rows, nil
}

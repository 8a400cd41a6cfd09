package repo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"agencydesk/internal/db"
	"agencydesk/internal/domain"
	"agencydesk/internal/migrate"
)

const ts = "2026-03-10T09:00:00Z"

func newTestRepo(t *testing.T) (Repo, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "repo.db")})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return Repo{DB: conn}, conn
}

func seedProject(t *testing.T, r Repo) (lead, project int64) {
	t.Helper()
	ctx := context.Background()
	lead, err := r.InsertUser(ctx, domain.User{Email: "Lead@Example.com", Name: "Lead", Role: "project_lead", CreatedAt: ts})
	require.NoError(t, err)
	client, err := r.InsertClient(ctx, domain.Client{Name: "Acme", Status: "active", CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)
	project, err = r.InsertProject(ctx, domain.Project{ClientID: client, LeadID: lead, Name: "Launch", Status: domain.ProjectActive, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)
	return lead, project
}

func ptr[T any](v T) *T { return &v }

func TestGetUserByEmailIsCaseInsensitive(t *testing.T) {
	r, _ := newTestRepo(t)
	lead, _ := seedProject(t, r)
	u, err := r.GetUserByEmail(context.Background(), "LEAD@example.com")
	require.NoError(t, err)
	require.Equal(t, lead, u.ID)

	_, err = r.GetUser(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureStageAndFileAreIdempotent(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	lead, project := seedProject(t, r)

	for i := len(domain.StageTypes) - 1; i >= 0; i-- {
		added, err := r.EnsureStage(ctx, domain.Stage{ProjectID: project, Type: domain.StageTypes[i], Status: domain.StagePending, CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
		require.True(t, added)
	}
	added, err := r.EnsureStage(ctx, domain.Stage{ProjectID: project, Type: "execution", Status: domain.StagePending, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)
	require.False(t, added)

	stages, err := r.ListStages(ctx, project)
	require.NoError(t, err)
	require.Len(t, stages, 6)
	for i, st := range stages {
		require.Equal(t, domain.StageTypes[i], st.Type)
	}

	f := domain.File{ProjectID: project, Kind: "brief", Name: "Client Brief", CreatedBy: lead, CreatedAt: ts}
	added, err = r.EnsureFile(ctx, f)
	require.NoError(t, err)
	require.True(t, added)
	added, err = r.EnsureFile(ctx, f)
	require.NoError(t, err)
	require.False(t, added)
}

func TestListTasksOrdering(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	_, project := seedProject(t, r)

	insert := func(title, priority string, due *string) {
		_, err := r.InsertTask(ctx, domain.Task{ProjectID: project, Title: title, Priority: priority, Status: domain.TaskPending, DueDate: due, CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
	}
	insert("low-early", domain.PriorityLow, ptr("2026-03-01"))
	insert("high-undated", domain.PriorityHigh, nil)
	insert("high-late", domain.PriorityHigh, ptr("2026-04-01"))
	insert("urgent", domain.PriorityUrgent, ptr("2026-05-01"))
	insert("high-early", domain.PriorityHigh, ptr("2026-03-15"))

	tasks, err := r.ListTasks(ctx, TaskQuery{ProjectID: project})
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	require.Equal(t, []string{"urgent", "high-early", "high-late", "high-undated", "low-early"}, titles)

	cond, err := ParseTaskFilter(`priority = "high"`)
	require.NoError(t, err)
	tasks, err = r.ListTasks(ctx, TaskQuery{Filter: cond})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
}

func TestUpdateTaskPartialAndClear(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	lead, project := seedProject(t, r)
	id, err := r.InsertTask(ctx, domain.Task{ProjectID: project, Title: "Copy", Priority: domain.PriorityMedium, Status: domain.TaskPending, OwnerID: &lead, DueDate: ptr("2026-03-20"), CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)

	require.NoError(t, r.UpdateTask(ctx, id, TaskUpdate{Priority: ptr(domain.PriorityHigh), OwnerID: ptr(int64(0))}, "2026-03-11T00:00:00Z"))
	task, err := r.GetTask(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.PriorityHigh, task.Priority)
	require.Nil(t, task.OwnerID)
	require.Equal(t, "2026-03-20", *task.DueDate)
	require.Equal(t, domain.TaskPending, task.Status)

	require.ErrorIs(t, r.UpdateTask(ctx, 999, TaskUpdate{Status: ptr(domain.TaskBlocked)}, ts), ErrNotFound)
}

func TestListPendingForGatesSeniorOnPeer(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	_, project := seedProject(t, r)
	peer, err := r.InsertUser(ctx, domain.User{Email: "peer@example.com", Name: "Peer", Role: "specialist", CreatedAt: ts})
	require.NoError(t, err)
	senior, err := r.InsertUser(ctx, domain.User{Email: "senior@example.com", Name: "Senior", Role: "account_lead", CreatedAt: ts})
	require.NoError(t, err)
	task, err := r.InsertTask(ctx, domain.Task{ProjectID: project, Title: "Deck", Priority: domain.PriorityMedium, Status: domain.TaskPending, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)
	id, err := r.InsertApproval(ctx, domain.Approval{TaskID: task, PeerReviewerID: &peer, SeniorApproverID: &senior,
		PeerStatus: domain.DecisionPending, SeniorStatus: domain.DecisionPending, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)

	pending, err := r.ListPendingFor(ctx, peer)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	pending, err = r.ListPendingFor(ctx, senior)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.NoError(t, r.RecordPeerDecision(ctx, id, domain.DecisionApproved, ptr("looks good"), ts))
	pending, err = r.ListPendingFor(ctx, peer)
	require.NoError(t, err)
	require.Empty(t, pending)
	pending, err = r.ListPendingFor(ctx, senior)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "looks good", *pending[0].PeerNotes)

	n, err := r.CountUnresolvedForTask(ctx, task)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, r.RecordSeniorDecision(ctx, id, domain.DecisionRejected, nil, ts))
	n, err = r.CountUnresolvedForTask(ctx, task)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAnalyticsCountsAreZeroOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	counts, err := r.KPICounts(ctx, "2026-03")
	require.NoError(t, err)
	require.Empty(t, counts)
	n, err := r.CountOverdueTasks(ctx, "2026-03-10")
	require.NoError(t, err)
	require.Zero(t, n)
	health, err := r.ProjectHealthCounts(ctx, "2026-03-10")
	require.NoError(t, err)
	require.Empty(t, health)
}

func TestProjectHealthCountsDoNotMultiplyJoins(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	lead, project := seedProject(t, r)
	for i, status := range []string{domain.TaskCompleted, domain.TaskPending, domain.TaskApproved} {
		_, err := r.InsertTask(ctx, domain.Task{ProjectID: project, Title: "t", Priority: domain.PriorityMedium, Status: status,
			DueDate: ptr("2026-03-0" + string(rune('1'+i))), CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
	}
	for range 2 {
		_, err := r.InsertRisk(ctx, domain.Risk{ProjectID: project, Description: "r", Likelihood: "low", Impact: "high", OwnerID: &lead, Status: domain.RiskOpen, CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
	}
	rows, err := r.ProjectHealthCounts(ctx, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 3, rows[0].TotalTasks)
	require.Equal(t, 1, rows[0].CompletedTasks)
	require.Equal(t, 1, rows[0].OverdueTasks)
	require.Equal(t, 2, rows[0].OpenRisks)
}

func TestAPIKeys(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	lead, _ := seedProject(t, r)
	require.Error(t, r.InsertAPIKey(ctx, domain.APIKey{ID: "k1", KeyHash: "h"}))
	require.NoError(t, r.InsertAPIKey(ctx, domain.APIKey{ID: "k1", UserID: lead, KeyHash: HashAPIKey(" secret "), CreatedAt: ts}))
	key, err := r.GetAPIKeyByHash(ctx, HashAPIKey("secret"))
	require.NoError(t, err)
	require.Equal(t, lead, key.UserID)
	keys, err := r.ListAPIKeys(ctx, lead)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.NoError(t, r.DeleteAPIKey(ctx, "k1"))
	require.ErrorIs(t, r.DeleteAPIKey(ctx, "k1"), ErrNotFound)
}

func TestBriefListsRoundTripAsJSON(t *testing.T) {
	ctx := context.Background()
	r, conn := newTestRepo(t)
	lead, project := seedProject(t, r)

	id, err := r.InsertBrief(ctx, domain.Brief{ProjectID: project, Objectives: "Grow signups", Channels: []string{"social", "email"},
		Status: domain.BriefDraft, CreatedBy: lead, CreatedAt: ts, UpdatedAt: ts})
	require.NoError(t, err)

	var rawApprovals string
	require.NoError(t, conn.QueryRow(`SELECT approvals_required FROM briefs WHERE id=?`, id).Scan(&rawApprovals))
	require.Equal(t, "[]", rawApprovals)

	b, err := r.GetBriefForProject(ctx, project)
	require.NoError(t, err)
	require.Equal(t, id, b.ID)
	require.Equal(t, []string{"social", "email"}, b.Channels)
	require.Equal(t, []string{}, b.ApprovalsRequired)
	require.Nil(t, b.ClientSignOff)

	_, err = r.InsertBrief(ctx, domain.Brief{ProjectID: project, Objectives: "again", Status: domain.BriefDraft, CreatedBy: lead, CreatedAt: ts, UpdatedAt: ts})
	require.Error(t, err)

	require.NoError(t, r.SignOffBrief(ctx, id, "Dana Client", ts))
	b, err = r.GetBrief(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.BriefApproved, b.Status)
	require.Equal(t, "Dana Client", *b.ClientSignOff)
	require.Equal(t, ts, *b.ClientSignOffDate)

	require.ErrorIs(t, r.SignOffBrief(ctx, 999, "x", ts), ErrNotFound)
	_, err = r.GetBriefForProject(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

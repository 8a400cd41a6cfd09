package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"agencydesk/internal/config"
	"agencydesk/internal/db"
	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
	"agencydesk/internal/engine/policy"
	"agencydesk/internal/migrate"
	"agencydesk/internal/repo"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Admin  domain.Actor
	seq    int
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return fixedNow }
	env := &testEnv{Engine: eng, Ctx: context.Background()}
	admin := env.user(t, domain.RoleAdmin)
	env.Admin = domain.Actor{UserID: admin, Role: domain.RoleAdmin}
	return env
}

func (env *testEnv) user(t *testing.T, role string) int64 {
	t.Helper()
	env.seq++
	u, err := env.Engine.CreateUser(env.Ctx, domain.Actor{}, engine.UserCreateOptions{
		Email: fmt.Sprintf("user%d@example.com", env.seq),
		Name:  fmt.Sprintf("User %d", env.seq),
		Role:  role,
	})
	require.NoError(t, err)
	return u.ID
}

func (env *testEnv) project(t *testing.T) engine.ProjectDetail {
	t.Helper()
	client, err := env.Engine.CreateClient(env.Ctx, env.Admin, engine.ClientCreateOptions{Name: "Acme"})
	require.NoError(t, err)
	lead := env.user(t, "project_lead")
	d, err := env.Engine.CreateProject(env.Ctx, env.Admin, engine.ProjectCreateOptions{ClientID: client.ID, LeadID: lead, Name: "X"})
	require.NoError(t, err)
	return d
}

func (env *testEnv) task(t *testing.T, projectID int64, opts engine.TaskCreateOptions) domain.Task {
	t.Helper()
	opts.ProjectID = projectID
	if opts.Title == "" {
		opts.Title = "task"
	}
	task, err := env.Engine.CreateTask(env.Ctx, env.Admin, opts)
	require.NoError(t, err)
	return task
}

func ptr[T any](v T) *T { return &v }

func pendingIDs(t *testing.T, env *testEnv, userID int64) []int64 {
	t.Helper()
	list, err := env.Engine.ListPendingApprovals(env.Ctx, domain.Actor{UserID: userID}, 0)
	require.NoError(t, err)
	ids := []int64{}
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestCreateProjectProvisionsStagesAndFiles(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)

	require.Equal(t, domain.ProjectActive, d.Project.Status)
	require.Len(t, d.Stages, 6)
	for i, st := range d.Stages {
		require.Equal(t, domain.StageTypes[i], st.Type)
		require.Equal(t, domain.StagePending, st.Status)
	}
	require.Len(t, d.Files, 5)
	for i, f := range d.Files {
		require.Equal(t, domain.MandatoryFiles[i].Kind, f.Kind)
		require.Equal(t, domain.MandatoryFiles[i].Name, f.Name)
		require.Equal(t, env.Admin.UserID, f.CreatedBy)
	}

	got, err := env.Engine.GetProject(env.Ctx, env.Admin, d.Project.ID)
	require.NoError(t, err)
	require.Len(t, got.Stages, 6)
	require.Len(t, got.Files, 5)
	require.Empty(t, got.Risks)
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t)
	client, err := env.Engine.CreateClient(env.Ctx, env.Admin, engine.ClientCreateOptions{Name: "Acme"})
	require.NoError(t, err)

	_, err = env.Engine.CreateProject(env.Ctx, env.Admin, engine.ProjectCreateOptions{ClientID: client.ID, LeadID: env.Admin.UserID})
	var verr engine.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "name", verr.Field)

	_, err = env.Engine.CreateProject(env.Ctx, env.Admin, engine.ProjectCreateOptions{ClientID: 999, LeadID: env.Admin.UserID, Name: "X"})
	var nf engine.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "client", nf.Kind)

	_, err = env.Engine.CreateProject(env.Ctx, env.Admin, engine.ProjectCreateOptions{ClientID: client.ID, LeadID: 999, Name: "X"})
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "user", nf.Kind)

	_, err = env.Engine.CreateProject(env.Ctx, env.Admin, engine.ProjectCreateOptions{ClientID: client.ID, LeadID: env.Admin.UserID, Name: "X",
		StartDate: ptr("2026-05-01"), EndDate: ptr("2026-04-01")})
	require.ErrorAs(t, err, &verr)

	projects, err := env.Engine.ListProjects(env.Ctx, env.Admin, repo.ProjectFilter{ClientID: client.ID})
	require.NoError(t, err)
	require.Empty(t, projects)
}

func TestReprovisionFillsGaps(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)

	res, err := env.Engine.ReprovisionProject(env.Ctx, env.Admin, d.Project.ID)
	require.NoError(t, err)
	require.Empty(t, res.AddedStages)
	require.Empty(t, res.AddedFiles)

	_, err = env.Engine.DB.Exec(`DELETE FROM stages WHERE project_id=? AND type='qa_review'`, d.Project.ID)
	require.NoError(t, err)
	_, err = env.Engine.DB.Exec(`DELETE FROM files WHERE project_id=? AND kind IN ('brief','project_tracker')`, d.Project.ID)
	require.NoError(t, err)

	res, err = env.Engine.ReprovisionProject(env.Ctx, env.Admin, d.Project.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"qa_review"}, res.AddedStages)
	require.Equal(t, []string{"brief", "project_tracker"}, res.AddedFiles)

	got, err := env.Engine.GetProject(env.Ctx, env.Admin, d.Project.ID)
	require.NoError(t, err)
	require.Len(t, got.Stages, 6)
	require.Equal(t, "qa_review", got.Stages[3].Type)
	require.Len(t, got.Files, 5)

	_, err = env.Engine.ReprovisionProject(env.Ctx, env.Admin, 999)
	require.ErrorAs(t, err, new(engine.NotFoundError))
}

func TestApprovalFlowSeniorApproves(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	peer := env.user(t, "specialist")
	senior := env.user(t, "account_lead")
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{Title: "Deck"})
	require.Equal(t, domain.TaskPending, task.Status)

	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID, PeerReviewerID: &peer, SeniorApproverID: &senior})
	require.NoError(t, err)
	require.Equal(t, domain.DecisionPending, a.PeerStatus)
	require.Equal(t, domain.DecisionPending, a.SeniorStatus)

	got, err := env.Engine.GetTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskReview, got.Status)
	require.Equal(t, []int64{a.ID}, pendingIDs(t, env, peer))
	require.Empty(t, pendingIDs(t, env, senior))

	a, err = env.Engine.ResolvePeer(env.Ctx, domain.Actor{UserID: peer}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved, Notes: ptr("ok")})
	require.NoError(t, err)
	require.NotNil(t, a.PeerReviewedAt)
	require.Empty(t, pendingIDs(t, env, peer))
	require.Equal(t, []int64{a.ID}, pendingIDs(t, env, senior))

	got, err = env.Engine.GetTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskReview, got.Status)

	a, err = env.Engine.ResolveSenior(env.Ctx, domain.Actor{UserID: senior}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.NoError(t, err)
	require.NotNil(t, a.SeniorApprovedAt)
	got, err = env.Engine.GetTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskApproved, got.Status)
	require.Empty(t, pendingIDs(t, env, senior))
}

func TestApprovalFlowSeniorRejects(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	peer := env.user(t, "specialist")
	senior := env.user(t, "account_lead")
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})

	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID, PeerReviewerID: &peer, SeniorApproverID: &senior})
	require.NoError(t, err)
	_, err = env.Engine.ResolvePeer(env.Ctx, domain.Actor{UserID: peer}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.NoError(t, err)
	a, err = env.Engine.ResolveSenior(env.Ctx, domain.Actor{UserID: senior}, a.ID, engine.DecisionOptions{Status: domain.DecisionRejected, Notes: ptr("redo")})
	require.NoError(t, err)
	require.Equal(t, domain.DecisionRejected, a.SeniorStatus)
	require.Equal(t, "redo", *a.SeniorNotes)

	got, err := env.Engine.GetTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskReview, got.Status)
}

func TestOpenApprovalForcesReviewFromAnyStatus(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	for _, status := range domain.TaskStatuses {
		task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})
		_, err := env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(status)})
		require.NoError(t, err)
		_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
		require.NoError(t, err)
		got, err := env.Engine.GetTask(env.Ctx, env.Admin, task.ID)
		require.NoError(t, err)
		require.Equal(t, domain.TaskReview, got.Status, "from %s", status)
	}
}

func TestResolvePeerLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	peer := env.user(t, "specialist")
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})
	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID, PeerReviewerID: &peer})
	require.NoError(t, err)

	_, err = env.Engine.ResolvePeer(env.Ctx, domain.Actor{UserID: peer}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved, Notes: ptr("first")})
	require.NoError(t, err)
	a, err = env.Engine.ResolvePeer(env.Ctx, domain.Actor{UserID: peer}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved, Notes: ptr("second")})
	require.NoError(t, err)
	require.Equal(t, domain.DecisionApproved, a.PeerStatus)
	require.Equal(t, "second", *a.PeerNotes)

	list, err := env.Engine.ListApprovalsForTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestApprovalValidation(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})

	_, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: 999})
	require.ErrorAs(t, err, new(engine.NotFoundError))
	_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID, PeerReviewerID: ptr(int64(999))})
	require.ErrorAs(t, err, new(engine.NotFoundError))

	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)
	_, err = env.Engine.ResolvePeer(env.Ctx, env.Admin, a.ID, engine.DecisionOptions{Status: "maybe"})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.ResolveSenior(env.Ctx, env.Admin, 999, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.ErrorAs(t, err, new(engine.NotFoundError))
	_, err = env.Engine.ResolvePeer(env.Ctx, domain.Actor{}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.ErrorAs(t, err, new(engine.ValidationError))
}

func TestSecondOpenApprovalAllowedByDefault(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})
	_, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)
	_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)
	list, err := env.Engine.ListApprovalsForTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestSingleOpenPerTaskPolicy(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Policies.Approvals.SingleOpenPerTask = true })
	d := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})

	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)
	_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.ErrorAs(t, err, new(engine.ConflictError))

	_, err = env.Engine.ResolvePeer(env.Ctx, env.Admin, a.ID, engine.DecisionOptions{Status: domain.DecisionRejected})
	require.NoError(t, err)
	_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)
}

func TestRequirePeerBeforeSeniorPolicy(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Policies.Approvals.RequirePeerBeforeSenior = true })
	d := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})
	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)

	_, err = env.Engine.ResolveSenior(env.Ctx, env.Admin, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.ErrorAs(t, err, new(engine.ConflictError))
	got, err := env.Engine.GetApproval(env.Ctx, env.Admin, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DecisionPending, got.SeniorStatus)

	_, err = env.Engine.ResolvePeer(env.Ctx, env.Admin, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.NoError(t, err)
	_, err = env.Engine.ResolveSenior(env.Ctx, env.Admin, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.NoError(t, err)
}

func TestSeniorBeforePeerAllowedByDefault(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})
	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)
	_, err = env.Engine.ResolveSenior(env.Ctx, env.Admin, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.NoError(t, err)
	got, err := env.Engine.GetTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskApproved, got.Status)
}

func TestReviewerIdentityPolicy(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Policies.Approvals.EnforceReviewerIdentity = true })
	d := env.project(t)
	peer := env.user(t, "specialist")
	other := env.user(t, "specialist")
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})
	a, err := env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID, PeerReviewerID: &peer})
	require.NoError(t, err)

	_, err = env.Engine.ResolvePeer(env.Ctx, domain.Actor{UserID: other}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.ErrorAs(t, err, new(policy.ForbiddenError))
	_, err = env.Engine.ResolvePeer(env.Ctx, domain.Actor{UserID: peer}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.NoError(t, err)
	// Role is looked up when the caller omits it.
	_, err = env.Engine.ResolveSenior(env.Ctx, domain.Actor{UserID: env.Admin.UserID}, a.ID, engine.DecisionOptions{Status: domain.DecisionApproved})
	require.NoError(t, err)
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	owner := env.user(t, "specialist")
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{Title: "Copy", StageID: &d.Stages[2].ID, OwnerID: &owner, DueDate: ptr("2026-03-20")})
	require.Equal(t, domain.PriorityMedium, task.Priority)
	require.Equal(t, d.Stages[2].ID, *task.StageID)

	got, err := env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskCompleted), Priority: ptr(domain.PriorityUrgent)})
	require.NoError(t, err)
	require.Equal(t, domain.TaskCompleted, got.Status)
	require.Equal(t, domain.PriorityUrgent, got.Priority)
	require.Equal(t, owner, *got.OwnerID)

	// Non-strict mode trusts the caller.
	got, err = env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskPending), DueDate: ptr("")})
	require.NoError(t, err)
	require.Equal(t, domain.TaskPending, got.Status)
	require.Nil(t, got.DueDate)

	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr("done")})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, 999, engine.TaskUpdateOptions{Priority: ptr(domain.PriorityLow)})
	require.ErrorAs(t, err, new(engine.NotFoundError))
}

func TestStrictTransitions(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Policies.Tasks.StrictTransitions = true })
	d := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})

	_, err := env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskApproved)})
	require.ErrorAs(t, err, new(engine.ConflictError))
	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskInProgress)})
	require.NoError(t, err)
	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskInProgress), Priority: ptr(domain.PriorityHigh)})
	require.NoError(t, err)

	// Lifecycle transitions bypass the table: blocked -> review is not a manual edge.
	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskBlocked)})
	require.NoError(t, err)
	_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID})
	require.NoError(t, err)
	got, err := env.Engine.GetTask(env.Ctx, env.Admin, task.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskReview, got.Status)
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	other := env.project(t)

	_, err := env.Engine.CreateTask(env.Ctx, env.Admin, engine.TaskCreateOptions{ProjectID: d.Project.ID})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.CreateTask(env.Ctx, env.Admin, engine.TaskCreateOptions{ProjectID: 999, Title: "t"})
	require.ErrorAs(t, err, new(engine.NotFoundError))
	_, err = env.Engine.CreateTask(env.Ctx, env.Admin, engine.TaskCreateOptions{ProjectID: d.Project.ID, Title: "t", Priority: "asap"})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.CreateTask(env.Ctx, env.Admin, engine.TaskCreateOptions{ProjectID: d.Project.ID, Title: "t", DueDate: ptr("10/03/2026")})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.CreateTask(env.Ctx, env.Admin, engine.TaskCreateOptions{ProjectID: d.Project.ID, Title: "t", StageID: &other.Stages[0].ID})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.CreateTask(env.Ctx, env.Admin, engine.TaskCreateOptions{ProjectID: d.Project.ID, Title: "t", OwnerID: ptr(int64(999))})
	require.ErrorAs(t, err, new(engine.NotFoundError))
}

func TestListTasksOrderAndFilter(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	env.task(t, d.Project.ID, engine.TaskCreateOptions{Title: "low", Priority: domain.PriorityLow, DueDate: ptr("2026-03-11")})
	env.task(t, d.Project.ID, engine.TaskCreateOptions{Title: "urgent-late", Priority: domain.PriorityUrgent, DueDate: ptr("2026-04-01")})
	env.task(t, d.Project.ID, engine.TaskCreateOptions{Title: "urgent-none", Priority: domain.PriorityUrgent})
	env.task(t, d.Project.ID, engine.TaskCreateOptions{Title: "urgent-early", Priority: domain.PriorityUrgent, DueDate: ptr("2026-03-12")})

	tasks, err := env.Engine.ListTasks(env.Ctx, env.Admin, engine.TaskListOptions{ProjectID: d.Project.ID})
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	require.Equal(t, []string{"urgent-early", "urgent-late", "urgent-none", "low"}, titles)

	tasks, err = env.Engine.ListTasks(env.Ctx, env.Admin, engine.TaskListOptions{Filter: `priority = "low"`})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, err = env.Engine.ListTasks(env.Ctx, env.Admin, engine.TaskListOptions{Filter: `title = "x"`})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.ListTasks(env.Ctx, env.Admin, engine.TaskListOptions{Status: "done"})
	require.ErrorAs(t, err, new(engine.ValidationError))
}

func TestProjectHealthModerate(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	for i := 0; i < 4; i++ {
		task := env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-01")})
		_, err := env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskCompleted)})
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-05")})
	}
	for i := 0; i < 4; i++ {
		env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-25")})
	}
	_, err := env.Engine.CreateRisk(env.Ctx, env.Admin, engine.RiskCreateOptions{ProjectID: d.Project.ID, Description: "scope creep", Likelihood: "medium", Impact: "high"})
	require.NoError(t, err)

	rows, err := env.Engine.ProjectHealth(env.Ctx, env.Admin)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	h := rows[0]
	require.Equal(t, 10, h.TotalTasks)
	require.Equal(t, 4, h.CompletedTasks)
	require.Equal(t, 2, h.OverdueTasks)
	require.Equal(t, 1, h.OpenRisks)
	require.Equal(t, domain.HealthModerate, h.Health)
}

func TestProjectHealthOrderingAndActiveOnly(t *testing.T) {
	env := newTestEnv(t)
	calm := env.project(t)
	busy := env.project(t)
	paused := env.project(t)
	env.task(t, busy.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-01-01")})
	_, err := env.Engine.UpdateProjectStatus(env.Ctx, env.Admin, paused.Project.ID, domain.ProjectOnHold)
	require.NoError(t, err)

	rows, err := env.Engine.ProjectHealth(env.Ctx, env.Admin)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, busy.Project.ID, rows[0].ProjectID)
	require.Equal(t, calm.Project.ID, rows[1].ProjectID)
	require.Equal(t, domain.HealthGood, rows[1].Health)
}

func TestOverview(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)

	o, err := env.Engine.Overview(env.Ctx, env.Admin, "")
	require.NoError(t, err)
	require.Equal(t, "2026-03", o.Period)
	require.Empty(t, o.KPICounts)
	require.Zero(t, o.OverdueTasks)
	require.Equal(t, 7, o.DueSoonDays)

	env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-09")})
	env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-10")})
	env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-17")})
	env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-18")})
	done := env.task(t, d.Project.ID, engine.TaskCreateOptions{DueDate: ptr("2026-03-12")})
	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, done.ID, engine.TaskUpdateOptions{Status: ptr(domain.TaskApproved)})
	require.NoError(t, err)
	_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: done.ID})
	require.NoError(t, err)
	_, err = env.Engine.CreateEscalation(env.Ctx, env.Admin, engine.EscalationCreateOptions{ProjectID: d.Project.ID, Description: "client unhappy", Severity: "high"})
	require.NoError(t, err)
	_, err = env.Engine.CreateRisk(env.Ctx, env.Admin, engine.RiskCreateOptions{ProjectID: d.Project.ID, Description: "r", Likelihood: "low", Impact: "low"})
	require.NoError(t, err)

	o, err = env.Engine.Overview(env.Ctx, env.Admin, "")
	require.NoError(t, err)
	require.Equal(t, []domain.KPICount{{Type: domain.KPIEscalation, Count: 1}}, o.KPICounts)
	require.Equal(t, 1, o.OverdueTasks)
	// 03-10 and 03-17 fall in the window; the task under review is open again.
	require.Equal(t, 3, o.TasksDueThisWeek)
	require.Equal(t, 1, o.OpenRisks)
	require.Equal(t, 1, o.PendingApprovals)

	o, err = env.Engine.Overview(env.Ctx, env.Admin, "2026-02")
	require.NoError(t, err)
	require.Empty(t, o.KPICounts)

	_, err = env.Engine.Overview(env.Ctx, env.Admin, "March")
	require.ErrorAs(t, err, new(engine.ValidationError))
}

func TestEscalationsAppendKPIEvents(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	other := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})

	low, err := env.Engine.CreateEscalation(env.Ctx, env.Admin, engine.EscalationCreateOptions{ProjectID: d.Project.ID, Description: "late feedback", Severity: "low"})
	require.NoError(t, err)
	require.Equal(t, domain.EscalationOpen, low.Status)
	require.Equal(t, env.Admin.UserID, low.EscalatedBy)
	crit, err := env.Engine.CreateEscalation(env.Ctx, env.Admin, engine.EscalationCreateOptions{ProjectID: d.Project.ID, TaskID: &task.ID, Description: "launch blocked", Severity: "critical"})
	require.NoError(t, err)

	_, err = env.Engine.CreateEscalation(env.Ctx, env.Admin, engine.EscalationCreateOptions{ProjectID: other.Project.ID, TaskID: &task.ID, Description: "x", Severity: "low"})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.CreateEscalation(env.Ctx, env.Admin, engine.EscalationCreateOptions{ProjectID: d.Project.ID, Description: "x", Severity: "sev1"})
	require.ErrorAs(t, err, new(engine.ValidationError))

	list, err := env.Engine.ListEscalations(env.Ctx, env.Admin, d.Project.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, crit.ID, list[0].ID)
	require.Equal(t, low.ID, list[1].ID)

	list, err = env.Engine.ListEscalations(env.Ctx, env.Admin, 0, domain.EscalationResolved)
	require.NoError(t, err)
	require.Empty(t, list)

	o, err := env.Engine.Overview(env.Ctx, env.Admin, "2026-03")
	require.NoError(t, err)
	require.Equal(t, []domain.KPICount{{Type: domain.KPIEscalation, Count: 2}}, o.KPICounts)
}

func TestRisks(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)

	low, err := env.Engine.CreateRisk(env.Ctx, env.Admin, engine.RiskCreateOptions{ProjectID: d.Project.ID, Description: "vendor slip", Likelihood: "low", Impact: "low"})
	require.NoError(t, err)
	high, err := env.Engine.CreateRisk(env.Ctx, env.Admin, engine.RiskCreateOptions{ProjectID: d.Project.ID, Description: "budget cut", Likelihood: "medium", Impact: "high"})
	require.NoError(t, err)
	require.Equal(t, domain.RiskOpen, high.Status)

	_, err = env.Engine.CreateRisk(env.Ctx, env.Admin, engine.RiskCreateOptions{ProjectID: 999, Description: "x", Likelihood: "low", Impact: "low"})
	require.ErrorAs(t, err, new(engine.NotFoundError))

	updated, err := env.Engine.UpdateRisk(env.Ctx, env.Admin, high.ID, engine.RiskUpdateOptions{Status: domain.RiskMitigated, Mitigation: ptr("re-scoped")})
	require.NoError(t, err)
	require.Equal(t, domain.RiskMitigated, updated.Status)
	require.Equal(t, "re-scoped", updated.Mitigation)

	risks, err := env.Engine.ListRisks(env.Ctx, env.Admin, d.Project.ID)
	require.NoError(t, err)
	require.Len(t, risks, 2)
	require.Equal(t, low.ID, risks[0].ID)

	_, err = env.Engine.UpdateRisk(env.Ctx, env.Admin, 999, engine.RiskUpdateOptions{Status: domain.RiskClosed})
	require.ErrorAs(t, err, new(engine.NotFoundError))
	_, err = env.Engine.UpdateRisk(env.Ctx, env.Admin, low.ID, engine.RiskUpdateOptions{Status: "gone"})
	require.ErrorAs(t, err, new(engine.ValidationError))
}

func TestUpdateStage(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	id := d.Stages[0].ID

	st, err := env.Engine.UpdateStage(env.Ctx, env.Admin, id, engine.StageUpdateOptions{Status: domain.StageInProgress, DueDate: ptr("2026-03-31")})
	require.NoError(t, err)
	require.Equal(t, domain.StageInProgress, st.Status)
	require.Equal(t, "2026-03-31", *st.DueDate)

	st, err = env.Engine.UpdateStage(env.Ctx, env.Admin, id, engine.StageUpdateOptions{Status: domain.StageCompleted})
	require.NoError(t, err)
	require.Nil(t, st.DueDate)

	_, err = env.Engine.UpdateStage(env.Ctx, env.Admin, id, engine.StageUpdateOptions{Status: "done"})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.UpdateStage(env.Ctx, env.Admin, 999, engine.StageUpdateOptions{Status: domain.StagePending})
	require.ErrorAs(t, err, new(engine.NotFoundError))
}

func TestUsersAndClients(t *testing.T) {
	env := newTestEnv(t)

	u, err := env.Engine.CreateUser(env.Ctx, env.Admin, engine.UserCreateOptions{Email: " Dana@Example.com ", Name: "Dana"})
	require.NoError(t, err)
	require.Equal(t, "dana@example.com", u.Email)
	require.Equal(t, "specialist", u.Role)

	_, err = env.Engine.CreateUser(env.Ctx, env.Admin, engine.UserCreateOptions{Email: "dana@example.com", Name: "Dana 2"})
	require.ErrorAs(t, err, new(engine.ConflictError))
	_, err = env.Engine.CreateUser(env.Ctx, env.Admin, engine.UserCreateOptions{Email: "nobody", Name: "x"})
	require.ErrorAs(t, err, new(engine.ValidationError))
	_, err = env.Engine.CreateUser(env.Ctx, env.Admin, engine.UserCreateOptions{Email: "a@b.c", Name: "x", Role: "intern"})
	require.ErrorAs(t, err, new(engine.ValidationError))

	me, err := env.Engine.Me(env.Ctx, domain.Actor{UserID: u.ID})
	require.NoError(t, err)
	require.Equal(t, u.ID, me.ID)

	c, err := env.Engine.CreateClient(env.Ctx, env.Admin, engine.ClientCreateOptions{Name: "Globex", Sector: "energy"})
	require.NoError(t, err)
	require.Equal(t, "active", c.Status)
	_, err = env.Engine.CreateClient(env.Ctx, env.Admin, engine.ClientCreateOptions{Name: "Initech", Status: "dormant"})
	require.ErrorAs(t, err, new(engine.ValidationError))

	clients, err := env.Engine.ListClients(env.Ctx, env.Admin)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	_, err = env.Engine.GetClient(env.Ctx, env.Admin, 999)
	require.ErrorAs(t, err, new(engine.NotFoundError))
}

func TestAPIKeys(t *testing.T) {
	env := newTestEnv(t)
	issued, err := env.Engine.CreateAPIKey(env.Ctx, env.Admin, env.Admin.UserID, "ci")
	require.NoError(t, err)
	require.Contains(t, issued.Secret, "dk_")
	require.NotEqual(t, issued.Secret, issued.Key.KeyHash)

	u, err := env.Engine.AuthenticateAPIKey(env.Ctx, issued.Secret)
	require.NoError(t, err)
	require.Equal(t, env.Admin.UserID, u.ID)

	_, err = env.Engine.AuthenticateAPIKey(env.Ctx, "dk_wrong")
	require.ErrorAs(t, err, new(engine.NotFoundError))

	keys, err := env.Engine.ListAPIKeys(env.Ctx, env.Admin, env.Admin.UserID)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	require.NoError(t, env.Engine.RevokeAPIKey(env.Ctx, env.Admin, issued.Key.ID))
	_, err = env.Engine.AuthenticateAPIKey(env.Ctx, issued.Secret)
	require.ErrorAs(t, err, new(engine.NotFoundError))
	require.ErrorAs(t, env.Engine.RevokeAPIKey(env.Ctx, env.Admin, issued.Key.ID), new(engine.NotFoundError))

	_, err = env.Engine.CreateAPIKey(env.Ctx, env.Admin, 999, "x")
	require.ErrorAs(t, err, new(engine.NotFoundError))
}

func TestNegativeOwnerIsRejected(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})

	var ve engine.ValidationError
	_, err := env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{OwnerID: ptr(int64(-5))})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "owner_id", ve.Field)

	_, err = env.Engine.CreateTask(env.Ctx, env.Admin, engine.TaskCreateOptions{ProjectID: d.Project.ID, Title: "x", OwnerID: ptr(int64(-1))})
	require.ErrorAs(t, err, &ve)

	_, err = env.Engine.OpenApproval(env.Ctx, env.Admin, engine.ApprovalOpenOptions{TaskID: task.ID, SeniorApproverID: ptr(int64(-2))})
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "senior_approver_id", ve.Field)

	cleared, err := env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{OwnerID: ptr(int64(0))})
	require.NoError(t, err)
	require.Nil(t, cleared.OwnerID)
}

func TestWriteFailuresAreLabelledAsWrites(t *testing.T) {
	env := newTestEnv(t)
	d := env.project(t)
	rk, err := env.Engine.CreateRisk(env.Ctx, env.Admin, engine.RiskCreateOptions{ProjectID: d.Project.ID, Description: "vendor slip", Likelihood: "low", Impact: "low"})
	require.NoError(t, err)
	task := env.task(t, d.Project.ID, engine.TaskCreateOptions{})

	_, err = env.Engine.DB.Exec(`CREATE TRIGGER no_risk_updates BEFORE UPDATE ON risks BEGIN SELECT RAISE(ABORT, 'risks are frozen'); END`)
	require.NoError(t, err)
	_, err = env.Engine.DB.Exec(`CREATE TRIGGER no_task_updates BEFORE UPDATE ON tasks BEGIN SELECT RAISE(ABORT, 'tasks are frozen'); END`)
	require.NoError(t, err)

	var se engine.StoreError
	_, err = env.Engine.UpdateRisk(env.Ctx, env.Admin, rk.ID, engine.RiskUpdateOptions{Status: domain.RiskClosed})
	require.ErrorAs(t, err, &se)
	require.Equal(t, "update risk", se.Op)
	require.Contains(t, err.Error(), "risks are frozen")

	_, err = env.Engine.UpdateTask(env.Ctx, env.Admin, task.ID, engine.TaskUpdateOptions{Priority: ptr(domain.PriorityHigh)})
	require.ErrorAs(t, err, &se)
	require.Equal(t, "update task", se.Op)

	_, err = env.Engine.UpdateRisk(env.Ctx, env.Admin, 999, engine.RiskUpdateOptions{Status: domain.RiskClosed})
	require.ErrorAs(t, err, new(engine.NotFoundError))
}

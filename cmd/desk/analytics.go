package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

func riskCmd() *cobra.Command {
	r := &cobra.Command{Use: "risk", Short: "Manage project risks"}

	var (
		opts  engine.RiskCreateOptions
		owner int64
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Record an open risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.OwnerID = optionalID(owner)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rk, err := e.CreateRisk(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(rk)
			})
		},
	}
	create.Flags().Int64Var(&opts.ProjectID, "project-id", 0, "project id")
	create.Flags().StringVar(&opts.Description, "description", "", "description")
	create.Flags().StringVar(&opts.Likelihood, "likelihood", "medium", "low|medium|high")
	create.Flags().StringVar(&opts.Impact, "impact", "medium", "low|medium|high")
	create.Flags().StringVar(&opts.Mitigation, "mitigation", "", "mitigation plan")
	create.Flags().Int64Var(&owner, "owner-id", 0, "owner user id")
	_ = create.MarkFlagRequired("project-id")
	_ = create.MarkFlagRequired("description")
	r.AddCommand(create)

	var listProject int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List risks, open first, highest impact first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				risks, err := e.ListRisks(ctx, actor(), listProject)
				if err != nil {
					return err
				}
				return printRows(risks, table.Row{"ID", "Project", "Description", "Likelihood", "Impact", "Status"}, func(r domain.Risk) table.Row {
					return table.Row{r.ID, r.ProjectID, r.Description, r.Likelihood, r.Impact, r.Status}
				})
			})
		},
	}
	list.Flags().Int64Var(&listProject, "project-id", 0, "project filter")
	r.AddCommand(list)

	var status, mitigation string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change risk status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			upd := engine.RiskUpdateOptions{Status: status}
			if cmd.Flags().Changed("mitigation") {
				upd.Mitigation = &mitigation
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rk, err := e.UpdateRisk(ctx, actor(), id, upd)
				if err != nil {
					return err
				}
				return printJSONOrTable(rk)
			})
		},
	}
	update.Flags().StringVar(&status, "status", "", "open|mitigated|closed")
	update.Flags().StringVar(&mitigation, "mitigation", "", "mitigation plan")
	_ = update.MarkFlagRequired("status")
	r.AddCommand(update)
	return r
}

func escalationCmd() *cobra.Command {
	esc := &cobra.Command{Use: "escalation", Short: "Raise and list escalations"}

	var (
		opts           engine.EscalationCreateOptions
		task, assignee int64
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Raise an escalation (counts toward this month's KPIs)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.TaskID = optionalID(task)
			opts.AssignedTo = optionalID(assignee)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.CreateEscalation(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	create.Flags().Int64Var(&opts.ProjectID, "project-id", 0, "project id")
	create.Flags().Int64Var(&task, "task-id", 0, "related task id")
	create.Flags().StringVar(&opts.Description, "description", "", "description")
	create.Flags().StringVar(&opts.Severity, "severity", "medium", "low|medium|high|critical")
	create.Flags().Int64Var(&assignee, "assign-to", 0, "assignee user id")
	_ = create.MarkFlagRequired("project-id")
	_ = create.MarkFlagRequired("description")
	esc.AddCommand(create)

	var (
		project int64
		status  string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List escalations, most severe first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListEscalations(ctx, actor(), project, status)
				if err != nil {
					return err
				}
				return printRows(items, table.Row{"ID", "Project", "Severity", "Status", "Description", "Raised"}, func(x domain.Escalation) table.Row {
					return table.Row{x.ID, x.ProjectID, x.Severity, x.Status, x.Description, x.CreatedAt}
				})
			})
		},
	}
	list.Flags().Int64Var(&project, "project-id", 0, "project filter")
	list.Flags().StringVar(&status, "status", "", "open|resolved")
	esc.AddCommand(list)
	return esc
}

func analyticsCmd() *cobra.Command {
	a := &cobra.Command{Use: "analytics", Short: "KPI and health rollups"}

	var period string
	overview := &cobra.Command{
		Use:   "overview",
		Short: "KPI counts and workload counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.Overview(ctx, actor(), period)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(o)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.SetTitle("Overview " + o.Period)
				for _, k := range o.KPICounts {
					tw.AppendRow(table.Row{"kpi: " + k.Type, k.Count})
				}
				tw.AppendSeparator()
				tw.AppendRow(table.Row{"overdue tasks", o.OverdueTasks})
				tw.AppendRow(table.Row{fmt.Sprintf("due in %d days", o.DueSoonDays), o.TasksDueThisWeek})
				tw.AppendRow(table.Row{"open risks", o.OpenRisks})
				tw.AppendRow(table.Row{"pending approvals", o.PendingApprovals})
				tw.Render()
				return nil
			})
		},
	}
	overview.Flags().StringVar(&period, "period", "", "YYYY-MM (default current month)")
	a.AddCommand(overview)

	a.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Health of active projects, most overdue first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rows, err := e.ProjectHealth(ctx, actor())
				if err != nil {
					return err
				}
				return printRows(rows, table.Row{"ID", "Project", "Tasks", "Done", "Overdue", "Open risks", "Health"}, func(h domain.ProjectHealth) table.Row {
					return table.Row{h.ProjectID, h.Name, h.TotalTasks, h.CompletedTasks, h.OverdueTasks, h.OpenRisks, h.Health}
				})
			})
		},
	})
	return a
}

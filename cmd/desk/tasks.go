package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
)

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	t.AddCommand(taskCreateCmd())
	t.AddCommand(taskListCmd())
	t.AddCommand(taskShowCmd())
	t.AddCommand(taskUpdateCmd())
	return t
}

func taskCreateCmd() *cobra.Command {
	var (
		opts         engine.TaskCreateOptions
		stage, owner int64
		due          string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.StageID = optionalID(stage)
			opts.OwnerID = optionalID(owner)
			opts.DueDate = optionalString(due)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				task, err := e.CreateTask(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	cmd.Flags().Int64Var(&opts.ProjectID, "project-id", 0, "project id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Int64Var(&stage, "stage-id", 0, "stage id (must belong to the project)")
	cmd.Flags().Int64Var(&owner, "owner-id", 0, "owner user id")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.Priority, "priority", domain.PriorityMedium, "urgent|high|medium|low")
	cmd.Flags().StringVar(&opts.ContractRef, "contract-ref", "", "contract reference")
	_ = cmd.MarkFlagRequired("project-id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var opts engine.TaskListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by priority, then due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printRows(tasks, table.Row{"ID", "Project", "Title", "Priority", "Status", "Owner", "Due"}, func(t domain.Task) table.Row {
					return table.Row{t.ID, t.ProjectID, t.Title, t.Priority, t.Status, deref(t.OwnerID), deref(t.DueDate)}
				})
			})
		},
	}
	cmd.Flags().Int64Var(&opts.ProjectID, "project-id", 0, "project filter")
	cmd.Flags().Int64Var(&opts.OwnerID, "owner-id", 0, "owner filter")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", `AIP-160 filter, e.g. 'priority = "urgent" AND due_date < "2026-04-01"'`)
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				task, err := e.GetTask(ctx, actor(), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var (
		status, description, due, priority string
		owner                              int64
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields; only flags given are changed (--due '' clears the due date)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var opts engine.TaskUpdateOptions
			if cmd.Flags().Changed("status") {
				opts.Status = &status
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("owner-id") {
				opts.OwnerID = &owner
			}
			if cmd.Flags().Changed("due") {
				opts.DueDate = &due
			}
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				task, err := e.UpdateTask(ctx, actor(), id, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().Int64Var(&owner, "owner-id", 0, "owner user id (0 clears)")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD")
	cmd.Flags().StringVar(&priority, "priority", "", "urgent|high|medium|low")
	return cmd
}

func approvalCmd() *cobra.Command {
	a := &cobra.Command{Use: "approval", Short: "Two-stage review of tasks"}

	var taskID, peer, senior int64
	open := &cobra.Command{
		Use:   "open",
		Short: "Open an approval; the task moves to review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ap, err := e.OpenApproval(ctx, actor(), engine.ApprovalOpenOptions{
					TaskID:           taskID,
					PeerReviewerID:   optionalID(peer),
					SeniorApproverID: optionalID(senior),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ap)
			})
		},
	}
	open.Flags().Int64Var(&taskID, "task-id", 0, "task id")
	open.Flags().Int64Var(&peer, "peer", 0, "peer reviewer user id")
	open.Flags().Int64Var(&senior, "senior", 0, "senior approver user id")
	_ = open.MarkFlagRequired("task-id")
	a.AddCommand(open)

	var pendingFor int64
	pending := &cobra.Command{
		Use:   "pending",
		Short: "Approvals waiting on a user (defaults to --user-id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.ListPendingApprovals(ctx, actor(), pendingFor)
				if err != nil {
					return err
				}
				return printApprovals(list)
			})
		},
	}
	pending.Flags().Int64Var(&pendingFor, "for-user", 0, "reviewer user id")
	a.AddCommand(pending)

	var listTask int64
	list := &cobra.Command{
		Use:   "list",
		Short: "Approvals opened on a task, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListApprovalsForTask(ctx, actor(), listTask)
				if err != nil {
					return err
				}
				return printApprovals(items)
			})
		},
	}
	list.Flags().Int64Var(&listTask, "task-id", 0, "task id")
	_ = list.MarkFlagRequired("task-id")
	a.AddCommand(list)

	a.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show an approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ap, err := e.GetApproval(ctx, actor(), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(ap)
			})
		},
	})

	a.AddCommand(decisionCmd("peer", "Record the peer review decision", func(ctx context.Context, e engine.Engine, id int64, opts engine.DecisionOptions) (domain.Approval, error) {
		return e.ResolvePeer(ctx, actor(), id, opts)
	}))
	a.AddCommand(decisionCmd("senior", "Record the senior decision; approval approves the task", func(ctx context.Context, e engine.Engine, id int64, opts engine.DecisionOptions) (domain.Approval, error) {
		return e.ResolveSenior(ctx, actor(), id, opts)
	}))
	return a
}

type resolveFunc func(ctx context.Context, e engine.Engine, id int64, opts engine.DecisionOptions) (domain.Approval, error)

func decisionCmd(use, short string, resolve resolveFunc) *cobra.Command {
	var status, notes string
	cmd := &cobra.Command{
		Use:   use + " <approval-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ap, err := resolve(ctx, e, id, engine.DecisionOptions{Status: status, Notes: optionalString(notes)})
				if err != nil {
					return err
				}
				return printJSONOrTable(ap)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "approved|rejected")
	cmd.Flags().StringVar(&notes, "notes", "", "review notes")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func printApprovals(items []domain.Approval) error {
	return printRows(items, table.Row{"ID", "Task", "Peer", "Peer status", "Senior", "Senior status", "Created"}, func(a domain.Approval) table.Row {
		return table.Row{a.ID, a.TaskID, deref(a.PeerReviewerID), a.PeerStatus, deref(a.SeniorApproverID), a.SeniorStatus, a.CreatedAt}
	})
}

package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"agencydesk/internal/domain"
	"agencydesk/internal/engine"
	"agencydesk/internal/repo"
)

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectStatusCmd())
	prj.AddCommand(projectReprovisionCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var (
		opts       engine.ProjectCreateOptions
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project with its six stages and five mandatory files",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.StartDate = optionalString(start)
			opts.EndDate = optionalString(end)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateProject(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	cmd.Flags().Int64Var(&opts.ClientID, "client-id", 0, "client id")
	cmd.Flags().Int64Var(&opts.LeadID, "lead-id", 0, "project lead user id")
	cmd.Flags().StringVar(&opts.Name, "name", "", "project name")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("client-id")
	_ = cmd.MarkFlagRequired("lead-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var f repo.ProjectFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProjects(ctx, actor(), f)
				if err != nil {
					return err
				}
				return printRows(items, table.Row{"ID", "Name", "Client", "Lead", "Status", "Start", "End"}, func(p domain.Project) table.Row {
					return table.Row{p.ID, p.Name, p.ClientID, p.LeadID, p.Status, deref(p.StartDate), deref(p.EndDate)}
				})
			})
		},
	}
	cmd.Flags().Int64Var(&f.ClientID, "client-id", 0, "client filter")
	cmd.Flags().Int64Var(&f.LeadID, "lead-id", 0, "lead filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project with stages, files and risks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.GetProject(ctx, actor(), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
}

func projectStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <active|completed|on_hold|cancelled>",
		Short: "Change project status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.UpdateProjectStatus(ctx, actor(), id, args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectReprovisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprovision <id>",
		Short: "Recreate any missing stages and mandatory files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.ReprovisionProject(ctx, actor(), id)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
}

func stageCmd() *cobra.Command {
	st := &cobra.Command{Use: "stage", Short: "Manage project stages"}
	var status, due string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Set stage status and due date (omitting --due clears it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.UpdateStage(ctx, actor(), id, engine.StageUpdateOptions{Status: status, DueDate: optionalString(due)})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	update.Flags().StringVar(&status, "status", "", "pending|in_progress|completed")
	update.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD")
	_ = update.MarkFlagRequired("status")
	st.AddCommand(update)

	st.AddCommand(&cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's stages in canonical order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.GetProject(ctx, actor(), id)
				if err != nil {
					return err
				}
				if len(d.Stages) == 0 {
					return fmt.Errorf("project %d has no stages; run desk project reprovision %d", id, id)
				}
				return printRows(d.Stages, table.Row{"ID", "Type", "Status", "Due"}, func(s domain.Stage) table.Row {
					return table.Row{s.ID, s.Type, s.Status, deref(s.DueDate)}
				})
			})
		},
	})
	return st
}

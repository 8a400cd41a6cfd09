package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"agencydesk/internal/engine"
)

func briefCmd() *cobra.Command {
	b := &cobra.Command{Use: "brief", Short: "Project briefs and client sign-off"}

	var opts engine.BriefCreateOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project's brief as a draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				brief, err := e.CreateBrief(ctx, actor(), opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(brief)
			})
		},
	}
	create.Flags().Int64Var(&opts.ProjectID, "project-id", 0, "project id")
	create.Flags().StringVar(&opts.Objectives, "objectives", "", "campaign objectives")
	create.Flags().StringVar(&opts.Audience, "audience", "", "target audience")
	create.Flags().StringVar(&opts.Tone, "tone", "", "tone of voice")
	create.Flags().StringSliceVar(&opts.Channels, "channel", nil, "channel (repeatable)")
	create.Flags().StringVar(&opts.Timeline, "timeline", "", "timeline summary")
	create.Flags().StringSliceVar(&opts.ApprovalsRequired, "approval", nil, "required approval (repeatable)")
	_ = create.MarkFlagRequired("project-id")
	_ = create.MarkFlagRequired("objectives")
	b.AddCommand(create)

	b.AddCommand(&cobra.Command{
		Use:   "show <project-id>",
		Short: "Show a project's brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				brief, err := e.GetProjectBrief(ctx, actor(), projectID)
				if err != nil {
					return err
				}
				return printJSONOrTable(brief)
			})
		},
	})

	var signedBy string
	signOff := &cobra.Command{
		Use:   "sign-off <brief-id>",
		Short: "Record the client's sign-off and approve the brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				brief, err := e.SignOffBrief(ctx, actor(), id, signedBy)
				if err != nil {
					return err
				}
				fmt.Printf("brief %d approved by %s\n", brief.ID, signedBy)
				return nil
			})
		},
	}
	signOff.Flags().StringVar(&signedBy, "by", "", "client signatory")
	_ = signOff.MarkFlagRequired("by")
	b.AddCommand(signOff)
	return b
}

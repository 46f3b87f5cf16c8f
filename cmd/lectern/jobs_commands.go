package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/queue"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage the job queue",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCompletedCommand(ctx))
	jobsCmd.AddCommand(newJobsClearFailedCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *cliEnv) error {
				var statuses []queue.Status
				for _, value := range listStatuses {
					statuses = append(statuses, queue.Status(strings.ToLower(strings.TrimSpace(value))))
				}
				jobs, err := env.jobs.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						job.ID,
						truncateCell(job.InputURL, 48),
						colorStatus(string(job.Status), colorize),
						fmt.Sprintf("%.0f%%", job.ProgressPercent),
						formatTimestamp(job.CreatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "URL", "Status", "Progress", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, running, completed, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *cliEnv) error {
				job, err := env.orchestrator.Resolve(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Job:         %s\n", job.ID)
				fmt.Fprintf(out, "URL:         %s\n", job.InputURL)
				if job.Requester != "" {
					fmt.Fprintf(out, "Requester:   %s\n", job.Requester)
				}
				fmt.Fprintf(out, "Status:      %s\n", colorStatus(string(job.Status), colorize))
				fmt.Fprintf(out, "Progress:    %.0f%%\n", job.ProgressPercent)
				if job.CurrentStage != "" {
					fmt.Fprintf(out, "Stage:       %s\n", job.CurrentStage)
				}
				fmt.Fprintf(out, "Fingerprint: %s\n", job.Fingerprint)
				if job.EstimatedSeconds > 0 {
					fmt.Fprintf(out, "Estimate:    ~%ds\n", job.EstimatedSeconds)
				}
				if job.FromCache {
					fmt.Fprintln(out, "Source:      cache")
				}
				fmt.Fprintf(out, "Created:     %s\n", formatTimestamp(job.CreatedAt))
				if job.CompletedAt != nil {
					fmt.Fprintf(out, "Completed:   %s\n", formatTimestamp(*job.CompletedAt))
				}
				if job.ErrorDetail != "" {
					fmt.Fprintf(out, "Error:       %s\n", job.ErrorDetail)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	return cmd
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show per-status job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *cliEnv) error {
				summary, err := env.jobs.Health(cmd.Context())
				if err != nil {
					return err
				}
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				rows := [][]string{
					{"pending", strconv.Itoa(summary.Pending)},
					{"running", strconv.Itoa(summary.Running)},
					{"completed", strconv.Itoa(summary.Completed)},
					{"failed", strconv.Itoa(summary.Failed)},
					{"total", strconv.Itoa(summary.Total)},
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newJobsClearCompletedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *cliEnv) error {
				removed, err := env.jobs.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed job(s)\n", removed)
				return nil
			})
		},
	}
}

func newJobsClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *cliEnv) error {
				removed, err := env.jobs.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed job(s)\n", removed)
				return nil
			})
		},
	}
}

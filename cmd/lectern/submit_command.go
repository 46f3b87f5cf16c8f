package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var requester string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a video URL for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			return ctx.withEnv(func(env *cliEnv) error {
				job, err := env.orchestrator.Submit(cmd.Context(), url, requester)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job.Snapshot())
				}
				out := cmd.OutOrStdout()
				if job.FromCache {
					fmt.Fprintf(out, "Served from cache: job %s is already complete\n", job.ID)
					fmt.Fprintf(out, "Fetch the material with: lectern result %s\n", job.ID)
					return nil
				}
				fmt.Fprintf(out, "Queued job %s\n", job.ID)
				if job.EstimatedSeconds > 0 {
					fmt.Fprintf(out, "Estimated processing time: ~%ds\n", job.EstimatedSeconds)
				}
				fmt.Fprintf(out, "Track progress with: lectern status %s\n", job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&requester, "requester", "r", "", "Requester recorded on the job")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the progress of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *cliEnv) error {
				snapshot, err := env.orchestrator.Status(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, snapshot)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Job:      %s\n", snapshot.JobID)
				fmt.Fprintf(out, "Status:   %s\n", colorStatus(string(snapshot.Status), colorize))
				fmt.Fprintf(out, "Progress: %.0f%%\n", snapshot.ProgressPercent)
				if snapshot.CurrentStage != "" {
					fmt.Fprintf(out, "Stage:    %s\n", snapshot.CurrentStage)
				}
				if snapshot.FromCache {
					fmt.Fprintln(out, "Source:   cache")
				}
				if snapshot.ErrorDetail != "" {
					fmt.Fprintf(out, "Error:    %s\n", snapshot.ErrorDetail)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable output")
	return cmd
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Print the learning material for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEnv(func(env *cliEnv) error {
				job, err := env.orchestrator.Resolve(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if job.Status != queue.StatusCompleted {
					return fmt.Errorf("job %s is %s, no result yet", job.ID, job.Status)
				}
				if raw {
					fmt.Fprintln(cmd.OutOrStdout(), job.ResultJSON)
					return nil
				}
				result, err := decodeJobResult(job.ResultJSON)
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the stored payload without re-encoding")
	return cmd
}

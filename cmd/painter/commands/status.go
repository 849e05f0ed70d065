package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

const lastErrorWidth = 60

func newStatusCommand(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List stored checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer env.Close()

			jobs, err := env.checkpoints.List(cmd.Context())
			if err != nil {
				return err
			}
			renderCheckpoints(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
}

func renderCheckpoints(w io.Writer, jobs []*models.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No checkpoints")
		return
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.AppendHeader(table.Row{"Repository", "Year", "Progress", "Tip", "Updated", "Last error"})

	for _, job := range jobs {
		percent := 0
		if job.TotalUnits > 0 {
			percent = job.CompletedUnits * 100 / job.TotalUnits
		}
		updated := ""
		if !job.UpdatedAt.IsZero() {
			updated = humanize.Time(job.UpdatedAt)
		}
		tip := job.TipSHA
		if len(tip) > 7 {
			tip = tip[:7]
		}
		lastError := job.LastError
		if len(lastError) > lastErrorWidth {
			lastError = lastError[:lastErrorWidth-3] + "..."
		}
		tbl.AppendRow(table.Row{
			job.OwnerLogin + "/" + job.RepositoryName,
			job.YearKey,
			fmt.Sprintf("%s/%s (%d%%)", humanize.Comma(int64(job.CompletedUnits)), humanize.Comma(int64(job.TotalUnits)), percent),
			tip,
			updated,
			lastError,
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d checkpoints", len(jobs))})
	fmt.Fprintln(w, tbl.Render())
}

func newDiscardCommand(global *globalFlags) *cobra.Command {
	flags := &jobFlags{}

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Delete the checkpoint of a job",
		Long: `Deletes a checkpoint so the next paint starts from the first commit.
Commits already on the branch are left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := flags.key("")
			if err != nil {
				return err
			}

			env, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer env.Close()

			job, err := env.checkpoints.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no checkpoint for %s/%s %s", key.OwnerLogin, key.RepositoryName, key.YearKey)
			}
			if err := env.checkpoints.Clear(cmd.Context(), key); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Discarded checkpoint for %s/%s %s (%d/%d commits)\n",
				key.OwnerLogin, key.RepositoryName, key.YearKey, job.CompletedUnits, job.TotalUnits)
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsLimit int

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "maximum number of jobs to show")

	rootCmd.AddCommand(jobsCmd)
}

var jobsCmd = &cobra.Command{
	Use:     "jobs",
	Aliases: []string{"ls"},
	Short:   "List past generation jobs",
	RunE:    runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	entries, err := e.history.List(cmd.Context(), jobsLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No jobs yet. Run 'genvid generate' or 'genvid avatar' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tKIND\tMODEL\tSTATUS\tARTIFACT\tCREATED")
	for _, job := range entries {
		status := "failed"
		if job.Success {
			status = "ok"
		}
		artifact := job.ArtifactPath
		if artifact == "" {
			artifact = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(job.ID),
			job.Kind,
			job.Model,
			status,
			artifact,
			job.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

// shortID trims a UUID to its first group for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

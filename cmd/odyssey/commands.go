package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-backoffice/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-backoffice/internal/app"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [bill.json]",
	Short: "Computes totals for a bill read from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		d, err := loadDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer d.Close()

		opts := cli.QuoteOptions{JSONOutput: jsonOutput, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			opts.Input = f
		}
		if code := cli.QuoteCommand(cmd.Context(), d.billing, opts); code != cli.ExitOK {
			d.Close()
			os.Exit(code)
		}
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manages background jobs",
}

var jobsTriggerCmd = &cobra.Command{
	Use:   "trigger <task>",
	Short: "Enqueues lookup:warmup or lookup:cache_bump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := jobsCLI()
		if err != nil {
			return err
		}
		defer c.Close()
		info, err := c.Trigger(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows the default queue state and scheduled tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		size, _ := cmd.Flags().GetInt("size")
		c, err := jobsCLI()
		if err != nil {
			return err
		}
		defer c.Close()
		stats, err := c.InspectQueue(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		tasks, err := c.ListScheduled(cmd.Context(), size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			_, _ = fmt.Fprintf(out, "  %s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}

func jobsCLI() (*cli.JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return cli.NewJobsCLI(cfg.RedisAddr), nil
}

func init() {
	quoteCmd.Flags().Bool("json", false, "print the quote as JSON")
	jobsStatsCmd.Flags().Int("size", 10, "number of scheduled tasks to list")
	jobsCmd.AddCommand(jobsTriggerCmd, jobsStatsCmd)
}

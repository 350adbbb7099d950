package cmd

import (
	"context"
	"time"

	"github.com/jjenkins/althingi/internal/service"
	"github.com/spf13/cobra"
)

var scheduleRunNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the configured import jobs on their cron schedules",
	Long: `Schedule runs in the foreground and starts each configured job on its
cron expression. A lock file keeps two processes from importing at the
same time, and a job still running when its next tick fires is skipped.

Jobs are configured under schedule.jobs; by default the catalog stages run
hourly and the vote and speech stages on the half hour.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Run every job once at startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return &service.ConfigurationError{Msg: "schedule", Err: err}
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	jobs := make([]service.Job, 0, len(cfg.Schedule.Jobs))
	for _, j := range cfg.Schedule.Jobs {
		jobs = append(jobs, service.Job{Name: j.Name, Cron: j.Cron, Stages: j.Stages, Session: j.Session})
	}

	scheduler, err := service.NewScheduler(a.pipeline, jobs, cfg.Schedule.LockFile, loc, logger)
	if err != nil {
		return err
	}

	if scheduleRunNow {
		for _, job := range scheduler.Jobs() {
			if _, err := scheduler.RunJob(ctx, job); err != nil {
				logger.WithField("job", job.Name).WithError(err).Error("Startup run failed")
			}
		}
	}

	scheduler.Start()
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return scheduler.Stop(stopCtx)
}

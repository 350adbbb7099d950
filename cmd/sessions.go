package cmd

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
	"github.com/spf13/cobra"
)

var sessionsDryRun bool

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage legislative sessions",
}

var sessionsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile sessions and the active session flag",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx, sessionsDryRun)
		if err != nil {
			return err
		}
		defer a.Close()

		stats := model.NewRunStats(model.StageSessions, 0)
		stats.RunID = uuid.NewString()
		stage, _ := a.registry.Get(model.StageSessions)
		err = stage.Run(ctx, nil, service.ImportOptions{}, stats)
		stats.Finish()
		if rerr := a.store.RecordRun(ctx, stats); rerr != nil {
			logger.WithError(rerr).Warn("Failed to record run")
		}
		if err != nil {
			return err
		}

		sessions, err := a.activity.Sessions(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			active := ""
			if s.IsActive {
				active = "yes"
			}
			rows = append(rows, []string{strconv.Itoa(s.Number), formatDate(s.StartDate.Time, s.StartDate.Valid), formatDate(s.EndDate.Time, s.EndDate.Valid), active})
		}
		fmt.Println(renderTable("Sessions", []string{"Session", "Start", "End", "Active"}, rows, 0))
		fmt.Println(renderRunStats([]*model.RunStats{stats}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsSyncCmd)
	sessionsSyncCmd.Flags().BoolVar(&sessionsDryRun, "dry-run", false, "Use an in-memory store instead of the database")
}

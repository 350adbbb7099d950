package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
	"github.com/spf13/cobra"
)

var (
	statsSession int
	statsMonths  int
	statsLimit   int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the activity summary of a session",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVarP(&statsSession, "session", "s", 0, "Session number (default: the active session)")
	statsCmd.Flags().IntVar(&statsMonths, "months", 12, "Number of months in the passed bills timeline")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 10, "Number of top speakers")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	st, db, err := openStore(ctx, false)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	activity := service.NewActivityService(st)

	session, err := activity.FindSession(ctx, statsSession)
	if err != nil {
		return err
	}
	if session == nil {
		if statsSession == 0 {
			return &service.ConfigurationError{Msg: "no active session stored; run `althingi sessions sync` or pass --session"}
		}
		return &service.ConfigurationError{Msg: fmt.Sprintf("session %d is not stored", statsSession)}
	}

	summary, err := activity.Summary(ctx, session, service.SummaryOptions{
		Months: statsMonths,
		Limit:  statsLimit,
		Now:    time.Now(),
	})
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s *model.SessionSummary) {
	statusRows := make([][]string, 0, len(model.AllBillStatuses))
	for _, status := range model.AllBillStatuses {
		statusRows = append(statusRows, []string{string(status), strconv.Itoa(s.StatusCounts[status])})
	}
	statusRows = append(statusRows, []string{"total", strconv.Itoa(s.TotalBills)})
	fmt.Println(renderTable(fmt.Sprintf("Bills, session %d", s.Session), []string{"Status", "Bills"}, statusRows, 1))

	cohesion := make(map[int64]model.PartyCohesion, len(s.Cohesion))
	for _, c := range s.Cohesion {
		cohesion[c.PartyID] = c
	}
	partyRows := make([][]string, 0, len(s.Tallies))
	for _, t := range s.Tallies {
		c := cohesion[t.PartyID]
		partyRows = append(partyRows, []string{
			t.PartyName,
			strconv.Itoa(t.Yes),
			strconv.Itoa(t.No),
			strconv.Itoa(t.Abstain),
			strconv.Itoa(t.Absent),
			strconv.Itoa(c.Bills),
			strconv.FormatFloat(c.Score, 'f', 2, 64),
		})
	}
	fmt.Println(renderTable("Party votes", []string{"Party", "Yes", "No", "Abstain", "Absent", "Bills", "Cohesion"}, partyRows, 1, 2, 3, 4, 5, 6))

	timelineRows := make([][]string, 0, len(s.Timeline))
	for _, m := range s.Timeline {
		timelineRows = append(timelineRows, []string{m.Month.Format("2006-01"), strconv.Itoa(m.Count)})
	}
	fmt.Println(renderTable("Passed bills per month", []string{"Month", "Passed"}, timelineRows, 1))

	speakerRows := make([][]string, 0, len(s.TopSpeakers))
	for i, sp := range s.TopSpeakers {
		speakerRows = append(speakerRows, []string{
			strconv.Itoa(i + 1),
			sp.Name,
			sp.PartyName,
			strconv.Itoa(sp.Speeches),
			(time.Duration(sp.Seconds) * time.Second).String(),
		})
	}
	fmt.Println(renderTable("Top speakers", []string{"#", "Name", "Party", "Speeches", "Speaking time"}, speakerRows, 0, 3, 4))
}

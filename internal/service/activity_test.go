package service

import (
	"context"
	"testing"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

func TestCohesionScores(t *testing.T) {
	parties := []model.Party{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	rows := []model.PartyVoteRow{
		{BillID: 10, PartyID: 1, Choice: model.VoteYes},
		{BillID: 10, PartyID: 1, Choice: model.VoteYes},
		{BillID: 10, PartyID: 1, Choice: model.VoteNo},
		{BillID: 10, PartyID: 1, Choice: model.VoteAbsent},
		{BillID: 11, PartyID: 1, Choice: model.VoteYes},
		{BillID: 11, PartyID: 1, Choice: model.VoteYes},
		{BillID: 12, PartyID: 1, Choice: model.VoteAbsent},
		{BillID: 10, PartyID: 2, Choice: model.VoteAbsent},
	}

	scores := CohesionScores(parties, rows)
	if len(scores) != 2 {
		t.Fatalf("got %d scores", len(scores))
	}
	a := scores[0]
	if a.PartyID != 1 || a.Bills != 2 || a.Score != 83.33 {
		t.Errorf("party A = %+v, want 2 bills scoring 83.33", a)
	}
	b := scores[1]
	if b.PartyID != 2 || b.Bills != 0 || b.Score != 0 {
		t.Errorf("party B = %+v, want zero", b)
	}
}

func TestCohesionIncludesUnlistedParties(t *testing.T) {
	rows := []model.PartyVoteRow{{BillID: 1, PartyID: 9, PartyName: "Utan", Choice: model.VoteNo}}
	scores := CohesionScores(nil, rows)
	if len(scores) != 1 || scores[0].PartyName != "Utan" || scores[0].Score != 100 {
		t.Errorf("scores = %+v", scores)
	}
}

func TestTallyVotes(t *testing.T) {
	parties := []model.Party{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	rows := []model.PartyVoteRow{
		{PartyID: 1, Choice: model.VoteYes},
		{PartyID: 1, Choice: model.VoteNo},
		{PartyID: 1, Choice: model.VoteAbstain},
		{PartyID: 1, Choice: model.VoteAbsent},
		{PartyID: 1, Choice: model.VoteYes},
	}
	tallies := TallyVotes(parties, rows)
	if len(tallies) != 2 {
		t.Fatalf("got %d tallies", len(tallies))
	}
	a := tallies[0]
	if a.Yes != 2 || a.No != 1 || a.Abstain != 1 || a.Absent != 1 || a.Total() != 5 {
		t.Errorf("tally A = %+v", a)
	}
	if tallies[1].Total() != 0 {
		t.Errorf("tally B = %+v, want zero", tallies[1])
	}
}

func TestMonthlyCounts(t *testing.T) {
	now := time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC)
	dates := []time.Time{
		time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 31, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
	}

	got := MonthlyCounts(dates, 3, now)
	want := []struct {
		month time.Month
		count int
	}{{time.September, 0}, {time.October, 2}, {time.November, 1}}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets", len(got))
	}
	for i, w := range want {
		if got[i].Month.Month() != w.month || got[i].Count != w.count {
			t.Errorf("bucket %d = %s %d, want %s %d", i, got[i].Month.Month(), got[i].Count, w.month, w.count)
		}
	}

	if n := len(MonthlyCounts(nil, 0, now)); n != defaultTimelineMonths {
		t.Errorf("default months = %d", n)
	}
	if n := len(MonthlyCounts(nil, 1_000_000_000, now)); n != maxTimelineMonths {
		t.Errorf("capped months = %d", n)
	}
}

func TestMonthlyCountsAcrossYearBoundary(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	got := MonthlyCounts([]time.Time{time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)}, 2, now)
	if got[0].Month.Year() != 2025 || got[0].Month.Month() != time.December || got[0].Count != 1 {
		t.Errorf("first bucket = %+v", got[0])
	}
}

func TestRankSpeakers(t *testing.T) {
	totals := []model.SpeakerTotal{
		{Name: "Cecilía", Seconds: 100},
		{Name: "Anna", Seconds: 300},
		{Name: "Björn", Seconds: 300},
		{Name: "Dagur", Seconds: 50},
	}
	got := RankSpeakers(totals, 3)
	names := []string{"Anna", "Björn", "Cecilía"}
	if len(got) != len(names) {
		t.Fatalf("got %d speakers", len(got))
	}
	for i, n := range names {
		if got[i].Name != n {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].Name, n)
		}
	}
	if totals[0].Name != "Cecilía" {
		t.Error("RankSpeakers reordered its input")
	}
	if got := RankSpeakers(nil, 5); got == nil || len(got) != 0 {
		t.Errorf("empty input = %#v, want empty slice", got)
	}
}

type fakeStats struct {
	sessions []model.Session
	parties  []model.Party
	statuses map[model.BillStatus]int
	votes    []model.PartyVoteRow
	passed   []time.Time
	speakers []model.SpeakerTotal
}

func (f *fakeStats) ListSessions(context.Context) ([]model.Session, error) { return f.sessions, nil }
func (f *fakeStats) ListParties(context.Context) ([]model.Party, error)    { return f.parties, nil }
func (f *fakeStats) BillStatusCounts(context.Context, int64) (map[model.BillStatus]int, error) {
	return f.statuses, nil
}
func (f *fakeStats) PartyVoteRows(context.Context, int64) ([]model.PartyVoteRow, error) {
	return f.votes, nil
}
func (f *fakeStats) PassedBillDates(context.Context, int64) ([]time.Time, error) {
	return f.passed, nil
}
func (f *fakeStats) SpeakerTotals(context.Context, int64) ([]model.SpeakerTotal, error) {
	return f.speakers, nil
}

func TestActivitySummary(t *testing.T) {
	now := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
	src := &fakeStats{
		sessions: []model.Session{{ID: 2, Number: 156, IsActive: true}, {ID: 1, Number: 155}},
		parties:  []model.Party{{ID: 1, Name: "A"}},
		statuses: map[model.BillStatus]int{model.StatusPassed: 2, model.StatusInCommittee: 3},
		votes:    []model.PartyVoteRow{{BillID: 1, PartyID: 1, Choice: model.VoteYes}},
		passed:   []time.Time{now, now},
		speakers: []model.SpeakerTotal{{Name: "Anna", Seconds: 60}},
	}
	activity := NewActivityService(src)
	ctx := context.Background()

	active, err := activity.FindSession(ctx, 0)
	if err != nil || active == nil || active.Number != 156 {
		t.Fatalf("active session = %+v, %v", active, err)
	}
	if s, _ := activity.FindSession(ctx, 999); s != nil {
		t.Errorf("unknown session = %+v, want nil", s)
	}

	summary, err := activity.Summary(ctx, active, SummaryOptions{Months: 6, Limit: 5, Now: now})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Session != 156 || summary.TotalBills != 5 {
		t.Errorf("summary header = %d/%d", summary.Session, summary.TotalBills)
	}
	if len(summary.StatusCounts) != len(model.AllBillStatuses) || summary.StatusCounts[model.StatusRejected] != 0 {
		t.Errorf("status counts not zero filled: %v", summary.StatusCounts)
	}
	if len(summary.Timeline) != 6 || summary.Timeline[5].Count != 2 {
		t.Errorf("timeline = %+v", summary.Timeline)
	}
	if len(summary.Cohesion) != 1 || summary.Cohesion[0].Score != 100 {
		t.Errorf("cohesion = %+v", summary.Cohesion)
	}
	if len(summary.TopSpeakers) != 1 {
		t.Errorf("speakers = %+v", summary.TopSpeakers)
	}
}

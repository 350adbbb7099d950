package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

const (
	defaultTimelineMonths = 12
	maxTimelineMonths     = 120
	defaultSpeakerLimit   = 10
)

// ActivityService computes session activity metrics
type ActivityService struct {
	source StatsSource
}

// NewActivityService creates a new ActivityService
func NewActivityService(source StatsSource) *ActivityService {
	return &ActivityService{source: source}
}

// FindSession returns the stored session with the given number, or the
// active session when number is 0. It returns nil when none matches.
func (a *ActivityService) FindSession(ctx context.Context, number int) (*model.Session, error) {
	sessions, err := a.source.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for i := range sessions {
		s := &sessions[i]
		if (number == 0 && s.IsActive) || (number != 0 && s.Number == number) {
			return s, nil
		}
	}
	return nil, nil
}

// Sessions lists stored sessions, newest first
func (a *ActivityService) Sessions(ctx context.Context) ([]model.Session, error) {
	sessions, err := a.source.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Parties returns stored parties keyed by id
func (a *ActivityService) Parties(ctx context.Context) (map[int64]model.Party, error) {
	parties, err := a.source.ListParties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	byID := make(map[int64]model.Party, len(parties))
	for _, p := range parties {
		byID[p.ID] = p
	}
	return byID, nil
}

// BillStatusCounts returns the count of every status, zero-filled, and the
// total number of bills
func (a *ActivityService) BillStatusCounts(ctx context.Context, sessionID int64) (map[model.BillStatus]int, int, error) {
	raw, err := a.source.BillStatusCounts(ctx, sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bill statuses: %w", err)
	}
	counts := make(map[model.BillStatus]int, len(model.AllBillStatuses))
	for _, s := range model.AllBillStatuses {
		counts[s] = 0
	}
	total := 0
	for s, n := range raw {
		counts[s] += n
		total += n
	}
	return counts, total, nil
}

// PartyVoteTallies counts ballots per choice for every party
func (a *ActivityService) PartyVoteTallies(ctx context.Context, sessionID int64) ([]model.PartyTally, error) {
	parties, rows, err := a.partyVotes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return TallyVotes(parties, rows), nil
}

// PartyCohesion scores every party by how often its members vote with the
// party majority
func (a *ActivityService) PartyCohesion(ctx context.Context, sessionID int64) ([]model.PartyCohesion, error) {
	parties, rows, err := a.partyVotes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return CohesionScores(parties, rows), nil
}

func (a *ActivityService) partyVotes(ctx context.Context, sessionID int64) ([]model.Party, []model.PartyVoteRow, error) {
	parties, err := a.source.ListParties(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list parties: %w", err)
	}
	rows, err := a.source.PartyVoteRows(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load party votes: %w", err)
	}
	return parties, rows, nil
}

// PassedTimeline counts passed bills per calendar month over the months
// ending with the month of now, oldest first
func (a *ActivityService) PassedTimeline(ctx context.Context, sessionID int64, months int, now time.Time) ([]model.MonthCount, error) {
	dates, err := a.source.PassedBillDates(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load passed bills: %w", err)
	}
	return MonthlyCounts(dates, months, now), nil
}

// TopSpeakers ranks legislators by cumulative speaking time
func (a *ActivityService) TopSpeakers(ctx context.Context, sessionID int64, limit int) ([]model.SpeakerTotal, error) {
	totals, err := a.source.SpeakerTotals(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load speaker totals: %w", err)
	}
	return RankSpeakers(totals, limit), nil
}

// SummaryOptions bounds the list-valued parts of a summary
type SummaryOptions struct {
	Months int
	Limit  int
	Now    time.Time
}

// Summary computes every metric for a session, or for all sessions when
// session is nil
func (a *ActivityService) Summary(ctx context.Context, session *model.Session, opts SummaryOptions) (*model.SessionSummary, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	sessionID := scopeID(session)
	summary := &model.SessionSummary{}
	if session != nil {
		summary.Session = session.Number
	}

	var err error
	if summary.StatusCounts, summary.TotalBills, err = a.BillStatusCounts(ctx, sessionID); err != nil {
		return nil, err
	}

	parties, rows, err := a.partyVotes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary.Tallies = TallyVotes(parties, rows)
	summary.Cohesion = CohesionScores(parties, rows)

	if summary.Timeline, err = a.PassedTimeline(ctx, sessionID, opts.Months, opts.Now); err != nil {
		return nil, err
	}
	if summary.TopSpeakers, err = a.TopSpeakers(ctx, sessionID, opts.Limit); err != nil {
		return nil, err
	}
	return summary, nil
}

// TallyVotes counts ballots per party. Every party is listed, parties
// without ballots with zero counts.
func TallyVotes(parties []model.Party, rows []model.PartyVoteRow) []model.PartyTally {
	index := make(map[int64]int, len(parties))
	tallies := make([]model.PartyTally, 0, len(parties))
	for _, p := range parties {
		index[p.ID] = len(tallies)
		tallies = append(tallies, model.PartyTally{PartyID: p.ID, PartyName: p.Name})
	}

	for _, r := range rows {
		i, ok := index[r.PartyID]
		if !ok {
			index[r.PartyID] = len(tallies)
			i = len(tallies)
			tallies = append(tallies, model.PartyTally{PartyID: r.PartyID, PartyName: r.PartyName})
		}
		t := &tallies[i]
		switch r.Choice {
		case model.VoteYes:
			t.Yes++
		case model.VoteNo:
			t.No++
		case model.VoteAbsent:
			t.Absent++
		default:
			t.Abstain++
		}
	}
	return tallies
}

// CohesionScores computes, per party, the mean over bills of the share of
// non-absent party ballots equal to the party's most common choice, scaled
// to 0-100. A party with no non-absent ballots scores 0.
func CohesionScores(parties []model.Party, rows []model.PartyVoteRow) []model.PartyCohesion {
	type billKey struct {
		party int64
		bill  int64
	}
	counts := make(map[billKey]map[model.VoteChoice]int)
	names := make(map[int64]string, len(parties))
	order := make([]int64, 0, len(parties))
	for _, p := range parties {
		names[p.ID] = p.Name
		order = append(order, p.ID)
	}

	for _, r := range rows {
		if _, ok := names[r.PartyID]; !ok {
			names[r.PartyID] = r.PartyName
			order = append(order, r.PartyID)
		}
		if r.Choice == model.VoteAbsent {
			continue
		}
		k := billKey{party: r.PartyID, bill: r.BillID}
		if counts[k] == nil {
			counts[k] = make(map[model.VoteChoice]int)
		}
		counts[k][r.Choice]++
	}

	sums := make(map[int64]float64)
	bills := make(map[int64]int)
	for k, choices := range counts {
		total, majority := 0, 0
		for _, n := range choices {
			total += n
			if n > majority {
				majority = n
			}
		}
		if total == 0 {
			continue
		}
		sums[k.party] += float64(majority) / float64(total)
		bills[k.party]++
	}

	scores := make([]model.PartyCohesion, 0, len(order))
	for _, id := range order {
		c := model.PartyCohesion{PartyID: id, PartyName: names[id], Bills: bills[id]}
		if c.Bills > 0 {
			c.Score = math.Round(sums[id]/float64(c.Bills)*100*100) / 100
		}
		scores = append(scores, c)
	}
	return scores
}

// MonthlyCounts buckets dates into the trailing months ending with the
// month of now, zero-filled and oldest first. months is capped at ten years.
func MonthlyCounts(dates []time.Time, months int, now time.Time) []model.MonthCount {
	if months <= 0 {
		months = defaultTimelineMonths
	}
	months = min(months, maxTimelineMonths)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	buckets := make([]model.MonthCount, months)
	index := make(map[time.Time]int, months)
	for i := 0; i < months; i++ {
		m := current.AddDate(0, i-months+1, 0)
		buckets[i] = model.MonthCount{Month: m}
		index[m] = i
	}
	for _, d := range dates {
		m := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		if i, ok := index[m]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

// RankSpeakers orders totals by speaking time, longest first, ties broken
// by name, and keeps at most limit entries
func RankSpeakers(totals []model.SpeakerTotal, limit int) []model.SpeakerTotal {
	if limit <= 0 {
		limit = defaultSpeakerLimit
	}
	ranked := make([]model.SpeakerTotal, len(totals))
	copy(ranked, totals)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Seconds != ranked[j].Seconds {
			return ranked[i].Seconds > ranked[j].Seconds
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jjenkins/althingi/internal/model"
)

const defaultRunLimit = 50

func (s *Store) ListSessions(_ context.Context) ([]model.Session, error) {
	st := s.read()
	out := make([]model.Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		out = append(out, sess)
	}
	slices.SortFunc(out, func(a, b model.Session) int { return b.Number - a.Number })
	return out, nil
}

func (s *Store) ListParties(_ context.Context) ([]model.Party, error) {
	st := s.read()
	out := make([]model.Party, 0, len(st.parties))
	for _, p := range st.parties {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Party) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) BillStatusCounts(_ context.Context, sessionID int64) (map[model.BillStatus]int, error) {
	st := s.read()
	counts := make(map[model.BillStatus]int)
	for _, b := range st.bills {
		if sessionID == 0 || b.SessionID == sessionID {
			counts[b.Status]++
		}
	}
	return counts, nil
}

func (s *Store) PartyVoteRows(_ context.Context, sessionID int64) ([]model.PartyVoteRow, error) {
	st := s.read()
	var rows []model.PartyVoteRow
	for _, v := range st.votes {
		if sessionID != 0 && v.SessionID != sessionID {
			continue
		}
		l, ok := st.legislators[v.LegislatorID]
		if !ok || !l.PartyID.Valid {
			continue
		}
		p, ok := st.parties[l.PartyID.Int64]
		if !ok {
			continue
		}
		rows = append(rows, model.PartyVoteRow{BillID: v.BillID, PartyID: p.ID, PartyName: p.Name, Choice: v.Choice})
	}
	slices.SortFunc(rows, func(a, b model.PartyVoteRow) int {
		if c := strings.Compare(a.PartyName, b.PartyName); c != 0 {
			return c
		}
		return int(a.BillID - b.BillID)
	})
	return rows, nil
}

func (s *Store) PassedBillDates(_ context.Context, sessionID int64) ([]time.Time, error) {
	st := s.read()
	var dates []time.Time
	for _, b := range st.bills {
		if b.Status != model.StatusPassed || (sessionID != 0 && b.SessionID != sessionID) {
			continue
		}
		switch {
		case b.VoteDate.Valid:
			dates = append(dates, b.VoteDate.Time.UTC())
		case b.IntroducedDate.Valid:
			dates = append(dates, b.IntroducedDate.Time.UTC())
		}
	}
	return dates, nil
}

func (s *Store) SpeakerTotals(_ context.Context, sessionID int64) ([]model.SpeakerTotal, error) {
	st := s.read()
	byLegislator := make(map[int64]*model.SpeakerTotal)
	for _, sp := range st.speeches {
		if sessionID != 0 && sp.SessionID != sessionID {
			continue
		}
		t, ok := byLegislator[sp.LegislatorID]
		if !ok {
			l := st.legislators[sp.LegislatorID]
			t = &model.SpeakerTotal{LegislatorID: l.ID, Name: l.FullName(), Slug: l.Slug}
			if l.PartyID.Valid {
				t.PartyName = st.parties[l.PartyID.Int64].Name
			}
			byLegislator[sp.LegislatorID] = t
		}
		t.Seconds += sp.Duration
		t.Speeches++
	}

	out := make([]model.SpeakerTotal, 0, len(byLegislator))
	for _, t := range byLegislator {
		out = append(out, *t)
	}
	return out, nil
}

// RecordRun appends the stats of a finished stage run
func (s *Store) RecordRun(_ context.Context, run *model.RunStats) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	r := *run
	r.Notes = slices.Clone(run.Notes)

	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.st
	next.runs = append(slices.Clone(s.st.runs), r)
	s.st = &next
	return nil
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(_ context.Context, limit int) ([]model.RunStats, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	st := s.read()
	out := slices.Clone(st.runs)
	slices.SortStableFunc(out, func(a, b model.RunStats) int { return b.StartedAt.Compare(a.StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

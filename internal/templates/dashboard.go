package templates

import (
	"fmt"

	"github.com/a-h/templ"
	"github.com/jjenkins/althingi/internal/model"
)

// DashboardData is everything the dashboard page renders
type DashboardData struct {
	Session  *model.Session
	Sessions []model.Session
	Summary  *model.SessionSummary
	Parties  map[int64]model.Party
	Runs     []model.RunStats
}

// HasData reports whether any bill is stored for the session
func (d DashboardData) HasData() bool {
	return d.Summary != nil && d.Summary.TotalBills > 0
}

// Title is the page heading
func (d DashboardData) Title() string {
	if d.Session == nil {
		return "Alþingi"
	}
	return fmt.Sprintf("Alþingi: %d. löggjafarþing", d.Session.Number)
}

type sessionLink struct {
	Label   string
	URL     templ.SafeURL
	Current bool
}

// SessionLinks lists the stored sessions, marking the one on display
func (d DashboardData) SessionLinks() []sessionLink {
	links := make([]sessionLink, 0, len(d.Sessions))
	for _, s := range d.Sessions {
		label := fmt.Sprintf("%d", s.Number)
		if s.IsActive {
			label += " (active)"
		}
		links = append(links, sessionLink{
			Label:   label,
			URL:     templ.URL(fmt.Sprintf("/?session=%d", s.Number)),
			Current: d.Session != nil && s.ID == d.Session.ID,
		})
	}
	return links
}

type statusRow struct {
	Status string
	Count  int
}

// statusRows keeps the lifecycle order and drops empty statuses
func statusRows(s *model.SessionSummary) []statusRow {
	var rows []statusRow
	for _, status := range model.AllBillStatuses {
		if n := s.StatusCounts[status]; n > 0 {
			rows = append(rows, statusRow{Status: string(status), Count: n})
		}
	}
	return rows
}

type partyRow struct {
	Name     string
	Color    string
	Yes      int
	No       int
	Abstain  int
	Absent   int
	Cohesion string
}

// PartyRows joins the cohesion scores with the ballot tallies and party colours
func (d DashboardData) PartyRows() []partyRow {
	if d.Summary == nil {
		return nil
	}
	tallies := make(map[int64]model.PartyTally, len(d.Summary.Tallies))
	for _, t := range d.Summary.Tallies {
		tallies[t.PartyID] = t
	}

	rows := make([]partyRow, 0, len(d.Summary.Cohesion))
	for _, c := range d.Summary.Cohesion {
		t := tallies[c.PartyID]
		color := model.DefaultPartyColor
		if p, ok := d.Parties[c.PartyID]; ok && p.Color != "" {
			color = p.Color
		}
		rows = append(rows, partyRow{
			Name:     c.PartyName,
			Color:    color,
			Yes:      t.Yes,
			No:       t.No,
			Abstain:  t.Abstain,
			Absent:   t.Absent,
			Cohesion: fmt.Sprintf("%.2f%%", c.Score),
		})
	}
	return rows
}

func swatchStyle(color string) map[string]string {
	return map[string]string{"background": color}
}

func monthLabel(m model.MonthCount) string {
	return m.Month.Format("2006-01")
}

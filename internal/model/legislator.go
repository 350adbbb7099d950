package model

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const imageURLPattern = "https://www.althingi.is/myndir/mynd/thingmenn/%d/org/mynd.jpg"

// Legislator represents a member of parliament
type Legislator struct {
	ID                     int64
	SourceID               int
	FirstName              string
	LastName               string
	Slug                   string
	PartyID                sql.NullInt64
	Constituency           string
	Email                  string
	Website                string
	FacebookURL            string
	TwitterURL             string
	ImageURL               string
	Bio                    string
	BirthDate              sql.NullTime
	Active                 bool
	FirstElected           sql.NullTime
	CurrentPositionStarted sql.NullTime
	SpeechCount            int
	TotalSpeakingTime      int // seconds
	BillsSponsored         int
	BillsCosponsored       int
	UpdatedAt              time.Time
}

// FullName joins first and last name
func (l *Legislator) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// LegislatorImageURL returns the portrait URL for a legislator source id
func LegislatorImageURL(sourceID int) string {
	return fmt.Sprintf(imageURLPattern, sourceID)
}

// SplitName splits a full name into first names and the last name.
// Icelandic patronymics make the last token the closest thing to a surname.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// LegislatorMeta is the merged view of the legislator list entry, detail,
// biography and seat documents
type LegislatorMeta struct {
	SourceID    int
	Name        string
	BirthDate   *time.Time
	Email       string
	Website     string
	FacebookURL string
	TwitterURL  string
	Bio         string
	Seats       []SeatMeta
}

// SeatMeta represents one seat period (þingseta)
type SeatMeta struct {
	Session       int
	Kind          string
	PartySourceID int
	PartyName     string
	Constituency  string
	In            *time.Time
	Out           *time.Time
}

// Substitute reports whether the seat was held as a substitute member
func (s SeatMeta) Substitute() bool {
	return strings.Contains(strings.ToLower(s.Kind), "varamaður")
}

// LatestSeat returns the seat with the highest session number, preferring
// the later entry on ties
func (m *LegislatorMeta) LatestSeat() *SeatMeta {
	var latest *SeatMeta
	for i := range m.Seats {
		s := &m.Seats[i]
		if latest == nil || s.Session >= latest.Session {
			latest = s
		}
	}
	return latest
}

// Seated reports whether the latest seat is still open. A legislator
// without seat records counts as seated.
func (m *LegislatorMeta) Seated() bool {
	latest := m.LatestSeat()
	return latest == nil || latest.Out == nil
}

// FirstElected returns the earliest start date of a seat held as an
// elected member, or of any seat when every seat was a substitute
func (m *LegislatorMeta) FirstElected() *time.Time {
	if first := m.earliestSeat(false); first != nil {
		return first
	}
	return m.earliestSeat(true)
}

func (m *LegislatorMeta) earliestSeat(substitutes bool) *time.Time {
	var first *time.Time
	for _, s := range m.Seats {
		if s.In == nil || (s.Substitute() && !substitutes) {
			continue
		}
		if first == nil || s.In.Before(*first) {
			t := *s.In
			first = &t
		}
	}
	return first
}

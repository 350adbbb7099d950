package model

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const billURLPattern = "https://www.althingi.is/thingstorf/thingmalalistar-eftir-thingum/ferill/?ltg=%d&mnr=%d"

// BillStatus is the normalized lifecycle state of a bill
type BillStatus string

const (
	StatusIntroduced            BillStatus = "introduced"
	StatusAwaitingFirstReading  BillStatus = "awaiting_first_reading"
	StatusInCommittee           BillStatus = "in_committee"
	StatusAwaitingSecondReading BillStatus = "awaiting_second_reading"
	StatusAwaitingThirdReading  BillStatus = "awaiting_third_reading"
	StatusInDebate              BillStatus = "in_debate"
	StatusAmended               BillStatus = "amended"
	StatusPassed                BillStatus = "passed"
	StatusRejected              BillStatus = "rejected"
	StatusWithdrawn             BillStatus = "withdrawn"
	StatusQuestionSent          BillStatus = "question_sent"
	StatusQuestionAnswered      BillStatus = "question_answered"
)

// AllBillStatuses lists every status in lifecycle order
var AllBillStatuses = []BillStatus{
	StatusIntroduced,
	StatusAwaitingFirstReading,
	StatusInCommittee,
	StatusAwaitingSecondReading,
	StatusAwaitingThirdReading,
	StatusInDebate,
	StatusAmended,
	StatusPassed,
	StatusRejected,
	StatusWithdrawn,
	StatusQuestionSent,
	StatusQuestionAnswered,
}

// statusRule maps a source text fragment to a status. Rules are checked in
// order and the first match wins, so more specific phrases come first.
type statusRule struct {
	fragment string
	status   BillStatus
}

var statusRules = []statusRule{
	{"ekki verið svarað", StatusQuestionSent},
	{"hefur verið svarað", StatusQuestionAnswered},
	{"bíður svars", StatusQuestionSent},
	{"dregið til baka", StatusWithdrawn},
	{"kallað aftur", StatusWithdrawn},
	{"fellt", StatusRejected},
	{"samþykkt", StatusPassed},
	{"breytt", StatusAmended},
	{"bíður 1. umræðu", StatusAwaitingFirstReading},
	{"bíður fyrri umræðu", StatusAwaitingFirstReading},
	{"bíður 2. umræðu", StatusAwaitingSecondReading},
	{"bíður síðari umræðu", StatusAwaitingSecondReading},
	{"bíður 3. umræðu", StatusAwaitingThirdReading},
	{"vísað til nefndar", StatusInCommittee},
	{"í nefnd", StatusInCommittee},
	{"í umræðu", StatusInDebate},
	{"til umræðu", StatusInDebate},
	{"fyrirspurn", StatusQuestionSent},
}

// MapBillStatus maps free-text Icelandic status to a BillStatus.
// Matching is a case-insensitive substring test; unknown text is introduced.
func MapBillStatus(text string) BillStatus {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return StatusIntroduced
	}
	for _, r := range statusRules {
		if strings.Contains(lower, r.fragment) {
			return r.status
		}
	}
	return StatusIntroduced
}

// MapVotingResult maps a voting outcome text to a decisive status.
// The second return value is false when the result is not decisive.
func MapVotingResult(text string) (BillStatus, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "samþykkt"):
		return StatusPassed, true
	case strings.Contains(lower, "fellt"):
		return StatusRejected, true
	}
	return "", false
}

// BillURL returns the public case page of a bill
func BillURL(session, number int) string {
	return fmt.Sprintf(billURLPattern, session, number)
}

// Bill represents a parliamentary case (þingmál) within a session
type Bill struct {
	ID               int64
	SessionID        int64
	SourceID         int
	Title            string
	Slug             string
	Description      string
	BillType         string
	Status           BillStatus
	IntroducedDate   sql.NullTime
	VoteDate         sql.NullTime
	VotingID         sql.NullInt64
	PrimarySponsorID sql.NullInt64
	URL              string
	UpdatedAt        time.Time
}

// BillRef identifies a bill in a list feed
type BillRef struct {
	SourceID int
	Session  int
	Title    string
}

// BillMeta is the merged bill list entry and bill detail document
type BillMeta struct {
	SourceID        int
	Session         int
	Title           string
	BillType        string
	StatusText      string
	Summary         string
	IntroducedDate  *time.Time
	DocumentNumbers []int
	VotingIDs       []int
}

// Description builds the stored description from type and status text
func (m *BillMeta) Description() string {
	parts := make([]string, 0, 2)
	if m.BillType != "" {
		parts = append(parts, m.BillType)
	}
	if m.StatusText != "" {
		parts = append(parts, m.StatusText)
	}
	return strings.Join(parts, " - ")
}

// LatestVotingID returns the last voting event of the bill, or 0
func (m *BillMeta) LatestVotingID() int {
	if len(m.VotingIDs) == 0 {
		return 0
	}
	return m.VotingIDs[len(m.VotingIDs)-1]
}

// SponsorMeta is one flutningsmaður entry of a bill document
type SponsorMeta struct {
	SourceID int
	Name     string
	Order    int
}

package model

import "time"

// PartyVoteRow is one ballot joined with the voter's party
type PartyVoteRow struct {
	BillID    int64
	PartyID   int64
	PartyName string
	Choice    VoteChoice
}

// PartyTally counts ballots per choice for one party
type PartyTally struct {
	PartyID   int64  `json:"party_id"`
	PartyName string `json:"party_name"`
	Yes       int    `json:"yes"`
	No        int    `json:"no"`
	Abstain   int    `json:"abstain"`
	Absent    int    `json:"absent"`
}

// Total returns the number of ballots in the tally
func (t PartyTally) Total() int {
	return t.Yes + t.No + t.Abstain + t.Absent
}

// PartyCohesion is the average share of a party voting with its majority
type PartyCohesion struct {
	PartyID   int64   `json:"party_id"`
	PartyName string  `json:"party_name"`
	Score     float64 `json:"score"`
	Bills     int     `json:"bills"`
}

// MonthCount is the number of passed bills in a calendar month
type MonthCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

// SpeakerTotal is the cumulative speaking time of a legislator
type SpeakerTotal struct {
	LegislatorID int64  `json:"legislator_id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	PartyName    string `json:"party_name,omitempty"`
	Seconds      int    `json:"seconds"`
	Speeches     int    `json:"speeches"`
}

// SessionSummary bundles the activity metrics of a session. Session 0
// means all sessions.
type SessionSummary struct {
	Session      int                `json:"session"`
	TotalBills   int                `json:"total_bills"`
	StatusCounts map[BillStatus]int `json:"status_counts"`
	Tallies      []PartyTally       `json:"tallies"`
	Cohesion     []PartyCohesion    `json:"cohesion"`
	Timeline     []MonthCount       `json:"timeline"`
	TopSpeakers  []SpeakerTotal     `json:"top_speakers"`
}

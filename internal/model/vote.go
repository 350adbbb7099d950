package model

import (
	"strings"
	"time"
)

// VoteChoice is the normalized ballot of one legislator
type VoteChoice string

const (
	VoteYes     VoteChoice = "yes"
	VoteNo      VoteChoice = "no"
	VoteAbstain VoteChoice = "abstain"
	VoteAbsent  VoteChoice = "absent"
)

// MapVoteChoice maps the Icelandic ballot text to a VoteChoice.
// Unknown text counts as abstain.
func MapVoteChoice(text string) VoteChoice {
	c, _ := parseVoteChoice(text)
	return c
}

func parseVoteChoice(text string) (VoteChoice, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "já":
		return VoteYes, true
	case lower == "nei":
		return VoteNo, true
	case strings.Contains(lower, "greiðir ekki"):
		return VoteAbstain, true
	case strings.Contains(lower, "fjarverandi"), strings.Contains(lower, "fjarvist"):
		return VoteAbsent, true
	}
	return VoteAbstain, false
}

// Vote is one legislator's ballot in the latest voting event of a bill
type Vote struct {
	ID           int64
	BillID       int64
	LegislatorID int64
	SessionID    int64
	VotingID     int
	Choice       VoteChoice
	VoteDate     time.Time
}

// VotingMeta represents a voting event document (atkvæðagreiðsla)
type VotingMeta struct {
	VotingID     int
	BillSourceID int
	Session      int
	Time         *time.Time
	Result       string
	Ballots      []BallotMeta
}

// BallotMeta is one legislator entry of a voting event
type BallotMeta struct {
	LegislatorSourceID int
	Name               string
	Raw                string
	Choice             VoteChoice
}

// Recognized reports whether the ballot text mapped to a known choice
func (b BallotMeta) Recognized() bool {
	_, ok := parseVoteChoice(b.Raw)
	return ok
}

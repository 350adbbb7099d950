package model

import (
	"database/sql"
	"time"
)

// Speech represents one speech delivered by a legislator
type Speech struct {
	ID           int64
	LegislatorID int64
	SessionID    int64
	BillID       sql.NullInt64
	Date         time.Time
	StartTime    time.Time
	EndTime      sql.NullTime
	Duration     int // seconds
	SpeechType   string
	Title        string
	AudioURL     string
	XMLURL       string
	HTMLURL      string
	UpdatedAt    time.Time
}

// SpeechMeta represents a ræða entry of a legislator's speech list
type SpeechMeta struct {
	Session      int
	Date         *time.Time
	Start        *time.Time
	End          *time.Time
	SpeechType   string
	BillSourceID int
	BillTitle    string
	AudioURL     string
	XMLURL       string
	HTMLURL      string
}

// DurationSeconds returns end minus start, or 0 when either is unknown
// or the end precedes the start
func (m *SpeechMeta) DurationSeconds() int {
	if m.Start == nil || m.End == nil {
		return 0
	}
	d := m.End.Sub(*m.Start)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}

package model

import (
	"fmt"
	"time"
)

// StageKind names one ingestion stage
type StageKind string

const (
	StageSessions    StageKind = "sessions"
	StageParties     StageKind = "parties"
	StageLegislators StageKind = "legislators"
	StageBills       StageKind = "bills"
	StageVotes       StageKind = "votes"
	StageSpeeches    StageKind = "speeches"
	StageTopics      StageKind = "topics"
	StageInterests   StageKind = "interests"
)

// StageOrder is the dependency order stages run in
var StageOrder = []StageKind{
	StageSessions,
	StageParties,
	StageLegislators,
	StageBills,
	StageVotes,
	StageSpeeches,
	StageTopics,
	StageInterests,
}

// Outcome is the result of reconciling one record
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return "unknown"
}

const maxNotes = 50

// RunStats tracks the result of one stage run
type RunStats struct {
	RunID      string    `json:"run_id"`
	Stage      StageKind `json:"stage"`
	Session    int       `json:"session"`
	Total      int       `json:"total"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Missing    int       `json:"missing"`
	NotFound   int       `json:"not_found"`
	Notes      []string  `json:"notes,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewRunStats starts the stats of a stage run
func NewRunStats(stage StageKind, session int) *RunStats {
	return &RunStats{
		Stage:     stage,
		Session:   session,
		StartedAt: time.Now(),
	}
}

// Record counts a reconciliation outcome
func (s *RunStats) Record(o Outcome) {
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	}
}

// Note keeps a short message about a notable skip. Only the first notes
// are kept; later ones are dropped silently.
func (s *RunStats) Note(format string, args ...any) {
	if len(s.Notes) >= maxNotes {
		return
	}
	s.Notes = append(s.Notes, fmt.Sprintf(format, args...))
}

// Finish stamps the end time
func (s *RunStats) Finish() {
	s.FinishedAt = time.Now()
}

// Duration returns how long the run took
func (s *RunStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

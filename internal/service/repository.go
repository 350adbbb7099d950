package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

// Tx is the set of reads and writes available inside one unit of work.
// Find methods return nil, nil when nothing matches.
type Tx interface {
	FindSessionByNumber(ctx context.Context, number int) (*model.Session, error)
	FindActiveSession(ctx context.Context) (*model.Session, error)
	InsertSession(ctx context.Context, s *model.Session) error
	UpdateSession(ctx context.Context, s *model.Session) error
	DeactivateOtherSessions(ctx context.Context, keepID int64) error

	FindPartyBySourceID(ctx context.Context, sourceID int) (*model.Party, error)
	InsertParty(ctx context.Context, p *model.Party) error
	UpdateParty(ctx context.Context, p *model.Party) error

	FindLegislatorBySourceID(ctx context.Context, sourceID int) (*model.Legislator, error)
	LegislatorSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
	InsertLegislator(ctx context.Context, l *model.Legislator) error
	UpdateLegislator(ctx context.Context, l *model.Legislator) error
	// ListLegislators returns the members of a session, or every
	// legislator when sessionID is 0
	ListLegislators(ctx context.Context, sessionID int64) ([]model.Legislator, error)
	SessionMemberIDs(ctx context.Context, sessionID int64) ([]int64, error)
	AddSessionMember(ctx context.Context, sessionID, legislatorID int64) error
	RemoveSessionMember(ctx context.Context, sessionID, legislatorID int64) error
	RefreshBillCounts(ctx context.Context, legislatorID int64) error
	RefreshSpeechStats(ctx context.Context, legislatorID int64) error

	FindBill(ctx context.Context, sessionID int64, sourceID int) (*model.Bill, error)
	BillSlugTaken(ctx context.Context, sessionID int64, slug string, excludeID int64) (bool, error)
	InsertBill(ctx context.Context, b *model.Bill) error
	UpdateBill(ctx context.Context, b *model.Bill) error
	// ListBills returns the bills of a session, or every bill when
	// sessionID is 0
	ListBills(ctx context.Context, sessionID int64) ([]model.Bill, error)
	BillCosponsorIDs(ctx context.Context, billID int64) ([]int64, error)
	SetBillCosponsors(ctx context.Context, billID int64, legislatorIDs []int64) error

	CountVotes(ctx context.Context, billID int64) (int, error)
	// ReplaceVotes deletes every stored vote of the bill and inserts votes
	ReplaceVotes(ctx context.Context, billID int64, votes []model.Vote) error

	FindSpeech(ctx context.Context, legislatorID, sessionID int64, date, start time.Time) (*model.Speech, error)
	InsertSpeech(ctx context.Context, s *model.Speech) error
	UpdateSpeech(ctx context.Context, s *model.Speech) error

	FindTopicByName(ctx context.Context, name string) (*model.Topic, error)
	TopicSlugTaken(ctx context.Context, slug string, excludeID int64) (bool, error)
	InsertTopic(ctx context.Context, t *model.Topic) error
	UpdateTopic(ctx context.Context, t *model.Topic) error
	ListTopics(ctx context.Context) ([]model.Topic, error)
	// AddBillTopic links a topic to a bill and reports whether the link is new
	AddBillTopic(ctx context.Context, billID, topicID int64) (bool, error)
	// ClearBillTopics removes topic links of a session's bills, or of every
	// bill when sessionID is 0
	ClearBillTopics(ctx context.Context, sessionID int64) error

	FindInterest(ctx context.Context, legislatorID int64) (*model.Interest, error)
	InsertInterest(ctx context.Context, i *model.Interest) error
	UpdateInterest(ctx context.Context, i *model.Interest) error
}

// StatsSource provides the aggregate reads behind the activity metrics.
// A sessionID of 0 means every session.
type StatsSource interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
	ListParties(ctx context.Context) ([]model.Party, error)
	BillStatusCounts(ctx context.Context, sessionID int64) (map[model.BillStatus]int, error)
	PartyVoteRows(ctx context.Context, sessionID int64) ([]model.PartyVoteRow, error)
	// PassedBillDates returns the vote date, or the introduced date when
	// there is no vote date, of every passed bill
	PassedBillDates(ctx context.Context, sessionID int64) ([]time.Time, error)
	SpeakerTotals(ctx context.Context, sessionID int64) ([]model.SpeakerTotal, error)
}

// RunRecorder persists ingest run history
type RunRecorder interface {
	RecordRun(ctx context.Context, run *model.RunStats) error
	ListRuns(ctx context.Context, limit int) ([]model.RunStats, error)
}

// Store is the persistence boundary of the pipeline
type Store interface {
	// InTx runs fn in a transaction that commits only when fn returns nil
	InTx(ctx context.Context, fn func(tx Tx) error) error
	StatsSource
	RunRecorder
}

func nullInt64(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

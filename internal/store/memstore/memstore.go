// Package memstore is an in-memory implementation of service.Store. Each
// transaction works on a shallow copy of the committed state. A table is
// cloned the first time a transaction writes to it, and the copy replaces
// the committed state only when the transaction function succeeds.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
)

type set map[int64]bool

type state struct {
	nextID      int64
	sessions    map[int64]model.Session
	parties     map[int64]model.Party
	legislators map[int64]model.Legislator
	members     map[int64]set // session id -> legislator ids
	bills       map[int64]model.Bill
	cosponsors  map[int64]set // bill id -> legislator ids
	topics      map[int64]model.Topic
	billTopics  map[int64]set // bill id -> topic ids
	votes       map[int64]model.Vote
	speeches    map[int64]model.Speech
	interests   map[int64]model.Interest
	runs        []model.RunStats
}

func newState() *state {
	return &state{
		sessions:    make(map[int64]model.Session),
		parties:     make(map[int64]model.Party),
		legislators: make(map[int64]model.Legislator),
		members:     make(map[int64]set),
		bills:       make(map[int64]model.Bill),
		cosponsors:  make(map[int64]set),
		topics:      make(map[int64]model.Topic),
		billTopics:  make(map[int64]set),
		votes:       make(map[int64]model.Vote),
		speeches:    make(map[int64]model.Speech),
		interests:   make(map[int64]model.Interest),
	}
}

// table identifies one map of the state for copy-on-write
type table uint

const (
	tableSessions table = 1 << iota
	tableParties
	tableLegislators
	tableMembers
	tableBills
	tableCosponsors
	tableTopics
	tableBillTopics
	tableVotes
	tableSpeeches
	tableInterests
)

// own clones tb into the transaction's state unless it was cloned already.
// Sets nested in members, cosponsors and billTopics stay shared and are
// replaced, never mutated, by writers.
func (t *tx) own(tb table) {
	if t.owned&tb != 0 {
		return
	}
	t.owned |= tb
	switch tb {
	case tableSessions:
		t.st.sessions = maps.Clone(t.st.sessions)
	case tableParties:
		t.st.parties = maps.Clone(t.st.parties)
	case tableLegislators:
		t.st.legislators = maps.Clone(t.st.legislators)
	case tableMembers:
		t.st.members = maps.Clone(t.st.members)
	case tableBills:
		t.st.bills = maps.Clone(t.st.bills)
	case tableCosponsors:
		t.st.cosponsors = maps.Clone(t.st.cosponsors)
	case tableTopics:
		t.st.topics = maps.Clone(t.st.topics)
	case tableBillTopics:
		t.st.billTopics = maps.Clone(t.st.billTopics)
	case tableVotes:
		t.st.votes = maps.Clone(t.st.votes)
	case tableSpeeches:
		t.st.speeches = maps.Clone(t.st.speeches)
	case tableInterests:
		t.st.interests = maps.Clone(t.st.interests)
	}
}

// withMember returns a copy of m holding id as well
func withMember(m set, id int64) set {
	next := make(set, len(m)+1)
	maps.Copy(next, m)
	next[id] = true
	return next
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store keeps all data in memory. Transactions are serialized.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty Store
func New() *Store {
	return &Store{st: newState()}
}

var _ service.Store = (*Store)(nil)
var _ service.Tx = (*tx)(nil)

// InTx runs fn against a copy-on-write view of the data and commits it when
// fn returns nil
func (s *Store) InTx(ctx context.Context, fn func(tx service.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := *s.st
	if err := fn(&tx{st: &work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = &work
	return nil
}

func (s *Store) read() *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

type tx struct {
	st    *state
	owned table
}

func sortedIDs(m set) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jjenkins/althingi/internal/model"
)

func (t *tx) FindSessionByNumber(_ context.Context, number int) (*model.Session, error) {
	for _, s := range t.st.sessions {
		if s.Number == number {
			return &s, nil
		}
	}
	return nil, nil
}

func (t *tx) FindActiveSession(_ context.Context) (*model.Session, error) {
	for _, s := range t.st.sessions {
		if s.IsActive {
			return &s, nil
		}
	}
	return nil, nil
}

func (t *tx) checkSession(s *model.Session) error {
	for id, other := range t.st.sessions {
		if id == s.ID {
			continue
		}
		if other.Number == s.Number {
			return fmt.Errorf("memstore: duplicate session number %d", s.Number)
		}
		if s.IsActive && other.IsActive {
			return fmt.Errorf("memstore: session %d is already active", other.Number)
		}
	}
	return nil
}

func (t *tx) InsertSession(_ context.Context, s *model.Session) error {
	if err := t.checkSession(s); err != nil {
		return err
	}
	s.ID = t.st.id()
	s.UpdatedAt = time.Now()
	t.own(tableSessions)
	t.st.sessions[s.ID] = *s
	return nil
}

func (t *tx) UpdateSession(_ context.Context, s *model.Session) error {
	if _, ok := t.st.sessions[s.ID]; !ok {
		return fmt.Errorf("memstore: session %d not found", s.ID)
	}
	if err := t.checkSession(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	t.own(tableSessions)
	t.st.sessions[s.ID] = *s
	return nil
}

func (t *tx) DeactivateOtherSessions(_ context.Context, keepID int64) error {
	for id, s := range t.st.sessions {
		if id != keepID && s.IsActive {
			s.IsActive = false
			s.UpdatedAt = time.Now()
			t.own(tableSessions)
			t.st.sessions[id] = s
		}
	}
	return nil
}

func (t *tx) FindPartyBySourceID(_ context.Context, sourceID int) (*model.Party, error) {
	for _, p := range t.st.parties {
		if p.SourceID == sourceID {
			return &p, nil
		}
	}
	return nil, nil
}

func (t *tx) checkParty(p *model.Party) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("memstore: party %d without a name", p.SourceID)
	}
	for id, other := range t.st.parties {
		if id != p.ID && other.SourceID == p.SourceID {
			return fmt.Errorf("memstore: duplicate party source id %d", p.SourceID)
		}
	}
	return nil
}

func (t *tx) InsertParty(_ context.Context, p *model.Party) error {
	if err := t.checkParty(p); err != nil {
		return err
	}
	p.ID = t.st.id()
	p.UpdatedAt = time.Now()
	t.own(tableParties)
	t.st.parties[p.ID] = *p
	return nil
}

func (t *tx) UpdateParty(_ context.Context, p *model.Party) error {
	if _, ok := t.st.parties[p.ID]; !ok {
		return fmt.Errorf("memstore: party %d not found", p.ID)
	}
	if err := t.checkParty(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	t.own(tableParties)
	t.st.parties[p.ID] = *p
	return nil
}

func (t *tx) FindLegislatorBySourceID(_ context.Context, sourceID int) (*model.Legislator, error) {
	for _, l := range t.st.legislators {
		if l.SourceID == sourceID {
			return &l, nil
		}
	}
	return nil, nil
}

func (t *tx) LegislatorSlugTaken(_ context.Context, slug string, excludeID int64) (bool, error) {
	for id, l := range t.st.legislators {
		if id != excludeID && l.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) checkLegislator(l *model.Legislator) error {
	if l.PartyID.Valid {
		if _, ok := t.st.parties[l.PartyID.Int64]; !ok {
			return fmt.Errorf("memstore: legislator %d references unknown party %d", l.SourceID, l.PartyID.Int64)
		}
	}
	for id, other := range t.st.legislators {
		if id == l.ID {
			continue
		}
		if other.SourceID == l.SourceID {
			return fmt.Errorf("memstore: duplicate legislator source id %d", l.SourceID)
		}
		if other.Slug == l.Slug {
			return fmt.Errorf("memstore: duplicate legislator slug %s", l.Slug)
		}
	}
	return nil
}

func (t *tx) InsertLegislator(_ context.Context, l *model.Legislator) error {
	if err := t.checkLegislator(l); err != nil {
		return err
	}
	l.ID = t.st.id()
	l.UpdatedAt = time.Now()
	t.own(tableLegislators)
	t.st.legislators[l.ID] = *l
	return nil
}

func (t *tx) UpdateLegislator(_ context.Context, l *model.Legislator) error {
	old, ok := t.st.legislators[l.ID]
	if !ok {
		return fmt.Errorf("memstore: legislator %d not found", l.ID)
	}
	if err := t.checkLegislator(l); err != nil {
		return err
	}
	// counters are owned by the refresh methods
	l.SpeechCount = old.SpeechCount
	l.TotalSpeakingTime = old.TotalSpeakingTime
	l.BillsSponsored = old.BillsSponsored
	l.BillsCosponsored = old.BillsCosponsored
	l.UpdatedAt = time.Now()
	t.own(tableLegislators)
	t.st.legislators[l.ID] = *l
	return nil
}

func (t *tx) ListLegislators(_ context.Context, sessionID int64) ([]model.Legislator, error) {
	var out []model.Legislator
	for id, l := range t.st.legislators {
		if sessionID != 0 && !t.st.members[sessionID][id] {
			continue
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b model.Legislator) int {
		if c := strings.Compare(a.LastName, b.LastName); c != 0 {
			return c
		}
		return strings.Compare(a.FirstName, b.FirstName)
	})
	return out, nil
}

func (t *tx) SessionMemberIDs(_ context.Context, sessionID int64) ([]int64, error) {
	return sortedIDs(t.st.members[sessionID]), nil
}

func (t *tx) AddSessionMember(_ context.Context, sessionID, legislatorID int64) error {
	if _, ok := t.st.sessions[sessionID]; !ok {
		return fmt.Errorf("memstore: unknown session %d", sessionID)
	}
	if _, ok := t.st.legislators[legislatorID]; !ok {
		return fmt.Errorf("memstore: unknown legislator %d", legislatorID)
	}
	if t.st.members[sessionID][legislatorID] {
		return nil
	}
	t.own(tableMembers)
	t.st.members[sessionID] = withMember(t.st.members[sessionID], legislatorID)
	return nil
}

func (t *tx) RemoveSessionMember(_ context.Context, sessionID, legislatorID int64) error {
	if !t.st.members[sessionID][legislatorID] {
		return nil
	}
	next := maps.Clone(t.st.members[sessionID])
	delete(next, legislatorID)
	t.own(tableMembers)
	t.st.members[sessionID] = next
	return nil
}

func (t *tx) RefreshBillCounts(_ context.Context, legislatorID int64) error {
	l, ok := t.st.legislators[legislatorID]
	if !ok {
		return nil
	}
	l.BillsSponsored, l.BillsCosponsored = 0, 0
	for id, b := range t.st.bills {
		if b.PrimarySponsorID.Valid && b.PrimarySponsorID.Int64 == legislatorID {
			l.BillsSponsored++
		}
		if t.st.cosponsors[id][legislatorID] {
			l.BillsCosponsored++
		}
	}
	t.own(tableLegislators)
	t.st.legislators[legislatorID] = l
	return nil
}

func (t *tx) RefreshSpeechStats(_ context.Context, legislatorID int64) error {
	l, ok := t.st.legislators[legislatorID]
	if !ok {
		return nil
	}
	l.SpeechCount, l.TotalSpeakingTime = 0, 0
	for _, s := range t.st.speeches {
		if s.LegislatorID == legislatorID {
			l.SpeechCount++
			l.TotalSpeakingTime += s.Duration
		}
	}
	t.own(tableLegislators)
	t.st.legislators[legislatorID] = l
	return nil
}

func (t *tx) FindBill(_ context.Context, sessionID int64, sourceID int) (*model.Bill, error) {
	for _, b := range t.st.bills {
		if b.SessionID == sessionID && b.SourceID == sourceID {
			return &b, nil
		}
	}
	return nil, nil
}

func (t *tx) BillSlugTaken(_ context.Context, sessionID int64, slug string, excludeID int64) (bool, error) {
	for id, b := range t.st.bills {
		if id != excludeID && b.SessionID == sessionID && b.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) checkBill(b *model.Bill) error {
	if _, ok := t.st.sessions[b.SessionID]; !ok {
		return fmt.Errorf("memstore: bill %d references unknown session %d", b.SourceID, b.SessionID)
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("memstore: bill %d without a title", b.SourceID)
	}
	if b.PrimarySponsorID.Valid {
		if _, ok := t.st.legislators[b.PrimarySponsorID.Int64]; !ok {
			return fmt.Errorf("memstore: bill %d references unknown legislator %d", b.SourceID, b.PrimarySponsorID.Int64)
		}
	}
	for id, other := range t.st.bills {
		if id == b.ID || other.SessionID != b.SessionID {
			continue
		}
		if other.SourceID == b.SourceID {
			return fmt.Errorf("memstore: duplicate bill %d in session %d", b.SourceID, b.SessionID)
		}
		if other.Slug == b.Slug {
			return fmt.Errorf("memstore: duplicate bill slug %s in session %d", b.Slug, b.SessionID)
		}
	}
	return nil
}

func (t *tx) InsertBill(_ context.Context, b *model.Bill) error {
	if err := t.checkBill(b); err != nil {
		return err
	}
	b.ID = t.st.id()
	b.UpdatedAt = time.Now()
	t.own(tableBills)
	t.st.bills[b.ID] = *b
	return nil
}

func (t *tx) UpdateBill(_ context.Context, b *model.Bill) error {
	if _, ok := t.st.bills[b.ID]; !ok {
		return fmt.Errorf("memstore: bill %d not found", b.ID)
	}
	if err := t.checkBill(b); err != nil {
		return err
	}
	b.UpdatedAt = time.Now()
	t.own(tableBills)
	t.st.bills[b.ID] = *b
	return nil
}

func (t *tx) ListBills(_ context.Context, sessionID int64) ([]model.Bill, error) {
	var out []model.Bill
	for _, b := range t.st.bills {
		if sessionID == 0 || b.SessionID == sessionID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b model.Bill) int {
		if a.SessionID != b.SessionID {
			return int(a.SessionID - b.SessionID)
		}
		return a.SourceID - b.SourceID
	})
	return out, nil
}

func (t *tx) BillCosponsorIDs(_ context.Context, billID int64) ([]int64, error) {
	return sortedIDs(t.st.cosponsors[billID]), nil
}

func (t *tx) SetBillCosponsors(_ context.Context, billID int64, legislatorIDs []int64) error {
	next := make(set, len(legislatorIDs))
	for _, id := range legislatorIDs {
		if _, ok := t.st.legislators[id]; !ok {
			return fmt.Errorf("memstore: unknown cosponsor %d", id)
		}
		next[id] = true
	}
	t.own(tableCosponsors)
	t.st.cosponsors[billID] = next
	return nil
}

func (t *tx) CountVotes(_ context.Context, billID int64) (int, error) {
	n := 0
	for _, v := range t.st.votes {
		if v.BillID == billID {
			n++
		}
	}
	return n, nil
}

func (t *tx) ReplaceVotes(_ context.Context, billID int64, votes []model.Vote) error {
	t.own(tableVotes)
	for id, v := range t.st.votes {
		if v.BillID == billID {
			delete(t.st.votes, id)
		}
	}

	type key struct {
		voting     int
		legislator int64
	}
	seen := make(map[key]bool, len(t.st.votes)+len(votes))
	for _, v := range t.st.votes {
		seen[key{v.VotingID, v.LegislatorID}] = true
	}
	for i := range votes {
		v := &votes[i]
		k := key{v.VotingID, v.LegislatorID}
		if seen[k] {
			return fmt.Errorf("memstore: duplicate vote of legislator %d in voting %d", v.LegislatorID, v.VotingID)
		}
		if _, ok := t.st.legislators[v.LegislatorID]; !ok {
			return fmt.Errorf("memstore: vote references unknown legislator %d", v.LegislatorID)
		}
		seen[k] = true
		v.BillID = billID
		v.ID = t.st.id()
		t.st.votes[v.ID] = *v
	}
	return nil
}

func (t *tx) FindSpeech(_ context.Context, legislatorID, sessionID int64, date, start time.Time) (*model.Speech, error) {
	for _, s := range t.st.speeches {
		if s.LegislatorID == legislatorID && s.SessionID == sessionID && s.Date.Equal(date) && s.StartTime.Equal(start) {
			return &s, nil
		}
	}
	return nil, nil
}

func (t *tx) checkSpeech(s *model.Speech) error {
	if _, ok := t.st.legislators[s.LegislatorID]; !ok {
		return fmt.Errorf("memstore: speech references unknown legislator %d", s.LegislatorID)
	}
	for id, other := range t.st.speeches {
		if id != s.ID && other.LegislatorID == s.LegislatorID && other.SessionID == s.SessionID &&
			other.Date.Equal(s.Date) && other.StartTime.Equal(s.StartTime) {
			return fmt.Errorf("memstore: duplicate speech of legislator %d at %s", s.LegislatorID, s.StartTime.Format(time.RFC3339))
		}
	}
	return nil
}

func (t *tx) InsertSpeech(_ context.Context, s *model.Speech) error {
	if err := t.checkSpeech(s); err != nil {
		return err
	}
	s.ID = t.st.id()
	s.UpdatedAt = time.Now()
	t.own(tableSpeeches)
	t.st.speeches[s.ID] = *s
	return nil
}

func (t *tx) UpdateSpeech(_ context.Context, s *model.Speech) error {
	if _, ok := t.st.speeches[s.ID]; !ok {
		return fmt.Errorf("memstore: speech %d not found", s.ID)
	}
	if err := t.checkSpeech(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	t.own(tableSpeeches)
	t.st.speeches[s.ID] = *s
	return nil
}

func copyTopic(tp model.Topic) *model.Topic {
	tp.Keywords = slices.Clone(tp.Keywords)
	return &tp
}

func (t *tx) FindTopicByName(_ context.Context, name string) (*model.Topic, error) {
	for _, tp := range t.st.topics {
		if tp.Name == name {
			return copyTopic(tp), nil
		}
	}
	return nil, nil
}

func (t *tx) TopicSlugTaken(_ context.Context, slug string, excludeID int64) (bool, error) {
	for id, tp := range t.st.topics {
		if id != excludeID && tp.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) checkTopic(tp *model.Topic) error {
	for id, other := range t.st.topics {
		if id == tp.ID {
			continue
		}
		if other.Name == tp.Name {
			return fmt.Errorf("memstore: duplicate topic name %s", tp.Name)
		}
		if other.Slug == tp.Slug {
			return fmt.Errorf("memstore: duplicate topic slug %s", tp.Slug)
		}
	}
	return nil
}

func (t *tx) InsertTopic(_ context.Context, tp *model.Topic) error {
	if err := t.checkTopic(tp); err != nil {
		return err
	}
	tp.ID = t.st.id()
	t.own(tableTopics)
	t.st.topics[tp.ID] = *copyTopic(*tp)
	return nil
}

func (t *tx) UpdateTopic(_ context.Context, tp *model.Topic) error {
	if _, ok := t.st.topics[tp.ID]; !ok {
		return fmt.Errorf("memstore: topic %d not found", tp.ID)
	}
	if err := t.checkTopic(tp); err != nil {
		return err
	}
	t.own(tableTopics)
	t.st.topics[tp.ID] = *copyTopic(*tp)
	return nil
}

func (t *tx) ListTopics(_ context.Context) ([]model.Topic, error) {
	out := make([]model.Topic, 0, len(t.st.topics))
	for _, tp := range t.st.topics {
		out = append(out, *copyTopic(tp))
	}
	slices.SortFunc(out, func(a, b model.Topic) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (t *tx) AddBillTopic(_ context.Context, billID, topicID int64) (bool, error) {
	if _, ok := t.st.bills[billID]; !ok {
		return false, fmt.Errorf("memstore: unknown bill %d", billID)
	}
	if _, ok := t.st.topics[topicID]; !ok {
		return false, fmt.Errorf("memstore: unknown topic %d", topicID)
	}
	if t.st.billTopics[billID][topicID] {
		return false, nil
	}
	t.own(tableBillTopics)
	t.st.billTopics[billID] = withMember(t.st.billTopics[billID], topicID)
	return true, nil
}

func (t *tx) ClearBillTopics(_ context.Context, sessionID int64) error {
	t.own(tableBillTopics)
	for billID := range t.st.billTopics {
		if sessionID == 0 || t.st.bills[billID].SessionID == sessionID {
			delete(t.st.billTopics, billID)
		}
	}
	return nil
}

func (t *tx) FindInterest(_ context.Context, legislatorID int64) (*model.Interest, error) {
	for _, i := range t.st.interests {
		if i.LegislatorID == legislatorID {
			return &i, nil
		}
	}
	return nil, nil
}

func (t *tx) InsertInterest(_ context.Context, i *model.Interest) error {
	if _, ok := t.st.legislators[i.LegislatorID]; !ok {
		return fmt.Errorf("memstore: interest references unknown legislator %d", i.LegislatorID)
	}
	for _, other := range t.st.interests {
		if other.LegislatorID == i.LegislatorID {
			return fmt.Errorf("memstore: duplicate interest of legislator %d", i.LegislatorID)
		}
	}
	i.ID = t.st.id()
	i.UpdatedAt = time.Now()
	t.own(tableInterests)
	t.st.interests[i.ID] = *i
	return nil
}

func (t *tx) UpdateInterest(_ context.Context, i *model.Interest) error {
	if _, ok := t.st.interests[i.ID]; !ok {
		return fmt.Errorf("memstore: interest %d not found", i.ID)
	}
	i.UpdatedAt = time.Now()
	t.own(tableInterests)
	t.st.interests[i.ID] = *i
	return nil
}

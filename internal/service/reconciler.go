package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jjenkins/althingi/internal/model"
)

// Result describes the reconciliation of one record
type Result struct {
	Outcome model.Outcome
	// Missing lists optional references that could not be resolved
	Missing []string
	// Rows is the number of child rows written, e.g. ballots
	Rows int
}

func (r *Result) missing(format string, args ...any) {
	r.Missing = append(r.Missing, fmt.Sprintf(format, args...))
}

// Apply adds a result to the run stats
func (r Result) Apply(stats *model.RunStats) {
	stats.Record(r.Outcome)
	stats.Missing += len(r.Missing)
	for _, m := range r.Missing {
		stats.Note("missing %s", m)
	}
}

// Reconciler maps extracted records onto stored entities. Every record is
// reconciled in its own transaction.
type Reconciler struct {
	store Store
}

// NewReconciler creates a new Reconciler
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

func (r *Reconciler) inTx(ctx context.Context, entity, key string, fn func(tx Tx) error) error {
	err := r.store.InTx(ctx, fn)
	if err == nil {
		return nil
	}
	var re *ReconciliationError
	if errors.As(err, &re) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ReconciliationError{Entity: entity, Key: key, Err: err}
}

// EnsureSession creates or updates a session from the sessions feed.
// Known dates are never cleared by a document that omits them.
func (r *Reconciler) EnsureSession(ctx context.Context, meta model.SessionMeta) (*model.Session, model.Outcome, error) {
	var session *model.Session
	var outcome model.Outcome

	err := r.inTx(ctx, "session", strconv.Itoa(meta.Number), func(tx Tx) error {
		existing, err := tx.FindSessionByNumber(ctx, meta.Number)
		if err != nil {
			return err
		}

		if existing == nil {
			session = &model.Session{
				Number:    meta.Number,
				StartDate: nullTime(meta.StartDate),
				EndDate:   nullTime(meta.EndDate),
			}
			outcome = model.OutcomeCreated
			return tx.InsertSession(ctx, session)
		}

		session = existing
		if meta.StartDate != nil {
			session.StartDate = nullTime(meta.StartDate)
		}
		if meta.EndDate != nil {
			session.EndDate = nullTime(meta.EndDate)
		}
		outcome = model.OutcomeUpdated
		return tx.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, 0, err
	}
	return session, outcome, nil
}

// ActivateSession marks session number active and every other session
// inactive, creating the session when it is not stored yet
func (r *Reconciler) ActivateSession(ctx context.Context, number int) (*model.Session, error) {
	var session *model.Session

	err := r.inTx(ctx, "session", strconv.Itoa(number), func(tx Tx) error {
		s, err := tx.FindSessionByNumber(ctx, number)
		if err != nil {
			return err
		}
		if s == nil {
			s = &model.Session{Number: number}
			if err := tx.InsertSession(ctx, s); err != nil {
				return err
			}
		}
		if err := tx.DeactivateOtherSessions(ctx, s.ID); err != nil {
			return err
		}
		s.IsActive = true
		if err := tx.UpdateSession(ctx, s); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ActiveSession returns the stored active session, or nil when no session
// is marked active
func (r *Reconciler) ActiveSession(ctx context.Context) (*model.Session, error) {
	var session *model.Session
	err := r.inTx(ctx, "session", "active", func(tx Tx) error {
		var err error
		session, err = tx.FindActiveSession(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpsertParty creates or updates a party keyed by its source id
func (r *Reconciler) UpsertParty(ctx context.Context, session int, meta model.PartyMeta) (*model.Party, Result, error) {
	var party *model.Party
	var res Result

	err := r.inTx(ctx, "party", strconv.Itoa(meta.SourceID), func(tx Tx) error {
		existing, err := tx.FindPartyBySourceID(ctx, meta.SourceID)
		if err != nil {
			return err
		}

		p := existing
		if p == nil {
			p = &model.Party{SourceID: meta.SourceID}
		}
		p.Name = meta.Name
		p.Abbreviation = meta.Abbreviation
		p.Color = model.PartyColor(meta.SourceID)
		p.Description = meta.Description(session)
		if !p.FoundingDate.Valid {
			if founded, ok := model.PartyFoundingDate(meta.SourceID); ok {
				p.FoundingDate = nullTime(&founded)
			}
		}

		if existing == nil {
			res.Outcome = model.OutcomeCreated
			err = tx.InsertParty(ctx, p)
		} else {
			res.Outcome = model.OutcomeUpdated
			err = tx.UpdateParty(ctx, p)
		}
		party = p
		return err
	})
	if err != nil {
		return nil, Result{}, err
	}
	return party, res, nil
}

// UpsertLegislator creates or updates a legislator keyed by source id.
// Contact fields and seat-derived fields are only overwritten when the
// record carries a value, so a failed detail fetch does not erase data.
func (r *Reconciler) UpsertLegislator(ctx context.Context, meta model.LegislatorMeta) (*model.Legislator, Result, error) {
	var legislator *model.Legislator
	var res Result

	err := r.inTx(ctx, "legislator", strconv.Itoa(meta.SourceID), func(tx Tx) error {
		res = Result{}
		existing, err := tx.FindLegislatorBySourceID(ctx, meta.SourceID)
		if err != nil {
			return err
		}

		l := existing
		if l == nil {
			l = &model.Legislator{SourceID: meta.SourceID}
		}
		l.FirstName, l.LastName = model.SplitName(meta.Name)
		l.Active = meta.Seated()
		l.ImageURL = model.LegislatorImageURL(meta.SourceID)

		slug, err := uniqueSlug(ctx, Slugify(meta.Name), 0, func(ctx context.Context, s string) (bool, error) {
			return tx.LegislatorSlugTaken(ctx, s, l.ID)
		})
		if err != nil {
			return err
		}
		l.Slug = slug

		if meta.BirthDate != nil {
			l.BirthDate = nullTime(meta.BirthDate)
		}
		setIfPresent(&l.Email, meta.Email)
		setIfPresent(&l.Website, meta.Website)
		setIfPresent(&l.FacebookURL, meta.FacebookURL)
		setIfPresent(&l.TwitterURL, meta.TwitterURL)
		setIfPresent(&l.Bio, meta.Bio)

		if seat := meta.LatestSeat(); seat != nil {
			setIfPresent(&l.Constituency, seat.Constituency)
			if seat.In != nil {
				l.CurrentPositionStarted = nullTime(seat.In)
			}
			if seat.PartySourceID != 0 {
				party, err := tx.FindPartyBySourceID(ctx, seat.PartySourceID)
				if err != nil {
					return err
				}
				if party == nil {
					res.missing("party %d for legislator %d", seat.PartySourceID, meta.SourceID)
					l.PartyID = nullInt64(0)
				} else {
					l.PartyID = nullInt64(party.ID)
				}
			}
		}
		if first := meta.FirstElected(); first != nil {
			l.FirstElected = nullTime(first)
		}

		if existing == nil {
			res.Outcome = model.OutcomeCreated
			err = tx.InsertLegislator(ctx, l)
		} else {
			res.Outcome = model.OutcomeUpdated
			err = tx.UpdateLegislator(ctx, l)
		}
		legislator = l
		return err
	})
	if err != nil {
		return nil, Result{}, err
	}
	return legislator, res, nil
}

// SyncSessionMembers makes the member set of a session exactly ids.
// Legislators dropped from the set are kept, only the membership goes.
func (r *Reconciler) SyncSessionMembers(ctx context.Context, sessionID int64, ids []int64) (added, removed int, err error) {
	err = r.inTx(ctx, "session members", strconv.FormatInt(sessionID, 10), func(tx Tx) error {
		added, removed = 0, 0
		current, err := tx.SessionMemberIDs(ctx, sessionID)
		if err != nil {
			return err
		}

		want := make(map[int64]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		have := make(map[int64]bool, len(current))
		for _, id := range current {
			have[id] = true
			if !want[id] {
				if err := tx.RemoveSessionMember(ctx, sessionID, id); err != nil {
					return err
				}
				removed++
			}
		}
		for id := range want {
			if have[id] {
				continue
			}
			if err := tx.AddSessionMember(ctx, sessionID, id); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	return added, removed, err
}

// UpsertBill creates or updates a bill keyed by session and bill number.
// When sponsorsKnown is false the stored sponsors are left untouched.
func (r *Reconciler) UpsertBill(ctx context.Context, session *model.Session, meta *model.BillMeta, sponsors []model.SponsorMeta, sponsorsKnown bool) (*model.Bill, Result, error) {
	var bill *model.Bill
	var res Result
	key := fmt.Sprintf("%d/%d", session.Number, meta.SourceID)

	err := r.inTx(ctx, "bill", key, func(tx Tx) error {
		res = Result{}
		existing, err := tx.FindBill(ctx, session.ID, meta.SourceID)
		if err != nil {
			return err
		}

		b := existing
		if b == nil {
			b = &model.Bill{SessionID: session.ID, SourceID: meta.SourceID}
		}

		slug, err := uniqueSlug(ctx, Slugify(meta.Title), MaxBillSlugLength, func(ctx context.Context, s string) (bool, error) {
			return tx.BillSlugTaken(ctx, session.ID, s, b.ID)
		})
		if err != nil {
			return err
		}

		b.Title = meta.Title
		b.Slug = slug
		b.Description = meta.Description()
		b.BillType = meta.BillType
		b.Status = model.MapBillStatus(meta.StatusText)
		b.URL = model.BillURL(session.Number, meta.SourceID)
		switch {
		case meta.IntroducedDate != nil:
			b.IntroducedDate = nullTime(meta.IntroducedDate)
		case !b.IntroducedDate.Valid:
			b.IntroducedDate = session.StartDate
		}

		var oldSponsors, newCosponsors []int64
		if sponsorsKnown {
			if b.PrimarySponsorID.Valid {
				oldSponsors = append(oldSponsors, b.PrimarySponsorID.Int64)
			}
			if existing != nil {
				cos, err := tx.BillCosponsorIDs(ctx, b.ID)
				if err != nil {
					return err
				}
				oldSponsors = append(oldSponsors, cos...)
			}

			b.PrimarySponsorID = nullInt64(0)
			for idx, sp := range sponsors {
				l, err := tx.FindLegislatorBySourceID(ctx, sp.SourceID)
				if err != nil {
					return err
				}
				if l == nil {
					res.missing("sponsor %d of bill %s", sp.SourceID, key)
					continue
				}
				if idx == 0 {
					b.PrimarySponsorID = nullInt64(l.ID)
				} else if l.ID != b.PrimarySponsorID.Int64 {
					newCosponsors = append(newCosponsors, l.ID)
				}
			}
		}

		if existing == nil {
			res.Outcome = model.OutcomeCreated
			err = tx.InsertBill(ctx, b)
		} else {
			res.Outcome = model.OutcomeUpdated
			err = tx.UpdateBill(ctx, b)
		}
		if err != nil {
			return err
		}
		bill = b

		if !sponsorsKnown {
			return nil
		}
		if err := tx.SetBillCosponsors(ctx, b.ID, newCosponsors); err != nil {
			return err
		}

		affected := append(oldSponsors, newCosponsors...)
		if b.PrimarySponsorID.Valid {
			affected = append(affected, b.PrimarySponsorID.Int64)
		}
		seen := make(map[int64]bool, len(affected))
		for _, id := range affected {
			if seen[id] {
				continue
			}
			seen[id] = true
			if err := tx.RefreshBillCounts(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, Result{}, err
	}
	return bill, res, nil
}

// ReplaceVotes stores the ballots of a voting event as the complete vote
// set of the bill. The bill's vote date, voting id and, for a decisive
// result, status are updated in the same transaction.
func (r *Reconciler) ReplaceVotes(ctx context.Context, session *model.Session, bill *model.Bill, voting *model.VotingMeta) (Result, error) {
	var res Result
	key := fmt.Sprintf("%d/%d", session.Number, bill.SourceID)
	if voting.Time == nil {
		return res, &ReconciliationError{Entity: "votes", Key: key, Err: errors.New("voting event has no time")}
	}

	var updated *model.Bill
	err := r.inTx(ctx, "votes", key, func(tx Tx) error {
		res = Result{}
		current, err := tx.FindBill(ctx, session.ID, bill.SourceID)
		if err != nil {
			return err
		}
		if current == nil {
			return &ReconciliationError{Entity: "votes", Key: key, Missing: true, Err: errors.New("bill not stored")}
		}

		prev, err := tx.CountVotes(ctx, current.ID)
		if err != nil {
			return err
		}

		index := make(map[int64]int)
		votes := make([]model.Vote, 0, len(voting.Ballots))
		for _, ballot := range voting.Ballots {
			l, err := tx.FindLegislatorBySourceID(ctx, ballot.LegislatorSourceID)
			if err != nil {
				return err
			}
			if l == nil {
				res.missing("legislator %d in voting %d", ballot.LegislatorSourceID, voting.VotingID)
				continue
			}
			v := model.Vote{
				BillID:       current.ID,
				LegislatorID: l.ID,
				SessionID:    session.ID,
				VotingID:     voting.VotingID,
				Choice:       ballot.Choice,
				VoteDate:     *voting.Time,
			}
			if i, dup := index[l.ID]; dup {
				votes[i] = v
				continue
			}
			index[l.ID] = len(votes)
			votes = append(votes, v)
		}

		if err := tx.ReplaceVotes(ctx, current.ID, votes); err != nil {
			return err
		}

		current.VoteDate = nullTime(voting.Time)
		current.VotingID = nullInt64(int64(voting.VotingID))
		if status, ok := model.MapVotingResult(voting.Result); ok {
			current.Status = status
		}
		if err := tx.UpdateBill(ctx, current); err != nil {
			return err
		}

		res.Rows = len(votes)
		if prev == 0 {
			res.Outcome = model.OutcomeCreated
		} else {
			res.Outcome = model.OutcomeUpdated
		}
		updated = current
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	*bill = *updated
	return res, nil
}

// UpsertSpeech creates or updates a speech keyed by legislator, session,
// date and start time. A reference to an unknown bill is dropped.
func (r *Reconciler) UpsertSpeech(ctx context.Context, session *model.Session, legislator *model.Legislator, meta *model.SpeechMeta) (Result, error) {
	var res Result
	key := fmt.Sprintf("%d/%d", legislator.SourceID, session.Number)
	if meta.Start == nil || meta.Date == nil {
		return res, &ReconciliationError{Entity: "speech", Key: key, Err: errors.New("speech has no start time")}
	}
	key = fmt.Sprintf("%s@%s", key, meta.Start.Format("2006-01-02T15:04:05"))

	err := r.inTx(ctx, "speech", key, func(tx Tx) error {
		res = Result{}
		existing, err := tx.FindSpeech(ctx, legislator.ID, session.ID, *meta.Date, *meta.Start)
		if err != nil {
			return err
		}

		s := existing
		if s == nil {
			s = &model.Speech{
				LegislatorID: legislator.ID,
				SessionID:    session.ID,
				Date:         *meta.Date,
				StartTime:    *meta.Start,
			}
		}
		s.EndTime = nullTime(meta.End)
		s.Duration = meta.DurationSeconds()
		s.SpeechType = meta.SpeechType
		s.Title = meta.BillTitle
		s.AudioURL = meta.AudioURL
		s.XMLURL = meta.XMLURL
		s.HTMLURL = meta.HTMLURL
		s.BillID = nullInt64(0)
		if meta.BillSourceID != 0 {
			b, err := tx.FindBill(ctx, session.ID, meta.BillSourceID)
			if err != nil {
				return err
			}
			if b == nil {
				res.missing("bill %d for speech %s", meta.BillSourceID, key)
			} else {
				s.BillID = nullInt64(b.ID)
			}
		}

		if existing == nil {
			res.Outcome = model.OutcomeCreated
			return tx.InsertSpeech(ctx, s)
		}
		res.Outcome = model.OutcomeUpdated
		return tx.UpdateSpeech(ctx, s)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// RefreshSpeechStats recomputes speech count and speaking time of a
// legislator from every stored speech
func (r *Reconciler) RefreshSpeechStats(ctx context.Context, legislatorID int64) error {
	return r.inTx(ctx, "legislator", strconv.FormatInt(legislatorID, 10), func(tx Tx) error {
		return tx.RefreshSpeechStats(ctx, legislatorID)
	})
}

// EnsureTopic creates or updates a topic keyed by name. Keywords are only
// replaced when the seed carries a keyword list.
func (r *Reconciler) EnsureTopic(ctx context.Context, seed model.TopicSeed) (*model.Topic, model.Outcome, error) {
	var topic *model.Topic
	var outcome model.Outcome

	err := r.inTx(ctx, "topic", seed.Name, func(tx Tx) error {
		existing, err := tx.FindTopicByName(ctx, seed.Name)
		if err != nil {
			return err
		}

		t := existing
		if t == nil {
			t = &model.Topic{Name: seed.Name}
			slug, err := uniqueSlug(ctx, Slugify(seed.Name), 0, func(ctx context.Context, s string) (bool, error) {
				return tx.TopicSlugTaken(ctx, s, 0)
			})
			if err != nil {
				return err
			}
			t.Slug = slug
		}
		if seed.Description != "" {
			t.Description = seed.Description
		}
		if seed.Keywords != nil {
			t.Keywords = append([]string(nil), seed.Keywords...)
		}

		topic = t
		if existing == nil {
			outcome = model.OutcomeCreated
			return tx.InsertTopic(ctx, t)
		}
		outcome = model.OutcomeUpdated
		return tx.UpdateTopic(ctx, t)
	})
	if err != nil {
		return nil, 0, err
	}
	return topic, outcome, nil
}

// AssignTopics links topics to a bill and returns how many links are new
func (r *Reconciler) AssignTopics(ctx context.Context, billID int64, topicIDs []int64) (int, error) {
	added := 0
	err := r.inTx(ctx, "bill topics", strconv.FormatInt(billID, 10), func(tx Tx) error {
		added = 0
		for _, id := range topicIDs {
			ok, err := tx.AddBillTopic(ctx, billID, id)
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}
		return nil
	})
	return added, err
}

// ClearTopics removes topic assignments of a session, or of every bill when
// sessionID is 0
func (r *Reconciler) ClearTopics(ctx context.Context, sessionID int64) error {
	return r.inTx(ctx, "bill topics", strconv.FormatInt(sessionID, 10), func(tx Tx) error {
		return tx.ClearBillTopics(ctx, sessionID)
	})
}

// UpsertInterest creates or updates the interest registration of a legislator
func (r *Reconciler) UpsertInterest(ctx context.Context, legislator *model.Legislator, meta *model.InterestMeta, sourceURL string) (Result, error) {
	var res Result
	err := r.inTx(ctx, "interest", strconv.Itoa(legislator.SourceID), func(tx Tx) error {
		existing, err := tx.FindInterest(ctx, legislator.ID)
		if err != nil {
			return err
		}

		i := existing
		if i == nil {
			i = &model.Interest{LegislatorID: legislator.ID}
		}
		i.InterestFields = meta.InterestFields
		i.SourceURL = sourceURL

		if existing == nil {
			res.Outcome = model.OutcomeCreated
			return tx.InsertInterest(ctx, i)
		}
		res.Outcome = model.OutcomeUpdated
		return tx.UpdateInterest(ctx, i)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package memstore

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
)

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx service.Tx) error {
		if err := tx.InsertSession(ctx, &model.Session{Number: 156}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	sessions, _ := s.ListSessions(ctx)
	if len(sessions) != 0 {
		t.Errorf("rolled back insert is visible: %+v", sessions)
	}
}

func TestInTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()

	var id int64
	err := s.InTx(ctx, func(tx service.Tx) error {
		sess := &model.Session{Number: 156, IsActive: true}
		if err := tx.InsertSession(ctx, sess); err != nil {
			return err
		}
		id = sess.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.InTx(ctx, func(tx service.Tx) error {
		got, err := tx.FindActiveSession(ctx)
		if err != nil {
			return err
		}
		if got == nil || got.ID != id || got.Number != 156 {
			t.Errorf("active session = %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestInTxHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.InTx(ctx, func(service.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("err = %v, called = %v", err, called)
	}
}

func seedMembers(t *testing.T, s *Store) (sessionID int64, legislatorIDs []int64) {
	t.Helper()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx service.Tx) error {
		sess := &model.Session{Number: 156}
		if err := tx.InsertSession(ctx, sess); err != nil {
			return err
		}
		sessionID = sess.ID
		for i, slug := range []string{"anna", "bjarni"} {
			l := &model.Legislator{SourceID: i + 1, Slug: slug}
			if err := tx.InsertLegislator(ctx, l); err != nil {
				return err
			}
			if err := tx.AddSessionMember(ctx, sess.ID, l.ID); err != nil {
				return err
			}
			legislatorIDs = append(legislatorIDs, l.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return sessionID, legislatorIDs
}

func TestInTxCopiesOnlyWrittenTables(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedMembers(t, s)

	before := s.read()
	err := s.InTx(ctx, func(tx service.Tx) error {
		return tx.InsertTopic(ctx, &model.Topic{Name: "Heilbrigðismál", Slug: "heilbrigdismal"})
	})
	if err != nil {
		t.Fatal(err)
	}
	after := s.read()

	if reflect.ValueOf(after.legislators).UnsafePointer() != reflect.ValueOf(before.legislators).UnsafePointer() {
		t.Error("untouched legislators table was copied")
	}
	if reflect.ValueOf(after.members).UnsafePointer() != reflect.ValueOf(before.members).UnsafePointer() {
		t.Error("untouched members table was copied")
	}
	if reflect.ValueOf(after.topics).UnsafePointer() == reflect.ValueOf(before.topics).UnsafePointer() {
		t.Error("written topics table shares the committed map")
	}
	if len(before.topics) != 0 || len(after.topics) != 1 {
		t.Errorf("topics before %d, after %d", len(before.topics), len(after.topics))
	}
}

func TestRolledBackMemberRemovalKeepsSet(t *testing.T) {
	s := New()
	ctx := context.Background()
	sessionID, ids := seedMembers(t, s)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx service.Tx) error {
		if err := tx.RemoveSessionMember(ctx, sessionID, ids[0]); err != nil {
			return err
		}
		if err := tx.AddSessionMember(ctx, sessionID, ids[1]); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	err = s.InTx(ctx, func(tx service.Tx) error {
		got, err := tx.SessionMemberIDs(ctx, sessionID)
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(got, ids) {
			t.Errorf("members after rollback = %v, want %v", got, ids)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSessionUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx service.Tx) error {
		if err := tx.InsertSession(ctx, &model.Session{Number: 155, IsActive: true}); err != nil {
			return err
		}
		if err := tx.InsertSession(ctx, &model.Session{Number: 156, IsActive: true}); err == nil {
			t.Error("second active session accepted")
		}
		if err := tx.InsertSession(ctx, &model.Session{Number: 155}); err == nil {
			t.Error("duplicate session number accepted")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPartyValidation(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx service.Tx) error {
		if err := tx.InsertParty(ctx, &model.Party{SourceID: 35, Name: "Sjálfstæðisflokkur"}); err != nil {
			return err
		}
		if err := tx.InsertParty(ctx, &model.Party{SourceID: 35, Name: "Annar"}); err == nil {
			t.Error("duplicate party source id accepted")
		}
		if err := tx.InsertParty(ctx, &model.Party{SourceID: 40, Name: "  "}); err == nil {
			t.Error("party without a name accepted")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBillRequiresSession(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx service.Tx) error {
		return tx.InsertBill(ctx, &model.Bill{SessionID: 99, SourceID: 1, Title: "Frumvarp", Slug: "frumvarp"})
	})
	if err == nil {
		t.Error("bill in unknown session accepted")
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(tx service.Tx) error {
		return tx.InsertParty(ctx, &model.Party{SourceID: 35, Name: "Sjálfstæðisflokkur"})
	})
	if err != nil {
		t.Fatal(err)
	}

	parties, _ := s.ListParties(ctx)
	parties[0].Name = "changed"

	again, _ := s.ListParties(ctx)
	if again[0].Name != "Sjálfstæðisflokkur" {
		t.Errorf("stored party mutated through a read: %q", again[0].Name)
	}
}

func TestListRuns(t *testing.T) {
	s := New()
	ctx := context.Background()

	if runs, _ := s.ListRuns(ctx, 10); len(runs) != 0 {
		t.Fatalf("runs = %+v", runs)
	}

	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	for i, stage := range []model.StageKind{model.StageParties, model.StageBills, model.StageVotes} {
		run := model.NewRunStats(stage, 156)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		run.Note("run %d", i)
		if err := s.RecordRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		if run.RunID == "" {
			t.Error("RecordRun did not assign a run id")
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Stage != model.StageVotes || runs[1].Stage != model.StageBills {
		t.Errorf("runs = %+v, want newest two first", runs)
	}

	all, _ := s.ListRuns(ctx, 0)
	if len(all) != 3 {
		t.Errorf("default limit returned %d runs", len(all))
	}
}

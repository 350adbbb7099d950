package store

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
)

var errRollback = errors.New("rollback")

// testStore connects to the database named by ALTHINGI_TEST_DATABASE_URL
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("ALTHINGI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ALTHINGI_TEST_DATABASE_URL not set")
	}
	db, err := NewDB(DBConfig{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	// twice, to check the schema is idempotent
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	return New(db)
}

// inRolledBackTx runs fn in a transaction that is always rolled back
func inRolledBackTx(t *testing.T, s *Store, fn func(ctx context.Context, tx service.Tx)) {
	t.Helper()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx service.Tx) error {
		fn(ctx, tx)
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Fatalf("InTx: %v", err)
	}
}

func TestSessionAndBillRoundTrip(t *testing.T) {
	s := testStore(t)
	inRolledBackTx(t, s, func(ctx context.Context, tx service.Tx) {
		sess := &model.Session{Number: 9901}
		if err := tx.InsertSession(ctx, sess); err != nil {
			t.Fatal(err)
		}
		got, err := tx.FindSessionByNumber(ctx, 9901)
		if err != nil || got == nil || got.ID != sess.ID {
			t.Fatalf("FindSessionByNumber = %+v, %v", got, err)
		}

		bill := &model.Bill{SessionID: sess.ID, SourceID: 1, Title: "Frumvarp til laga", Slug: "frumvarp-til-laga", Status: model.StatusInCommittee}
		if err := tx.InsertBill(ctx, bill); err != nil {
			t.Fatal(err)
		}
		taken, err := tx.BillSlugTaken(ctx, sess.ID, "frumvarp-til-laga", 0)
		if err != nil || !taken {
			t.Errorf("BillSlugTaken = %v, %v", taken, err)
		}
		taken, err = tx.BillSlugTaken(ctx, sess.ID, "frumvarp-til-laga", bill.ID)
		if err != nil || taken {
			t.Errorf("BillSlugTaken excluding itself = %v, %v", taken, err)
		}

		b, err := tx.FindBill(ctx, sess.ID, 1)
		if err != nil || b == nil || b.Title != bill.Title || b.Status != model.StatusInCommittee {
			t.Errorf("FindBill = %+v, %v", b, err)
		}
		if missing, err := tx.FindBill(ctx, sess.ID, 2); err != nil || missing != nil {
			t.Errorf("FindBill unknown = %+v, %v", missing, err)
		}
	})
}

func TestTopicsRoundTrip(t *testing.T) {
	s := testStore(t)
	inRolledBackTx(t, s, func(ctx context.Context, tx service.Tx) {
		sess := &model.Session{Number: 9902}
		if err := tx.InsertSession(ctx, sess); err != nil {
			t.Fatal(err)
		}
		bill := &model.Bill{SessionID: sess.ID, SourceID: 7, Title: "Sjúkrahús", Slug: "sjukrahus", Status: model.StatusInCommittee}
		if err := tx.InsertBill(ctx, bill); err != nil {
			t.Fatal(err)
		}

		topic := &model.Topic{Name: "Prófunarmál 9902", Slug: "profunarmal-9902", Keywords: []string{"sjúkra", "lækn"}}
		if err := tx.InsertTopic(ctx, topic); err != nil {
			t.Fatal(err)
		}
		got, err := tx.FindTopicByName(ctx, topic.Name)
		if err != nil || got == nil || !slices.Equal(got.Keywords, topic.Keywords) {
			t.Fatalf("FindTopicByName = %+v, %v", got, err)
		}

		added, err := tx.AddBillTopic(ctx, bill.ID, topic.ID)
		if err != nil || !added {
			t.Errorf("first AddBillTopic = %v, %v", added, err)
		}
		added, err = tx.AddBillTopic(ctx, bill.ID, topic.ID)
		if err != nil || added {
			t.Errorf("second AddBillTopic = %v, %v", added, err)
		}
	})
}

package service_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
	"github.com/jjenkins/althingi/internal/store/memstore"
	"github.com/sirupsen/logrus"
)

// feed serves canned Althingi documents keyed by path and query
type feed struct {
	mu   sync.Mutex
	docs map[string]string
}

func (f *feed) set(key, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[key] = body
}

func (f *feed) remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, key)
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	body, ok := f.docs[r.URL.Path+"?"+r.URL.RawQuery]
	if !ok {
		body, ok = f.docs[r.URL.Path]
	}
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	io.WriteString(w, body)
}

func newFeed() *feed {
	f := &feed{docs: make(map[string]string)}
	f.set("/loggjafarthing/yfirstandandi/", `<löggjafarþing><þing númer="156"><þingsetning>10.09.2025</þingsetning></þing></löggjafarþing>`)
	f.set("/loggjafarthing/", `<löggjafarþing>
  <þing númer="156"><þingsetning>10.09.2025</þingsetning></þing>
  <þing númer="155"><þingsetning>10.09.2024</þingsetning><þinglok>30.11.2024</þinglok></þing>
</löggjafarþing>`)
	f.set("/thingflokkar/?lthing=156", `<þingflokkar>
  <þingflokkur id="35"><heiti>Sjálfstæðisflokkur</heiti><skammstafanir><stuttskammstöfun>S</stuttskammstöfun></skammstafanir></þingflokkur>
  <þingflokkur id="38"><heiti>Samfylkingin</heiti><skammstafanir><stuttskammstöfun>Sf</stuttskammstöfun></skammstafanir></þingflokkur>
</þingflokkar>`)
	f.set("/thingmenn/?lthing=156", `<þingmannalisti>
  <þingmaður id="1215"><nafn>Bjarni Benediktsson</nafn></þingmaður>
  <þingmaður id="1300"><nafn>Kristrún Frostadóttir</nafn></þingmaður>
</þingmannalisti>`)
	f.set("/thingmenn/thingmadur/?nr=1215", `<þingmaður id="1215"><nafn>Bjarni Benediktsson</nafn><netfang><nafn>bjarnib</nafn><lén>althingi.is</lén></netfang></þingmaður>`)
	f.set("/thingmenn/thingmadur/thingseta/?nr=1215", seatsDoc(35, "Sjálfstæðisflokkur"))
	f.set("/thingmenn/thingmadur/thingseta/?nr=1300", seatsDoc(38, "Samfylkingin"))
	f.set("/thingmalalisti/?lthing=156", `<málaskrá><mál málsnúmer="12" þingnúmer="156"><málsheiti>Heilbrigðisþjónusta í héraði</málsheiti></mál></málaskrá>`)
	f.set("/thingmalalisti/thingmal/?lthing=156&malnr=12", `<þingmál>
  <mál málsnúmer="12" þingnúmer="156">
    <málsheiti>Heilbrigðisþjónusta í héraði</málsheiti>
    <málstegund><heiti>Fyrirspurn</heiti></málstegund>
    <staðamáls>Í nefnd</staðamáls>
  </mál>
  <þingskjöl><þingskjal skjalsnúmer="12"><útbýting>2025-09-11 14:20</útbýting></þingskjal></þingskjöl>
  <atkvæðagreiðslur>
    <atkvæðagreiðsla atkvæðagreiðslunúmer="70001"/>
    <atkvæðagreiðsla atkvæðagreiðslunúmer="70002"/>
  </atkvæðagreiðslur>
</þingmál>`)
	f.set("/thingskjol/thingskjal/?lthing=156&skjalnr=12", `<þingskjal><flutningsmenn>
  <flutningsmaður id="1215" röð="1"><nafn>Bjarni Benediktsson</nafn></flutningsmaður>
  <flutningsmaður id="1300" röð="2"><nafn>Kristrún Frostadóttir</nafn></flutningsmaður>
</flutningsmenn></þingskjal>`)
	f.set("/atkvaedagreidslur/atkvaedagreidsla/?numer=70002", `<atkvæðagreiðsla atkvæðagreiðslunúmer="70002" málsnúmer="12" þingnúmer="156">
  <tími>2025-10-15T15:30:00</tími>
  <niðurstaða><niðurstaða>samþykkt</niðurstaða></niðurstaða>
  <atkvæðaskrá>
    <þingmaður id="1215"><atkvæði>já</atkvæði></þingmaður>
    <þingmaður id="1300"><atkvæði>nei</atkvæði></þingmaður>
    <þingmaður id="9999"><atkvæði>já</atkvæði></þingmaður>
  </atkvæðaskrá>
</atkvæðagreiðsla>`)
	f.set("/thingmenn/thingmadur/raedur/?lthing=156&nr=1215", `<ræðulisti>
  <ræða><löggjafarþing>156</löggjafarþing><dagur>15.10.2025</dagur><ræðahófst>2025-10-15T14:00:00</ræðahófst><ræðulauk>2025-10-15T14:05:30</ræðulauk><mál málsnúmer="12"/></ræða>
  <ræða><löggjafarþing>155</löggjafarþing><dagur>15.10.2024</dagur><ræðahófst>2024-10-15T14:00:00</ræðahófst><ræðulauk>2024-10-15T14:01:00</ræðulauk></ræða>
</ræðulisti>`)
	f.set("/thingmenn/thingmadur/raedur/?lthing=156&nr=1300", `<ræðulisti>
  <ræða><löggjafarþing>156</löggjafarþing><dagur>16.10.2025</dagur><ræðahófst>2025-10-16T10:00:00</ræðahófst><ræðulauk>2025-10-16T10:01:00</ræðulauk><mál málsnúmer="77"/></ræða>
</ræðulisti>`)
	f.set("/thingmenn/thingmadur/hagsmunir/?nr=1215", `<hagsmunir><launaðstarf><svar>Lögmaður</svar></launaðstarf></hagsmunir>`)
	return f
}

func seatsDoc(party int, name string) string {
	return `<þingmaður><þingsetur><þingseta><þing>156</þing><þingflokkur id="` +
		strconv.Itoa(party) + `">` + name + `</þingflokkur><kjördæmi>Reykjavíkurkjördæmi norður</kjördæmi><tímabil><inn>01.12.2024</inn></tímabil></þingseta></þingsetur></þingmaður>`
}

type harness struct {
	store    *memstore.Store
	importer *service.Importer
	pipeline *service.Pipeline
	feed     *feed
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithDelay(t, 0)
}

func newHarnessWithDelay(t *testing.T, delay time.Duration) *harness {
	t.Helper()
	f := newFeed()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st := memstore.New()
	client := service.NewAlthingiClient(service.ClientConfig{BaseURL: srv.URL, MaxRetries: 1, Timeout: 5 * time.Second, RequestDelay: delay})
	imp := service.NewImporter(client, service.NewParser(), st, logger)
	registry := service.NewRegistry(imp, "keyword")
	return &harness{
		store:    st,
		importer: imp,
		pipeline: service.NewPipeline(imp, registry, st, logger),
		feed:     f,
	}
}

func (h *harness) run(t *testing.T, opts service.ImportOptions, stages ...string) map[model.StageKind]*model.RunStats {
	t.Helper()
	kinds, err := service.ParseStages(stages)
	if err != nil {
		t.Fatal(err)
	}
	results, err := h.pipeline.Run(context.Background(), 0, kinds, opts)
	if err != nil {
		t.Fatalf("pipeline run: %v", err)
	}
	out := make(map[model.StageKind]*model.RunStats, len(results))
	for _, r := range results {
		out[r.Stage] = r
	}
	return out
}

func (h *harness) legislator(t *testing.T, sourceID int) *model.Legislator {
	t.Helper()
	var l *model.Legislator
	err := h.store.InTx(context.Background(), func(tx service.Tx) error {
		var err error
		l, err = tx.FindLegislatorBySourceID(context.Background(), sourceID)
		return err
	})
	if err != nil || l == nil {
		t.Fatalf("legislator %d: %v", sourceID, err)
	}
	return l
}

func (h *harness) activeSession(t *testing.T) int {
	t.Helper()
	sessions, err := h.store.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	active := 0
	for _, s := range sessions {
		if s.IsActive {
			if active != 0 {
				t.Fatalf("sessions %d and %d are both active", active, s.Number)
			}
			active = s.Number
		}
	}
	return active
}

func (h *harness) bill(t *testing.T, sessionNumber, sourceID int) *model.Bill {
	t.Helper()
	var b *model.Bill
	ctx := context.Background()
	err := h.store.InTx(ctx, func(tx service.Tx) error {
		s, err := tx.FindSessionByNumber(ctx, sessionNumber)
		if err != nil || s == nil {
			return err
		}
		b, err = tx.FindBill(ctx, s.ID, sourceID)
		return err
	})
	if err != nil || b == nil {
		t.Fatalf("bill %d/%d: %v", sessionNumber, sourceID, err)
	}
	return b
}

func TestPipelineEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got := h.run(t, service.ImportOptions{}, "all")
	if len(got) != len(model.StageOrder)-1 {
		t.Fatalf("ran %d stages", len(got))
	}

	// the active session is created while resolving the run's session
	if s := got[model.StageSessions]; s.Created != 1 || s.Updated != 1 || s.Failed != 0 {
		t.Errorf("sessions = %+v", s)
	}
	if s := got[model.StageParties]; s.Created != 2 || s.Total != 2 {
		t.Errorf("parties = %+v", s)
	}
	if s := got[model.StageLegislators]; s.Created != 2 || s.Failed != 0 {
		t.Errorf("legislators = %+v", s)
	}
	if s := got[model.StageBills]; s.Created != 1 || s.Missing != 0 {
		t.Errorf("bills = %+v", s)
	}
	if s := got[model.StageVotes]; s.Created != 1 || s.Missing != 1 {
		t.Errorf("votes = %+v, want one unknown voter missing", s)
	}
	if s := got[model.StageSpeeches]; s.Created != 2 || s.Missing != 1 {
		t.Errorf("speeches = %+v, want the speech on bill 77 missing its bill", s)
	}
	if s := got[model.StageTopics]; s.Created < 1 {
		t.Errorf("topics = %+v, want the health topic assigned", s)
	}

	sessions, err := h.store.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	active := 0
	for _, s := range sessions {
		if s.IsActive {
			active++
			if s.Number != 156 {
				t.Errorf("active session = %d", s.Number)
			}
		}
	}
	if active != 1 {
		t.Errorf("%d active sessions", active)
	}

	bjarni := h.legislator(t, 1215)
	if bjarni.Slug != "bjarni-benediktsson" || bjarni.Email != "bjarnib@althingi.is" || !bjarni.PartyID.Valid {
		t.Errorf("legislator 1215 = %+v", bjarni)
	}
	if bjarni.BillsSponsored != 1 || bjarni.SpeechCount != 1 || bjarni.TotalSpeakingTime != 330 {
		t.Errorf("legislator 1215 counters = sponsored %d, speeches %d, seconds %d",
			bjarni.BillsSponsored, bjarni.SpeechCount, bjarni.TotalSpeakingTime)
	}
	if k := h.legislator(t, 1300); k.BillsCosponsored != 1 {
		t.Errorf("legislator 1300 cosponsored = %d", k.BillsCosponsored)
	}

	bill := h.bill(t, 156, 12)
	if bill.Status != model.StatusPassed || !bill.VotingID.Valid || bill.VotingID.Int64 != 70002 {
		t.Errorf("bill after votes = status %s voting %v", bill.Status, bill.VotingID)
	}
	if bill.PrimarySponsorID.Int64 != bjarni.ID {
		t.Errorf("primary sponsor = %v", bill.PrimarySponsorID)
	}

	rows, err := h.store.PartyVoteRows(ctx, bill.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("party vote rows = %+v", rows)
	}

	runs, err := h.store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != len(got) {
		t.Errorf("recorded %d runs, want %d", len(runs), len(got))
	}
}

func TestPipelineIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.run(t, service.ImportOptions{}, "parties", "legislators", "bills", "votes", "topics")

	before := h.bill(t, 156, 12)
	got := h.run(t, service.ImportOptions{}, "parties", "legislators", "bills", "votes", "topics")

	for _, k := range []model.StageKind{model.StageParties, model.StageLegislators, model.StageBills} {
		if s := got[k]; s.Created != 0 || s.Updated != s.Total {
			t.Errorf("%s rerun = %+v, want only updates", k, s)
		}
	}
	if s := got[model.StageVotes]; s.Unchanged != 1 || s.Created+s.Updated != 0 {
		t.Errorf("votes rerun = %+v, want latest voting left alone", s)
	}
	if s := got[model.StageTopics]; s.Created != 0 {
		t.Errorf("topics rerun = %+v, want no new links", s)
	}

	after := h.bill(t, 156, 12)
	if after.ID != before.ID || after.Slug != before.Slug {
		t.Errorf("bill identity changed: %+v -> %+v", before, after)
	}
	if k := h.legislator(t, 1300); k.BillsCosponsored != 1 {
		t.Errorf("cosponsor count after rerun = %d", k.BillsCosponsored)
	}
}

func TestForcedVotesReplaceStoredBallots(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.run(t, service.ImportOptions{}, "parties", "legislators", "bills", "votes")

	h.feed.set("/atkvaedagreidslur/atkvaedagreidsla/?numer=70002", `<atkvæðagreiðsla atkvæðagreiðslunúmer="70002">
  <tími>2025-10-15T15:30:00</tími>
  <niðurstaða><niðurstaða>fellt</niðurstaða></niðurstaða>
  <atkvæðaskrá><þingmaður id="1215"><atkvæði>nei</atkvæði></þingmaður></atkvæðaskrá>
</atkvæðagreiðsla>`)

	got := h.run(t, service.ImportOptions{Force: true, BillNumber: 12}, "votes")
	if s := got[model.StageVotes]; s.Updated != 1 {
		t.Errorf("forced votes = %+v", s)
	}

	bill := h.bill(t, 156, 12)
	if bill.Status != model.StatusRejected {
		t.Errorf("status = %s, want rejected", bill.Status)
	}
	rows, err := h.store.PartyVoteRows(ctx, bill.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Choice != model.VoteNo {
		t.Errorf("votes after replace = %+v", rows)
	}
}

func TestLegislatorSlugCollision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := h.importer.Reconciler()

	a, _, err := rec.UpsertLegislator(ctx, model.LegislatorMeta{SourceID: 1, Name: "Jón Jónsson"})
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := rec.UpsertLegislator(ctx, model.LegislatorMeta{SourceID: 2, Name: "Jón Jónsson"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Slug != "jon-jonsson" || b.Slug != "jon-jonsson-1" {
		t.Errorf("slugs = %q, %q", a.Slug, b.Slug)
	}

	// Reconciling again keeps each legislator's own slug
	a2, res, err := rec.UpsertLegislator(ctx, model.LegislatorMeta{SourceID: 1, Name: "Jón Jónsson"})
	if err != nil {
		t.Fatal(err)
	}
	if a2.ID != a.ID || a2.Slug != "jon-jonsson" || res.Outcome != model.OutcomeUpdated {
		t.Errorf("rerun = %+v (%s)", a2, res.Outcome)
	}
}

func TestLegislatorKeepsContactDetailsWhenMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := h.importer.Reconciler()

	if _, _, err := rec.UpsertLegislator(ctx, model.LegislatorMeta{SourceID: 5, Name: "Anna Jónsdóttir", Email: "anna@althingi.is"}); err != nil {
		t.Fatal(err)
	}
	l, _, err := rec.UpsertLegislator(ctx, model.LegislatorMeta{SourceID: 5, Name: "Anna Jónsdóttir"})
	if err != nil {
		t.Fatal(err)
	}
	if l.Email != "anna@althingi.is" {
		t.Errorf("Email = %q, want kept", l.Email)
	}
}

func TestInterestsStage(t *testing.T) {
	h := newHarness(t)
	h.run(t, service.ImportOptions{}, "parties", "legislators")

	got := h.run(t, service.ImportOptions{}, "interests")
	s := got[model.StageInterests]
	if s.Created != 1 || s.NotFound != 1 {
		t.Errorf("interests = %+v, want one stored and one without a registration", s)
	}
}

func TestPipelineRejectsUnknownStrategy(t *testing.T) {
	h := newHarness(t)
	kinds, _ := service.ParseStages([]string{"topics"})

	results, err := h.pipeline.Run(context.Background(), 0, kinds, service.ImportOptions{Strategy: "astrology"})
	var cfgErr *service.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if len(results) != 0 {
		t.Errorf("stages ran despite configuration error: %+v", results)
	}
}

func TestPipelineWithoutActiveSession(t *testing.T) {
	h := newHarness(t)
	h.feed.mu.Lock()
	delete(h.feed.docs, "/loggjafarthing/yfirstandandi/")
	h.feed.mu.Unlock()

	kinds, _ := service.ParseStages([]string{"parties"})
	_, err := h.pipeline.Run(context.Background(), 0, kinds, service.ImportOptions{})
	var cfgErr *service.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}

	results, err := h.pipeline.Run(context.Background(), 156, kinds, service.ImportOptions{})
	if err != nil {
		t.Fatalf("explicit session: %v", err)
	}
	if len(results) != 1 || results[0].Created != 2 {
		t.Errorf("results = %+v", results)
	}
}

func TestStageFailureDoesNotStopLaterStages(t *testing.T) {
	h := newHarness(t)
	h.feed.mu.Lock()
	delete(h.feed.docs, "/thingflokkar/?lthing=156")
	h.feed.mu.Unlock()

	kinds, _ := service.ParseStages([]string{"parties", "legislators"})
	results, err := h.pipeline.Run(context.Background(), 0, kinds, service.ImportOptions{})
	if err == nil {
		t.Fatal("expected the parties stage error")
	}
	if len(results) != 2 {
		t.Fatalf("ran %d stages, want 2", len(results))
	}
	if results[0].Failed != 1 {
		t.Errorf("parties = %+v", results[0])
	}
	if results[1].Created != 2 || results[1].Missing != 2 {
		t.Errorf("legislators = %+v, want created with missing parties", results[1])
	}
}

func TestPartyLegislatorBillTopicScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.feed.set("/thingflokkar/?lthing=156", `<þingflokkar><þingflokkur id="99"><heiti>Test Party</heiti><skammstafanir><stuttskammstöfun>T</stuttskammstöfun></skammstafanir></þingflokkur></þingflokkar>`)
	h.feed.set("/thingmenn/?lthing=156", `<þingmannalisti><þingmaður id="1215"><nafn>Bjarni Benediktsson</nafn></þingmaður></þingmannalisti>`)
	h.feed.set("/thingmenn/thingmadur/thingseta/?nr=1215", seatsDoc(99, "Test Party"))
	h.feed.set("/thingmalalisti/thingmal/?lthing=156&malnr=12", `<þingmál><mál málsnúmer="12"><málsheiti>Sjúkrahús á Akureyri</málsheiti></mál></þingmál>`)

	got := h.run(t, service.ImportOptions{}, "parties", "legislators", "bills", "topics")

	parties, err := h.store.ListParties(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(parties) != 1 || parties[0].Name != "Test Party" || parties[0].SourceID != 99 {
		t.Fatalf("parties = %+v", parties)
	}
	if l := h.legislator(t, 1215); l.PartyID.Int64 != parties[0].ID {
		t.Errorf("legislator party = %v, want %d", l.PartyID, parties[0].ID)
	}
	if s := got[model.StageBills]; s.Created != 1 {
		t.Errorf("bills = %+v", s)
	}
	if s := got[model.StageTopics]; s.Created != 1 || s.Updated != 1 {
		t.Errorf("topics = %+v, want the bill linked to one topic", s)
	}
}

func TestLegislatorRenameKeepsIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := h.importer.Reconciler()

	first, _, err := rec.UpsertLegislator(ctx, model.LegislatorMeta{SourceID: 7, Name: "Anna Jónsdóttir"})
	if err != nil {
		t.Fatal(err)
	}
	second, res, err := rec.UpsertLegislator(ctx, model.LegislatorMeta{SourceID: 7, Name: "Anna Sigríður Jónsdóttir"})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID || res.Outcome != model.OutcomeUpdated {
		t.Errorf("rename created a new legislator: %d -> %d (%s)", first.ID, second.ID, res.Outcome)
	}
	if second.FullName() != "Anna Sigríður Jónsdóttir" || second.Slug != "anna-sigridur-jonsdottir" {
		t.Errorf("renamed legislator = %q %q", second.FullName(), second.Slug)
	}

	var all []model.Legislator
	err = h.store.InTx(ctx, func(tx service.Tx) error {
		all, err = tx.ListLegislators(ctx, 0)
		return err
	})
	if err != nil || len(all) != 1 {
		t.Errorf("legislators = %d, %v", len(all), err)
	}
}

func TestBillSlugCollision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := h.importer.Reconciler()

	session, _, err := rec.EnsureSession(ctx, model.SessionMeta{Number: 156})
	if err != nil {
		t.Fatal(err)
	}
	a, _, err := rec.UpsertBill(ctx, session, &model.BillMeta{SourceID: 1, Title: "Fjárlög 2026"}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := rec.UpsertBill(ctx, session, &model.BillMeta{SourceID: 2, Title: "Fjárlög 2026"}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if a.Slug != "fjarlog-2026" || b.Slug != "fjarlog-2026-1" {
		t.Errorf("slugs = %q, %q", a.Slug, b.Slug)
	}
	if a.Status != model.MapBillStatus("") {
		t.Errorf("status without text = %s", a.Status)
	}
}

func TestOfficialClassifierLinksCategoryBills(t *testing.T) {
	const delay = 20 * time.Millisecond
	h := newHarnessWithDelay(t, delay)
	ctx := context.Background()
	h.run(t, service.ImportOptions{}, "parties", "legislators", "bills")

	h.feed.set("/efnisflokkar/", `<efnisflokkar><yfirflokkur id="1"><heiti>Velferð</heiti>
  <efnisflokkur id="10"><heiti>Heilbrigðismál</heiti><lýsing>Sjúkrahús og heilsugæsla</lýsing></efnisflokkur>
  <efnisflokkur id="11"><heiti>Tryggingamál</heiti></efnisflokkur>
</yfirflokkur></efnisflokkar>`)
	h.feed.set("/thingmalalisti/efnisflokkur/?efnisflokkur=10&lthing=156", `<málaskrá>
  <mál málsnúmer="12" þingnúmer="156"><málsheiti>Heilbrigðisþjónusta í héraði</málsheiti></mál>
  <mál málsnúmer="40" þingnúmer="156"><málsheiti>Ekki sótt</málsheiti></mál>
</málaskrá>`)
	h.feed.set("/thingmalalisti/efnisflokkur/?efnisflokkur=11&lthing=156", `<málaskrá></málaskrá>`)

	start := time.Now()
	got := h.run(t, service.ImportOptions{Strategy: "official"}, "topics")
	if s := got[model.StageTopics]; s.Total != 2 || s.Created != 1 || s.NotFound != 1 || s.Failed != 0 {
		t.Errorf("official topics = %+v, want bill 12 linked and bill 40 not found", s)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("two categories classified in %s, want a pause between them", elapsed)
	}

	var topics []model.Topic
	err := h.store.InTx(ctx, func(tx service.Tx) error {
		var err error
		topics, err = tx.ListTopics(ctx)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]string, len(topics))
	for _, tp := range topics {
		names[tp.Name] = tp.Description
	}
	if d, ok := names["Heilbrigðismál"]; !ok || d != "Sjúkrahús og heilsugæsla" {
		t.Errorf("category topic = %q, %v", d, ok)
	}
	if d := names["Tryggingamál"]; d != "Velferð" {
		t.Errorf("category without description = %q, want its group", d)
	}

	got = h.run(t, service.ImportOptions{Strategy: "official"}, "topics")
	if s := got[model.StageTopics]; s.Created != 0 || s.Unchanged != 1 {
		t.Errorf("official rerun = %+v, want the link kept", s)
	}
}

func TestClearTopicsDropsStaleAssignments(t *testing.T) {
	h := newHarness(t)
	const detail = "/thingmalalisti/thingmal/?lthing=156&malnr=12"
	original := newFeed().docs[detail]

	got := h.run(t, service.ImportOptions{}, "parties", "legislators", "bills", "topics")
	if s := got[model.StageTopics]; s.Created < 1 {
		t.Fatalf("topics = %+v", s)
	}

	h.feed.set(detail, `<þingmál><mál málsnúmer="12" þingnúmer="156"><málsheiti>Vegagerð á Vestfjörðum</málsheiti></mál></þingmál>`)
	h.run(t, service.ImportOptions{}, "bills")

	got = h.run(t, service.ImportOptions{ClearTopics: true}, "topics")
	if s := got[model.StageTopics]; s.Unchanged != 1 || s.Created != 0 {
		t.Errorf("cleared topics = %+v, want the retitled bill left without topics", s)
	}

	// The old link is gone, so restoring the title links the bill again
	h.feed.set(detail, original)
	h.run(t, service.ImportOptions{}, "bills")
	got = h.run(t, service.ImportOptions{}, "topics")
	if s := got[model.StageTopics]; s.Created < 1 || s.Updated != 1 {
		t.Errorf("topics after restore = %+v, want the link recreated", s)
	}
}

func TestLegislatorsStageDropsFormerMembers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.run(t, service.ImportOptions{}, "parties", "legislators")

	h.feed.set("/thingmenn/?lthing=156", `<þingmannalisti><þingmaður id="1215"><nafn>Bjarni Benediktsson</nafn></þingmaður></þingmannalisti>`)
	h.run(t, service.ImportOptions{}, "legislators")

	var members, all []model.Legislator
	err := h.store.InTx(ctx, func(tx service.Tx) error {
		s, err := tx.FindSessionByNumber(ctx, 156)
		if err != nil {
			return err
		}
		if members, err = tx.ListLegislators(ctx, s.ID); err != nil {
			return err
		}
		all, err = tx.ListLegislators(ctx, 0)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].SourceID != 1215 {
		t.Errorf("session members = %+v, want only 1215", members)
	}
	if len(all) != 2 {
		t.Errorf("legislators = %d, want the former member kept", len(all))
	}
}

func TestActiveSessionFollowsSource(t *testing.T) {
	h := newHarness(t)
	parties := newFeed().docs["/thingflokkar/?lthing=156"]
	h.feed.set("/thingflokkar/?lthing=155", parties)
	h.feed.set("/loggjafarthing/yfirstandandi/", `<löggjafarþing><þing númer="155"><þingsetning>10.09.2024</þingsetning></þing></löggjafarþing>`)

	h.run(t, service.ImportOptions{}, "parties")
	if n := h.activeSession(t); n != 155 {
		t.Fatalf("active session = %d, want 155", n)
	}

	h.feed.set("/loggjafarthing/yfirstandandi/", `<löggjafarþing><þing númer="156"><þingsetning>10.09.2025</þingsetning></þing></löggjafarþing>`)
	h.run(t, service.ImportOptions{}, "parties")
	if n := h.activeSession(t); n != 156 {
		t.Errorf("active session = %d, want the flag moved to 156", n)
	}
}

func TestExplicitSessionRefreshesActiveFlag(t *testing.T) {
	h := newHarness(t)
	h.feed.set("/thingflokkar/?lthing=155", newFeed().docs["/thingflokkar/?lthing=156"])

	kinds, _ := service.ParseStages([]string{"parties"})
	results, err := h.pipeline.Run(context.Background(), 155, kinds, service.ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Session != 155 {
		t.Errorf("results = %+v, want a run of session 155", results)
	}
	if n := h.activeSession(t); n != 156 {
		t.Errorf("active session = %d, want 156 from the source", n)
	}
}

func TestStoredActiveSessionUsedWhenSourceIsDown(t *testing.T) {
	h := newHarness(t)
	h.run(t, service.ImportOptions{}, "parties")

	h.feed.remove("/loggjafarthing/yfirstandandi/")
	got := h.run(t, service.ImportOptions{}, "parties")
	if s := got[model.StageParties]; s.Session != 156 || s.Updated != 2 {
		t.Errorf("parties = %+v, want a rerun of stored session 156", s)
	}
	if n := h.activeSession(t); n != 156 {
		t.Errorf("active session = %d", n)
	}
}

func TestPartyAndLegislatorDerivedFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.feed.set("/thingmenn/thingmadur/thingseta/?nr=1300", `<þingmaður><þingsetur>
  <þingseta><þing>150</þing><tegund>varamaður</tegund><þingflokkur id="38">Samfylkingin</þingflokkur><tímabil><inn>05.03.2018</inn><út>12.03.2018</út></tímabil></þingseta>
  <þingseta><þing>152</þing><tegund>þingmaður</tegund><þingflokkur id="38">Samfylkingin</þingflokkur><tímabil><inn>25.09.2021</inn><út>30.11.2024</út></tímabil></þingseta>
</þingsetur></þingmaður>`)
	h.run(t, service.ImportOptions{}, "parties", "legislators")

	parties, err := h.store.ListParties(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, p := range parties {
		if p.SourceID != 35 {
			continue
		}
		found = true
		if !p.FoundingDate.Valid || !p.FoundingDate.Time.Equal(time.Date(1929, 5, 25, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("founding date = %v", p.FoundingDate)
		}
		if p.Description != "Þingflokkur á 156. löggjafarþingi" {
			t.Errorf("description = %q", p.Description)
		}
	}
	if !found {
		t.Fatal("party 35 not stored")
	}

	if l := h.legislator(t, 1215); !l.Active {
		t.Error("legislator with an open seat should be active")
	}
	k := h.legislator(t, 1300)
	if k.Active {
		t.Error("legislator whose last seat closed should be inactive")
	}
	if !k.FirstElected.Valid || !k.FirstElected.Time.Equal(time.Date(2021, 9, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first elected = %v, want the first elected seat", k.FirstElected)
	}
}

func TestVotesStageNotesUnknownBallots(t *testing.T) {
	h := newHarness(t)
	h.feed.set("/atkvaedagreidslur/atkvaedagreidsla/?numer=70002", `<atkvæðagreiðsla atkvæðagreiðslunúmer="70002">
  <tími>2025-10-15T15:30:00</tími>
  <niðurstaða><niðurstaða>samþykkt</niðurstaða></niðurstaða>
  <atkvæðaskrá>
    <þingmaður id="1215"><atkvæði>já</atkvæði></þingmaður>
    <þingmaður id="1300"><atkvæði>boðaði forföll</atkvæði></þingmaður>
  </atkvæðaskrá>
</atkvæðagreiðsla>`)

	got := h.run(t, service.ImportOptions{}, "parties", "legislators", "bills", "votes")
	s := got[model.StageVotes]
	if s.Created != 1 {
		t.Fatalf("votes = %+v", s)
	}
	var noted bool
	for _, n := range s.Notes {
		if strings.Contains(n, `"boðaði forföll"`) && strings.Contains(n, "1300") {
			noted = true
		}
	}
	if !noted {
		t.Errorf("notes = %q, want the unknown ballot recorded", s.Notes)
	}
}

func TestPauseBetweenRequestsAfterMissingRecords(t *testing.T) {
	const delay = 50 * time.Millisecond
	h := newHarnessWithDelay(t, delay)
	h.run(t, service.ImportOptions{}, "parties", "legislators")
	h.feed.remove("/thingmenn/thingmadur/hagsmunir/?nr=1215")

	start := time.Now()
	got := h.run(t, service.ImportOptions{}, "interests")
	elapsed := time.Since(start)

	if s := got[model.StageInterests]; s.NotFound != 2 {
		t.Fatalf("interests = %+v, want both registrations missing", s)
	}
	if elapsed < delay {
		t.Errorf("interests finished in %s, want a pause of at least %s between requests", elapsed, delay)
	}
}

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/althingi/internal/model"
	"github.com/jjenkins/althingi/internal/service"
	"github.com/jjenkins/althingi/internal/store/memstore"
	"github.com/sirupsen/logrus"
)

func newTestApp(t *testing.T, seed bool) *fiber.App {
	t.Helper()
	st := memstore.New()
	if seed {
		ctx := context.Background()
		err := st.InTx(ctx, func(tx service.Tx) error {
			s := &model.Session{Number: 156, IsActive: true}
			if err := tx.InsertSession(ctx, s); err != nil {
				return err
			}
			voted := sql.NullTime{Time: time.Now().UTC(), Valid: true}
			for i, status := range []model.BillStatus{model.StatusPassed, model.StatusInCommittee} {
				b := &model.Bill{
					SessionID: s.ID,
					SourceID:  i + 1,
					Title:     "Frumvarp " + string(status),
					Slug:      "frumvarp-" + string(status),
					Status:    status,
					VoteDate:  voted,
				}
				if err := tx.InsertBill(ctx, b); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	Register(app, service.NewActivityService(st), st, logger)
	return app
}

func get(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestSessionSummary(t *testing.T) {
	app := newTestApp(t, true)

	status, body := get(t, app, "/api/sessions/156/summary")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d: %s", status, body)
	}
	var summary model.SessionSummary
	if err := json.Unmarshal([]byte(body), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Session != 156 || summary.TotalBills != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.StatusCounts[model.StatusPassed] != 1 {
		t.Errorf("status counts = %v", summary.StatusCounts)
	}
}

func TestSessionErrors(t *testing.T) {
	app := newTestApp(t, true)

	cases := []struct {
		target string
		status int
		msg    string
	}{
		{"/api/sessions/abc/summary", fiber.StatusBadRequest, "Invalid session number"},
		{"/api/sessions/-1/cohesion", fiber.StatusBadRequest, "Invalid session number"},
		{"/api/sessions/99/summary", fiber.StatusNotFound, "Session not found"},
		{"/api/speakers?session=99", fiber.StatusNotFound, "Session not found"},
	}
	for _, tc := range cases {
		status, body := get(t, app, tc.target)
		if status != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.target, status, tc.status)
		}
		var e errorBody
		if err := json.Unmarshal([]byte(body), &e); err != nil || e.Error != tc.msg {
			t.Errorf("%s: body = %s", tc.target, body)
		}
	}
}

func TestActiveSessionEndpoints(t *testing.T) {
	app := newTestApp(t, true)

	status, body := get(t, app, "/api/sessions/0/cohesion")
	if status != fiber.StatusOK || !strings.Contains(body, `"session":156`) {
		t.Errorf("cohesion = %d %s", status, body)
	}

	status, body = get(t, app, "/api/timeline?months=3")
	if status != fiber.StatusOK {
		t.Fatalf("timeline status = %d", status)
	}
	var timeline []model.MonthCount
	if err := json.Unmarshal([]byte(body), &timeline); err != nil {
		t.Fatal(err)
	}
	if len(timeline) != 3 || timeline[2].Count != 1 {
		t.Errorf("timeline = %+v", timeline)
	}

	status, body = get(t, app, "/api/timeline?months=1000000000")
	if status != fiber.StatusOK {
		t.Fatalf("huge timeline status = %d", status)
	}
	timeline = nil
	if err := json.Unmarshal([]byte(body), &timeline); err != nil {
		t.Fatal(err)
	}
	if len(timeline) != 120 {
		t.Errorf("huge timeline has %d months, want 120", len(timeline))
	}

	status, body = get(t, app, "/api/speakers")
	if status != fiber.StatusOK || strings.TrimSpace(body) != "[]" {
		t.Errorf("speakers = %d %s", status, body)
	}
}

func TestRunsNeverNull(t *testing.T) {
	app := newTestApp(t, false)

	status, body := get(t, app, "/api/runs")
	if status != fiber.StatusOK || body != "[]" {
		t.Errorf("runs = %d %q", status, body)
	}
}

func TestDashboard(t *testing.T) {
	app := newTestApp(t, true)

	status, body := get(t, app, "/")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "Alþingi: 156. löggjafarþing") {
		t.Error("dashboard is missing the session title")
	}

	if status, _ := get(t, app, "/?session=99"); status != fiber.StatusNotFound {
		t.Errorf("unknown session status = %d", status)
	}
	if status, _ := get(t, app, "/?session=x"); status != fiber.StatusBadRequest {
		t.Errorf("bad session status = %d", status)
	}
}

func TestDashboardEmpty(t *testing.T) {
	app := newTestApp(t, false)

	status, body := get(t, app, "/")
	if status != fiber.StatusOK || !strings.Contains(body, "No data has been imported") {
		t.Errorf("empty dashboard = %d", status)
	}
}

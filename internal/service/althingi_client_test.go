package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(url string, retries int) *AlthingiClient {
	return NewAlthingiClient(ClientConfig{
		BaseURL:    url,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		UserAgent:  "althingi-test",
	})
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if got := r.Header.Get("User-Agent"); got != "althingi-test" {
			t.Errorf("User-Agent = %q", got)
		}
		if r.URL.Path != "/thingmalalisti/thingmal/" || r.URL.Query().Get("lthing") != "156" || r.URL.Query().Get("malnr") != "12" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte("<þingmál/>"))
	}))
	defer srv.Close()

	body, err := testClient(srv.URL, 3).FetchBill(context.Background(), 156, 12)
	if err != nil {
		t.Fatalf("FetchBill: %v", err)
	}
	if string(body) != "<þingmál/>" {
		t.Errorf("body = %q", body)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestClientPermanentFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).FetchInterests(context.Background(), 1215)
	if !errors.Is(err, ErrPermanentFetch) {
		t.Fatalf("err = %v, want permanent", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound = false for a 404")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 2).FetchSessions(context.Background())
	if !errors.Is(err, ErrTransientFetch) {
		t.Fatalf("err = %v, want transient", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("FetchError = %+v", fe)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestClientMalformedURL(t *testing.T) {
	_, err := testClient("::not a url", 3).FetchSessions(context.Background())
	if !errors.Is(err, ErrPermanentFetch) {
		t.Errorf("err = %v, want permanent", err)
	}
}

func TestClientHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewAlthingiClient(ClientConfig{BaseURL: srv.URL, MaxRetries: 5, Backoff: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchSessions(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("backoff ignored cancellation")
	}
}

func TestCategoryBillsURL(t *testing.T) {
	c := testClient("https://example.is/xml/", 1)
	if got := c.url("/thingmalalisti/efnisflokkur/", params("efnisflokkur", 10)); got != "https://example.is/xml/thingmalalisti/efnisflokkur/?efnisflokkur=10" {
		t.Errorf("url = %s", got)
	}
	if got := c.InterestsURL(1215); got != "https://example.is/xml/thingmenn/thingmadur/hagsmunir/?nr=1215" {
		t.Errorf("InterestsURL = %s", got)
	}
}

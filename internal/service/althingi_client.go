package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://www.althingi.is/altext/xml"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 2 * time.Second
	defaultUserAgent  = "althingi-ingest/1.0"
)

// ClientConfig configures the Althingi XML client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	Backoff      time.Duration
	RequestDelay time.Duration
	UserAgent    string
}

// AlthingiClient handles communication with the Althingi XML service
type AlthingiClient struct {
	client *http.Client
	cfg    ClientConfig
}

// NewAlthingiClient creates a new client, filling unset options with defaults
func NewAlthingiClient(cfg ClientConfig) *AlthingiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.RequestDelay < 0 {
		cfg.RequestDelay = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &AlthingiClient{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Delay returns the configured delay between requests
func (c *AlthingiClient) Delay() time.Duration {
	return c.cfg.RequestDelay
}

// FetchSessions retrieves the list of all legislative sessions
func (c *AlthingiClient) FetchSessions(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/loggjafarthing/", nil)
}

// FetchCurrentSession retrieves the currently active session
func (c *AlthingiClient) FetchCurrentSession(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/loggjafarthing/yfirstandandi/", nil)
}

// FetchParties retrieves the parties of a session
func (c *AlthingiClient) FetchParties(ctx context.Context, session int) ([]byte, error) {
	return c.get(ctx, "/thingflokkar/", params("lthing", session))
}

// FetchLegislators retrieves the members of a session
func (c *AlthingiClient) FetchLegislators(ctx context.Context, session int) ([]byte, error) {
	return c.get(ctx, "/thingmenn/", params("lthing", session))
}

// FetchLegislator retrieves the detail document of a legislator
func (c *AlthingiClient) FetchLegislator(ctx context.Context, id int) ([]byte, error) {
	return c.get(ctx, "/thingmenn/thingmadur/", params("nr", id))
}

// FetchBiography retrieves the biography of a legislator
func (c *AlthingiClient) FetchBiography(ctx context.Context, id int) ([]byte, error) {
	return c.get(ctx, "/thingmenn/thingmadur/lifshlaup/", params("nr", id))
}

// FetchSeats retrieves the seat history of a legislator
func (c *AlthingiClient) FetchSeats(ctx context.Context, id int) ([]byte, error) {
	return c.get(ctx, "/thingmenn/thingmadur/thingseta/", params("nr", id))
}

// FetchSpeeches retrieves the speeches of a legislator in a session
func (c *AlthingiClient) FetchSpeeches(ctx context.Context, id, session int) ([]byte, error) {
	return c.get(ctx, "/thingmenn/thingmadur/raedur/", params("nr", id, "lthing", session))
}

// FetchInterests retrieves the financial interest registration of a legislator
func (c *AlthingiClient) FetchInterests(ctx context.Context, id int) ([]byte, error) {
	return c.fetchWithRetry(ctx, c.InterestsURL(id))
}

// InterestsURL returns the document URL of a legislator's interest registration
func (c *AlthingiClient) InterestsURL(id int) string {
	return c.url("/thingmenn/thingmadur/hagsmunir/", params("nr", id))
}

// FetchBills retrieves the bill list of a session
func (c *AlthingiClient) FetchBills(ctx context.Context, session int) ([]byte, error) {
	return c.get(ctx, "/thingmalalisti/", params("lthing", session))
}

// FetchBill retrieves the detail document of a bill
func (c *AlthingiClient) FetchBill(ctx context.Context, session, number int) ([]byte, error) {
	return c.get(ctx, "/thingmalalisti/thingmal/", params("lthing", session, "malnr", number))
}

// FetchDocument retrieves a parliamentary document, which lists the sponsors
func (c *AlthingiClient) FetchDocument(ctx context.Context, session, number int) ([]byte, error) {
	return c.get(ctx, "/thingskjol/thingskjal/", params("lthing", session, "skjalnr", number))
}

// FetchVoting retrieves a voting event with its ballots
func (c *AlthingiClient) FetchVoting(ctx context.Context, votingID int) ([]byte, error) {
	return c.get(ctx, "/atkvaedagreidslur/atkvaedagreidsla/", params("numer", votingID))
}

// FetchCategories retrieves the official subject categories
func (c *AlthingiClient) FetchCategories(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/efnisflokkar/", nil)
}

// FetchCategoryBills retrieves the bills of a category. A session of 0
// means all sessions.
func (c *AlthingiClient) FetchCategoryBills(ctx context.Context, category, session int) ([]byte, error) {
	q := params("efnisflokkur", category)
	if session > 0 {
		q.Set("lthing", strconv.Itoa(session))
	}
	return c.get(ctx, "/thingmalalisti/efnisflokkur/", q)
}

func params(kv ...any) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(fmt.Sprint(kv[i]), fmt.Sprint(kv[i+1]))
	}
	return q
}

func (c *AlthingiClient) url(path string, q url.Values) string {
	u := c.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *AlthingiClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	return c.fetchWithRetry(ctx, c.url(path, q))
}

// fetchWithRetry performs an HTTP GET, retrying transient failures with a
// fixed backoff. Permanent failures return immediately.
func (c *AlthingiClient) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("malformed URL: %w", err)}
	}

	var lastErr *FetchError
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.Backoff):
			}
		}

		body, fe := c.fetchOnce(ctx, rawURL)
		if fe == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !fe.Transient {
			return nil, fe
		}
		lastErr = fe
	}

	return nil, &FetchError{
		URL:        rawURL,
		StatusCode: lastErr.StatusCode,
		Transient:  true,
		Err:        fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxRetries, lastErr),
	}
}

func (c *AlthingiClient) fetchOnce(ctx context.Context, rawURL string) ([]byte, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Transient: true, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Transient: true, Err: errors.New(resp.Status)}
	default:
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}
}

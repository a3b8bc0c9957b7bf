// Package calendar talks to the Google Calendar events API on behalf of a user.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/darmiel/localhub/internal/buildinfo"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/internal/logging"
	"github.com/darmiel/localhub/internal/metrics"
)

const (
	// EventsURL is the events collection of the user's primary calendar.
	EventsURL = "https://www.googleapis.com/calendar/v3/calendars/primary/events"

	DefaultConcurrency = 4
	DefaultTitle       = "Run"
	NoTitle            = "(No title)"

	provider = "google"

	// maxListPages bounds pagination of a single month listing.
	maxListPages = 10
	// errorSnippet is how much of a provider error body ends up in a batch error.
	errorSnippet = 80
)

var (
	dateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	colorIDRe = regexp.MustCompile(`^([1-9]|1[01])$`)
)

// Event is a calendar entry as shown by the UI. Start and End hold a dateTime for timed
// events and a date for all-day events.
type Event struct {
	ID       string `json:"id,omitempty"`
	Summary  string `json:"summary"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	HTMLLink string `json:"htmlLink,omitempty"`
	ColorID  string `json:"colorId,omitempty"`
}

// NewEvent is a single-day, all-day event to create.
type NewEvent struct {
	Date        string `json:"date"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateResult reports a batch create. A partially failed batch is not an error.
type CreateResult struct {
	Created    int      `json:"created"`
	CreatedIDs []string `json:"createdIds"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// DeleteResult reports a batch delete. Events that were already gone count as deleted.
type DeleteResult struct {
	Deleted int      `json:"deleted"`
	Failed  int      `json:"failed,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Gateway is the External Calendar Gateway. Create and delete batches run through a
// bounded worker pool; results are reported in input order.
type Gateway struct {
	tokens      core.AccessTokenSource
	docs        core.DocumentStore
	httpClient  *http.Client
	eventsURL   string
	concurrency int
}

type Option func(*Gateway)

// WithEventsURL points the gateway at another events collection, e.g. a test server.
func WithEventsURL(u string) Option {
	return func(g *Gateway) { g.eventsURL = strings.TrimRight(u, "/") }
}

// WithConcurrency sets the batch worker count. 1 processes batches strictly in order.
func WithConcurrency(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

func New(tokens core.AccessTokenSource, docs core.DocumentStore, httpClient *http.Client, opts ...Option) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	g := &Gateway{
		tokens:      tokens,
		docs:        docs,
		httpClient:  httpClient,
		eventsURL:   EventsURL,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MonthWindow returns the inclusive UTC bounds of a calendar month.
func MonthWindow(year, month int) (time.Time, time.Time, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid year or month", core.ErrInvalidRequest)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end, nil
}

// NextDay returns the day after date (YYYY-MM-DD). All-day event end dates are exclusive.
func NextDay(date string) (string, error) {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, 1).Format(time.DateOnly), nil
}

// ValidColorID reports whether id is one of the calendar event colors 1..11.
func ValidColorID(id string) bool {
	return colorIDRe.MatchString(id)
}

func (g *Gateway) newRequest(ctx context.Context, p core.Principal, method, target, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", buildinfo.UserAgent(logging.CorrelationCtx(ctx), p.UserID, provider))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (g *Gateway) token(ctx context.Context, p core.Principal) (string, error) {
	if err := ident.RequireScoped(p); err != nil {
		return "", err
	}
	return g.tokens.AccessToken(ctx, p)
}

type apiDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

func (d *apiDateTime) value() string {
	if d == nil {
		return ""
	}
	if d.DateTime != "" {
		return d.DateTime
	}
	return d.Date
}

type apiEvent struct {
	ID       string       `json:"id"`
	Summary  *string      `json:"summary"`
	Start    *apiDateTime `json:"start"`
	End      *apiDateTime `json:"end"`
	HTMLLink string       `json:"htmlLink"`
	ColorID  string       `json:"colorId"`
}

type apiEventList struct {
	Items         []apiEvent `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
}

// ListEvents returns the single (expanded) events of a month ordered by start time.
func (g *Gateway) ListEvents(ctx context.Context, p core.Principal, year, month int) ([]Event, error) {
	timeMin, timeMax, err := MonthWindow(year, month)
	if err != nil {
		return nil, err
	}
	token, err := g.token(ctx, p)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("timeMin", timeMin.Format("2006-01-02T15:04:05.000Z07:00"))
	query.Set("timeMax", timeMax.Format("2006-01-02T15:04:05.000Z07:00"))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	events := []Event{}
	for page := 0; page < maxListPages; page++ {
		req, err := g.newRequest(ctx, p, http.MethodGet, g.eventsURL+"?"+query.Encode(), token, nil)
		if err != nil {
			return nil, err
		}
		list, err := g.listPage(req)
		if err != nil {
			metrics.ProviderRequest(provider, "list_events", metrics.ResultError)
			log.Ctx(ctx).Error().Err(err).Msg("calendar.list.failed")
			return nil, err
		}
		metrics.ProviderRequest(provider, "list_events", metrics.ResultOK)

		for _, item := range list.Items {
			summary := NoTitle
			if item.Summary != nil {
				summary = *item.Summary
			}
			events = append(events, Event{
				ID:       item.ID,
				Summary:  summary,
				Start:    item.Start.value(),
				End:      item.End.value(),
				HTMLLink: item.HTMLLink,
				ColorID:  item.ColorID,
			})
		}
		if list.NextPageToken == "" {
			break
		}
		query.Set("pageToken", list.NextPageToken)
	}
	return events, nil
}

func (g *Gateway) listPage(req *http.Request) (*apiEventList, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &core.UpstreamError{Provider: provider, Op: "list events", Body: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &core.UpstreamError{Provider: provider, Op: "list events", StatusCode: resp.StatusCode, Body: readSnippet(resp.Body, 4096)}
	}
	var list apiEventList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &core.UpstreamError{Provider: provider, Op: "list events", StatusCode: resp.StatusCode, Body: "decoding response: " + err.Error()}
	}
	return &list, nil
}

func readSnippet(r io.Reader, n int) string {
	data, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(data)
}

// itemResult is the outcome of one batch item.
type itemResult struct {
	id  string
	err string
	ok  bool
}

// runBatch calls fn for every index with at most g.concurrency calls in flight.
func (g *Gateway) runBatch(n int, fn func(i int) itemResult) []itemResult {
	results := make([]itemResult, n)
	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			results[i] = fn(i)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// CreateEvents creates one all-day event per entry. Invalid entries and provider failures
// are reported per item and never abort the batch. colorID is ignored unless valid.
func (g *Gateway) CreateEvents(ctx context.Context, p core.Principal, events []NewEvent, colorID string) (*CreateResult, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no events provided", core.ErrInvalidRequest)
	}
	token, err := g.token(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ValidColorID(colorID) {
		colorID = ""
	}

	results := g.runBatch(len(events), func(i int) itemResult {
		return g.createOne(ctx, p, token, events[i], colorID)
	})

	out := &CreateResult{CreatedIDs: []string{}}
	for _, r := range results {
		switch {
		case r.err != "":
			out.Errors = append(out.Errors, r.err)
		case r.id != "":
			out.CreatedIDs = append(out.CreatedIDs, r.id)
		}
	}
	out.Created = len(out.CreatedIDs)
	out.Failed = len(out.Errors)

	log.Ctx(ctx).Info().
		Str("user", p.UserID).
		Int("created", out.Created).
		Int("failed", out.Failed).
		Msg("calendar.events.created")
	return out, nil
}

type apiNewEvent struct {
	Summary     string      `json:"summary"`
	Description string      `json:"description,omitempty"`
	Start       apiDateTime `json:"start"`
	End         apiDateTime `json:"end"`
	ColorID     string      `json:"colorId,omitempty"`
}

func (g *Gateway) createOne(ctx context.Context, p core.Principal, token string, event NewEvent, colorID string) itemResult {
	if !dateRe.MatchString(event.Date) {
		return itemResult{err: "Invalid date: " + event.Date}
	}
	end, err := NextDay(event.Date)
	if err != nil {
		return itemResult{err: "Invalid date: " + event.Date}
	}
	title := strings.TrimSpace(event.Title)
	if title == "" {
		title = DefaultTitle
	}

	payload := apiNewEvent{
		Summary:     title,
		Description: event.Description,
		Start:       apiDateTime{Date: event.Date},
		End:         apiDateTime{Date: end},
		ColorID:     colorID,
	}
	req, err := g.newRequest(ctx, p, http.MethodPost, g.eventsURL, token, payload)
	if err != nil {
		return itemResult{err: event.Date + ": " + err.Error()}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequest(provider, "create_event", metrics.ResultError)
		return itemResult{err: event.Date + ": " + err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProviderRequest(provider, "create_event", metrics.ResultError)
		return itemResult{err: event.Date + ": " + readSnippet(resp.Body, errorSnippet)}
	}
	metrics.ProviderRequest(provider, "create_event", metrics.ResultOK)

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		// the event may exist upstream but cannot be tracked for a later replace
		log.Ctx(ctx).Warn().Err(err).Str("user", p.UserID).Str("date", event.Date).Msg("calendar.event.created_without_id")
		return itemResult{err: event.Date + ": created without id"}
	}
	return itemResult{id: created.ID, ok: true}
}

// DeleteEvents deletes events by id. 404 and 410 count as deleted so a replay after a
// partial failure converges. Empty ids are skipped; an empty list is a no-op.
func (g *Gateway) DeleteEvents(ctx context.Context, p core.Principal, ids []string) (*DeleteResult, error) {
	if err := ident.RequireScoped(p); err != nil {
		return nil, err
	}
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		return &DeleteResult{}, nil
	}

	token, err := g.token(ctx, p)
	if err != nil {
		return nil, err
	}

	results := g.runBatch(len(filtered), func(i int) itemResult {
		return g.deleteOne(ctx, p, token, filtered[i])
	})

	out := &DeleteResult{}
	for _, r := range results {
		if r.ok {
			out.Deleted++
			continue
		}
		out.Errors = append(out.Errors, r.err)
	}
	out.Failed = len(out.Errors)

	log.Ctx(ctx).Info().
		Str("user", p.UserID).
		Int("deleted", out.Deleted).
		Int("failed", out.Failed).
		Msg("calendar.events.deleted")
	return out, nil
}

func (g *Gateway) deleteOne(ctx context.Context, p core.Principal, token, id string) itemResult {
	req, err := g.newRequest(ctx, p, http.MethodDelete, g.eventsURL+"/"+url.PathEscape(id), token, nil)
	if err != nil {
		return itemResult{err: id + ": " + err.Error()}
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequest(provider, "delete_event", metrics.ResultError)
		log.Ctx(ctx).Warn().Err(err).Str("event_id", id).Msg("calendar.delete.failed")
		return itemResult{err: id + ": " + err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		metrics.ProviderRequest(provider, "delete_event", metrics.ResultOK)
		return itemResult{id: id, ok: true}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		metrics.ProviderRequest(provider, "delete_event", metrics.ResultNotFound)
		return itemResult{id: id, ok: true}
	default:
		metrics.ProviderRequest(provider, "delete_event", metrics.ResultError)
		body := readSnippet(resp.Body, 100)
		log.Ctx(ctx).Warn().Int("status", resp.StatusCode).Str("event_id", id).Str("body", body).Msg("calendar.delete.failed")
		return itemResult{err: fmt.Sprintf("%s: status %d", id, resp.StatusCode)}
	}
}

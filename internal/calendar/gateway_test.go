package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/store"
)

type staticTokens struct {
	token string
	err   error
	calls int
	mu    sync.Mutex
}

func (s *staticTokens) AccessToken(context.Context, core.Principal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.token, s.err
}

// fakeCalendar is an in-memory events collection.
type fakeCalendar struct {
	mu       sync.Mutex
	next     int
	events   map[string]apiNewEvent
	failDate map[string]int
	failDel  map[string]int
	requests []string
	lastList string
}

func newFakeCalendar(t *testing.T) (*fakeCalendar, *httptest.Server) {
	t.Helper()
	fc := &fakeCalendar{events: map[string]apiNewEvent{}, failDate: map[string]int{}, failDel: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(fc.serve))
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCalendar) serve(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.requests = append(fc.requests, r.Method+" "+r.URL.Path)

	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/events")
	id = strings.TrimPrefix(id, "/")

	switch {
	case r.Method == http.MethodPost && id == "":
		var ev apiNewEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if status, ok := fc.failDate[ev.Start.Date]; ok {
			w.WriteHeader(status)
			_, _ = fmt.Fprint(w, `{"error":{"code":429,"message":"Rate Limit Exceeded, please slow down and try again a little later"}}`)
			return
		}
		fc.next++
		newID := fmt.Sprintf("evt%d", fc.next)
		fc.events[newID] = ev
		_ = json.NewEncoder(w).Encode(map[string]string{"id": newID})
	case r.Method == http.MethodDelete && id != "":
		if status, ok := fc.failDel[id]; ok {
			w.WriteHeader(status)
			return
		}
		if _, ok := fc.events[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(fc.events, id)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && id == "":
		fc.lastList = r.URL.RawQuery
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = fmt.Fprint(w, `{"items":[
				{"id":"a","summary":"Long run","start":{"date":"2024-02-03"},"end":{"date":"2024-02-04"},"colorId":"5"},
				{"id":"b","start":{"dateTime":"2024-02-05T08:00:00+01:00"},"end":{"dateTime":"2024-02-05T09:00:00+01:00"},"htmlLink":"https://cal/b"}
			],"nextPageToken":"p2"}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"items":[{"id":"c","summary":"","start":{"date":"2024-02-20"}}]}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (fc *fakeCalendar) count() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.events)
}

var alice = core.Principal{UserID: "alice"}

func newGateway(t *testing.T, srv *httptest.Server, tokens *staticTokens, concurrency int) (*Gateway, *store.FileStore) {
	t.Helper()
	docs := store.NewFileStore(t.TempDir(), nil)
	return New(tokens, docs, srv.Client(), WithEventsURL(srv.URL+"/events"), WithConcurrency(concurrency)), docs
}

func TestMonthWindow(t *testing.T) {
	start, end, err := MonthWindow(2024, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := start.Format(time.RFC3339Nano); got != "2024-02-01T00:00:00Z" {
		t.Errorf("start = %s", got)
	}
	if got := end.Format(time.RFC3339Nano); got != "2024-02-29T23:59:59.999Z" {
		t.Errorf("end = %s", got)
	}

	for _, bad := range [][2]int{{2024, 0}, {2024, 13}, {0, 5}} {
		if _, _, err := MonthWindow(bad[0], bad[1]); !errors.Is(err, core.ErrInvalidRequest) {
			t.Errorf("MonthWindow(%d, %d) error = %v", bad[0], bad[1], err)
		}
	}
}

func TestNextDay(t *testing.T) {
	tests := map[string]string{
		"2024-02-28": "2024-02-29",
		"2023-02-28": "2023-03-01",
		"2023-12-31": "2024-01-01",
	}
	for in, want := range tests {
		got, err := NextDay(in)
		if err != nil || got != want {
			t.Errorf("NextDay(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NextDay("2024-13-45"); err == nil {
		t.Error("expected error for impossible date")
	}
}

func TestGateway_ListEvents(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	g, _ := newGateway(t, srv, &staticTokens{token: "tok"}, 1)

	events, err := g.ListEvents(context.Background(), alice, 2024, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []Event{
		{ID: "a", Summary: "Long run", Start: "2024-02-03", End: "2024-02-04", ColorID: "5"},
		{ID: "b", Summary: "(No title)", Start: "2024-02-05T08:00:00+01:00", End: "2024-02-05T09:00:00+01:00", HTMLLink: "https://cal/b"},
		{ID: "c", Summary: "", Start: "2024-02-20"},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	for _, part := range []string{
		"timeMin=2024-02-01T00%3A00%3A00.000Z",
		"timeMax=2024-02-29T23%3A59%3A59.999Z",
		"singleEvents=true",
		"orderBy=startTime",
	} {
		if !strings.Contains(fc.lastList, part) {
			t.Errorf("list query %q misses %q", fc.lastList, part)
		}
	}
}

func TestGateway_ListEventsUpstreamError(t *testing.T) {
	_, srv := newFakeCalendar(t)
	g, _ := newGateway(t, srv, &staticTokens{token: "wrong"}, 1)

	_, err := g.ListEvents(context.Background(), alice, 2024, 2)
	var upstream *core.UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusUnauthorized {
		t.Errorf("error = %v, want upstream 401", err)
	}
}

func TestGateway_CreateEvents(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	fc.failDate["2024-03-05"] = http.StatusTooManyRequests
	g, _ := newGateway(t, srv, &staticTokens{token: "tok"}, 4)

	batch := []NewEvent{
		{Date: "2024-03-01", Title: "  Easy 5k  ", Description: "zone 2"},
		{Date: "03/02/2024"},
		{Date: "2024-03-05", Title: "Intervals"},
		{Date: "2024-03-31"},
	}
	res, err := g.CreateEvents(context.Background(), alice, batch, "12")
	if err != nil {
		t.Fatal(err)
	}

	if res.Created != 2 || res.Failed != 2 || len(res.CreatedIDs) != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Errors[0] != "Invalid date: 03/02/2024" {
		t.Errorf("first error = %q", res.Errors[0])
	}
	if !strings.HasPrefix(res.Errors[1], "2024-03-05: ") || len(res.Errors[1]) != len("2024-03-05: ")+80 {
		t.Errorf("second error = %q", res.Errors[1])
	}

	first := fc.events[res.CreatedIDs[0]]
	if diff := cmp.Diff(apiNewEvent{
		Summary:     "Easy 5k",
		Description: "zone 2",
		Start:       apiDateTime{Date: "2024-03-01"},
		End:         apiDateTime{Date: "2024-03-02"},
	}, first); diff != "" {
		t.Errorf("first event mismatch (-want +got):\n%s", diff)
	}
	last := fc.events[res.CreatedIDs[1]]
	if last.Summary != "Run" || last.End.Date != "2024-04-01" || last.ColorID != "" {
		t.Errorf("last event = %+v", last)
	}
}

func TestGateway_CreateEventsValidation(t *testing.T) {
	_, srv := newFakeCalendar(t)
	tokens := &staticTokens{token: "tok"}
	g, _ := newGateway(t, srv, tokens, 1)
	ctx := context.Background()

	if _, err := g.CreateEvents(ctx, alice, nil, ""); !errors.Is(err, core.ErrInvalidRequest) {
		t.Errorf("empty batch error = %v", err)
	}
	if _, err := g.CreateEvents(ctx, core.Principal{}, []NewEvent{{Date: "2024-01-01"}}, ""); !errors.Is(err, core.ErrMissingUserContext) {
		t.Errorf("unscoped error = %v", err)
	}

	tokens.err = &core.NotConnectedError{App: "calendar"}
	if _, err := g.CreateEvents(ctx, alice, []NewEvent{{Date: "2024-01-01"}}, ""); !errors.Is(err, core.ErrNotConnected) {
		t.Errorf("not connected error = %v", err)
	}
}

func TestGateway_CreateEventsWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev apiNewEvent
		_ = json.NewDecoder(r.Body).Decode(&ev)
		if ev.Start.Date == "2024-03-02" {
			_, _ = fmt.Fprint(w, `{"status":"confirmed"}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"id":"evt1"}`)
	}))
	t.Cleanup(srv.Close)
	g, _ := newGateway(t, srv, &staticTokens{token: "tok"}, 1)

	got, err := g.CreateEvents(context.Background(), alice, []NewEvent{{Date: "2024-03-01"}, {Date: "2024-03-02"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	want := &CreateResult{
		Created:    1,
		CreatedIDs: []string{"evt1"},
		Failed:     1,
		Errors:     []string{"2024-03-02: created without id"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestGateway_CreateEventsColor(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	g, _ := newGateway(t, srv, &staticTokens{token: "tok"}, 1)

	res, err := g.CreateEvents(context.Background(), alice, []NewEvent{{Date: "2024-05-01"}}, "11")
	if err != nil {
		t.Fatal(err)
	}
	if got := fc.events[res.CreatedIDs[0]].ColorID; got != "11" {
		t.Errorf("colorId = %q", got)
	}

	for id, want := range map[string]bool{"1": true, "9": true, "10": true, "11": true, "0": false, "12": false, "01": false, "": false} {
		if ValidColorID(id) != want {
			t.Errorf("ValidColorID(%q) = %v", id, !want)
		}
	}
}

func TestGateway_DeleteEvents(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	tokens := &staticTokens{token: "tok"}
	g, _ := newGateway(t, srv, tokens, 2)
	ctx := context.Background()

	created, err := g.CreateEvents(ctx, alice, []NewEvent{{Date: "2024-01-01"}, {Date: "2024-01-02"}, {Date: "2024-01-03"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	fc.failDel[created.CreatedIDs[2]] = http.StatusInternalServerError

	res, err := g.DeleteEvents(ctx, alice, append([]string{"", "already-gone"}, created.CreatedIDs...))
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 3 || res.Failed != 1 {
		t.Errorf("result = %+v, want 3 deleted (one already gone) and 1 failed", res)
	}
	if fc.count() != 1 {
		t.Errorf("remaining events = %d, want 1", fc.count())
	}

	tokens.calls = 0
	res, err = g.DeleteEvents(ctx, alice, []string{"", ""})
	if err != nil || res.Deleted != 0 {
		t.Errorf("empty delete = %+v, %v", res, err)
	}
	if tokens.calls != 0 {
		t.Error("empty delete must not need a token")
	}
}

func TestGateway_ReplaceTrackedEvents(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	g, _ := newGateway(t, srv, &staticTokens{token: "tok"}, 3)
	ctx := context.Background()

	first := []NewEvent{{Date: "2024-06-01"}, {Date: "2024-06-03"}, {Date: "2024-06-05"}}
	second := []NewEvent{{Date: "2024-06-02"}, {Date: "2024-06-04"}}

	if _, err := g.ReplaceTrackedEvents(ctx, alice, first, ""); err != nil {
		t.Fatal(err)
	}
	tracked, _ := g.TrackedEvents(ctx, alice)
	if len(tracked) != len(first) {
		t.Fatalf("tracked after first = %v", tracked)
	}

	res, err := g.ReplaceTrackedEvents(ctx, alice, second, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted.Deleted != len(first) || res.Created != len(second) {
		t.Errorf("replace result = %+v", res)
	}

	tracked, _ = g.TrackedEvents(ctx, alice)
	if diff := cmp.Diff(res.CreatedIDs, tracked); diff != "" {
		t.Errorf("tracked mismatch (-want +got):\n%s", diff)
	}
	if len(tracked) != len(second) || fc.count() != len(second) {
		t.Errorf("tracked = %d, live = %d, want %d", len(tracked), fc.count(), len(second))
	}

	// deletion happens before creation
	var methods []string
	for _, r := range fc.requests[len(first):] {
		methods = append(methods, strings.Fields(r)[0])
	}
	if diff := cmp.Diff([]string{"DELETE", "DELETE", "DELETE", "POST", "POST"}, methods); diff != "" {
		t.Errorf("request order mismatch (-want +got):\n%s", diff)
	}
}

func TestGateway_ReplaceAfterPartialDelete(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	g, docs := newGateway(t, srv, &staticTokens{token: "tok"}, 1)
	ctx := context.Background()

	// a previous run deleted evt-x already; it stayed tracked
	stale := core.MustValue([]any{"evt-x", 17, ""})
	if err := docs.Put(ctx, TrackedPluginID, TrackedKey, stale, alice); err != nil {
		t.Fatal(err)
	}

	res, err := g.ReplaceTrackedEvents(ctx, alice, []NewEvent{{Date: "2024-07-01"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted.Deleted != 1 || res.Deleted.Failed != 0 {
		t.Errorf("delete result = %+v", res.Deleted)
	}
	tracked, _ := g.TrackedEvents(ctx, alice)
	if len(tracked) != 1 || fc.count() != 1 {
		t.Errorf("tracked = %v, live = %d", tracked, fc.count())
	}
}

func TestGateway_ReplaceNotConnectedChangesNothing(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	g, docs := newGateway(t, srv, &staticTokens{err: &core.NotConnectedError{App: "calendar"}}, 1)
	ctx := context.Background()

	_ = docs.Put(ctx, TrackedPluginID, TrackedKey, core.MustValue([]string{"evt1"}), alice)

	if _, err := g.ReplaceTrackedEvents(ctx, alice, []NewEvent{{Date: "2024-07-01"}}, ""); !errors.Is(err, core.ErrNotConnected) {
		t.Fatalf("error = %v", err)
	}
	if len(fc.requests) != 0 {
		t.Errorf("provider called: %v", fc.requests)
	}
	tracked, _ := g.TrackedEvents(ctx, alice)
	if diff := cmp.Diff([]string{"evt1"}, tracked); diff != "" {
		t.Errorf("tracked changed (-want +got):\n%s", diff)
	}
}

func TestGateway_ClearTrackedEvents(t *testing.T) {
	fc, srv := newFakeCalendar(t)
	g, _ := newGateway(t, srv, &staticTokens{token: "tok"}, 2)
	ctx := context.Background()

	if _, err := g.ReplaceTrackedEvents(ctx, alice, []NewEvent{{Date: "2024-08-01"}, {Date: "2024-08-02"}}, "3"); err != nil {
		t.Fatal(err)
	}
	res, err := g.ClearTrackedEvents(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 2 || fc.count() != 0 {
		t.Errorf("clear result = %+v, live = %d", res, fc.count())
	}
	tracked, _ := g.TrackedEvents(ctx, alice)
	if len(tracked) != 0 {
		t.Errorf("tracked = %v", tracked)
	}
}

package monitor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/overlod-admin/internal/storage"
	"github.com/samvad-hq/overlod-admin/pkg/httpclient"
	"github.com/samvad-hq/overlod-admin/pkg/lod"
	"github.com/samvad-hq/overlod-admin/pkg/publishers"
)

const (
	ctxPeople = "http://example.org/graph/people"
	urlPeople = "http://data.example.org/people.ttl"
)

type fakeLister struct {
	params []lod.EDSParams
	err    error
}

func (f fakeLister) List(context.Context) ([]lod.EDSParams, error) { return f.params, f.err }

type stubResponse struct {
	status  int
	headers map[string]string
}

func (s stubResponse) Body() []byte             { return nil }
func (s stubResponse) StatusCode() int          { return s.status }
func (s stubResponse) Header(key string) string { return s.headers[key] }

// fakeProbe answers HEAD requests from a url-keyed table.
type fakeProbe struct {
	responses map[string]httpclient.Response
	err       error
	heads     []string
}

func (f *fakeProbe) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	return nil, errors.New("unexpected GET")
}

func (f *fakeProbe) Head(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	f.heads = append(f.heads, url)
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[url]
	if !ok {
		return stubResponse{status: http.StatusNotFound}, nil
	}
	return resp, nil
}

func lastModified(t time.Time) httpclient.Response {
	return stubResponse{status: http.StatusOK, headers: map[string]string{"Last-Modified": t.UTC().Format(http.TimeFormat)}}
}

// memStore mirrors the bbolt ledger: with a ttl set, an entry not recorded
// again within ttl of clock() is gone.
type memStore struct {
	mu       sync.Mutex
	stamps   map[string]time.Time
	err      error
	ttl      time.Duration
	clock    func() time.Time
	recorded map[string]time.Time
}

func (m *memStore) LastModified(graph string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return time.Time{}, false, m.err
	}
	if m.ttl > 0 && !m.clock().Before(m.recorded[graph].Add(m.ttl)) {
		delete(m.stamps, graph)
	}
	t, ok := m.stamps[graph]
	return t, ok, nil
}

func (m *memStore) Record(graph string, stamp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stamps == nil {
		m.stamps = map[string]time.Time{}
	}
	m.stamps[graph] = stamp
	if m.ttl > 0 {
		if m.recorded == nil {
			m.recorded = map[string]time.Time{}
		}
		m.recorded[graph] = m.clock()
	}
	return nil
}

func (m *memStore) Forget(graph string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stamps, graph)
	return nil
}

func (m *memStore) Entries() ([]storage.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]storage.Entry, 0, len(m.stamps))
	for g, t := range m.stamps {
		out = append(out, storage.Entry{Graph: g, LastModified: t})
	}
	return out, nil
}

type fakePublisher struct {
	events []publishers.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

type fakeRefresher struct {
	graphs []string
	err    error
}

func (f *fakeRefresher) Update(_ context.Context, graph string) (string, error) {
	f.graphs = append(f.graphs, graph)
	return "ok", f.err
}

var (
	jan = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
)

func peopleSource() []lod.EDSParams {
	return []lod.EDSParams{{EDSType: lod.EDSTypeWebRDFFile, URL: urlPeople, Context: ctxPeople, ContentType: "text/turtle"}}
}

func newTestService(probe *fakeProbe, store *memStore, pub EventPublisher, ref Refresher) *Service {
	svc := NewService(fakeLister{params: peopleSource()}, probe, store, pub, ref, nil)
	svc.newID = func() string { return "evt-1" }
	svc.now = func() time.Time { return feb.Add(time.Hour) }
	return svc
}

func TestFirstSightingOnlyRecords(t *testing.T) {
	store := &memStore{}
	pub := &fakePublisher{}
	svc := newTestService(&fakeProbe{responses: map[string]httpclient.Response{urlPeople: lastModified(jan)}}, store, pub, nil)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Count(OutcomeFirstSeen) != 1 || len(report.Changes) != 0 {
		t.Fatalf("unexpected report %#v", report)
	}
	if len(pub.events) != 0 {
		t.Fatalf("first sighting must not publish")
	}
	if !store.stamps[ctxPeople].Equal(jan) {
		t.Fatalf("stamp not recorded: %v", store.stamps)
	}
}

func TestUnchangedStampIsQuiet(t *testing.T) {
	store := &memStore{stamps: map[string]time.Time{ctxPeople: feb}}
	pub := &fakePublisher{}
	svc := newTestService(&fakeProbe{responses: map[string]httpclient.Response{urlPeople: lastModified(jan)}}, store, pub, nil)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Count(OutcomeUnchanged) != 1 || len(pub.events) != 0 {
		t.Fatalf("older stamp must not be a change: %#v", report)
	}
}

func TestNewerStampPublishesAndRefreshes(t *testing.T) {
	store := &memStore{stamps: map[string]time.Time{ctxPeople: jan}}
	pub := &fakePublisher{}
	ref := &fakeRefresher{}
	svc := newTestService(&fakeProbe{responses: map[string]httpclient.Response{urlPeople: lastModified(feb)}}, store, pub, ref)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(report.Changes) != 1 || !report.Changes[0].Refreshed {
		t.Fatalf("expected one refreshed change, got %#v", report.Changes)
	}
	if len(ref.graphs) != 1 || ref.graphs[0] != ctxPeople {
		t.Fatalf("expected refresh of %s, got %v", ctxPeople, ref.graphs)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.ID != "evt-1" || evt.Context != ctxPeople || !evt.LastModified.Equal(feb) || !evt.Refreshed {
		t.Fatalf("unexpected event %#v", evt)
	}
	if evt.Previous == nil || !evt.Previous.Equal(jan) {
		t.Fatalf("expected previous stamp %v, got %v", jan, evt.Previous)
	}
	if !store.stamps[ctxPeople].Equal(feb) {
		t.Fatalf("expected stamp advanced to %v", feb)
	}
}

func TestFailedPublishKeepsOldStamp(t *testing.T) {
	store := &memStore{stamps: map[string]time.Time{ctxPeople: jan}}
	pub := &fakePublisher{err: errors.New("queue down")}
	svc := newTestService(&fakeProbe{responses: map[string]httpclient.Response{urlPeople: lastModified(feb)}}, store, pub, nil)

	_, err := svc.RunOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "queue down") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if !store.stamps[ctxPeople].Equal(jan) {
		t.Fatalf("stamp must not advance after a failed publish")
	}
}

func TestFailedRefreshStillPublishes(t *testing.T) {
	store := &memStore{stamps: map[string]time.Time{ctxPeople: jan}}
	pub := &fakePublisher{}
	ref := &fakeRefresher{err: lod.NewServerError(500, "import failed")}
	svc := newTestService(&fakeProbe{responses: map[string]httpclient.Response{urlPeople: lastModified(feb)}}, store, pub, ref)

	report, err := svc.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected refresh error")
	}
	if len(pub.events) != 1 || pub.events[0].Refreshed {
		t.Fatalf("expected unrefreshed event, got %#v", pub.events)
	}
	if report.Count(OutcomeChanged) != 1 {
		t.Fatalf("expected change outcome, got %#v", report.Checks)
	}
}

func TestSkipsLocalAndStamplessSources(t *testing.T) {
	params := []lod.EDSParams{
		{EDSType: lod.EDSTypeLocalRDFFile, URL: "/srv/data/local.rdf", Context: "http://example.org/graph/local"},
		{EDSType: lod.EDSTypeWebRDFFile, URL: "ftp://example.org/x.rdf", Context: "http://example.org/graph/ftp"},
		{EDSType: lod.EDSTypeWebRDFFile, URL: urlPeople, Context: ctxPeople},
	}
	probe := &fakeProbe{responses: map[string]httpclient.Response{urlPeople: stubResponse{status: http.StatusOK}}}
	svc := NewService(fakeLister{params: params}, probe, &memStore{}, nil, nil, nil)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Count(OutcomeSkipped) != 3 {
		t.Fatalf("expected 3 skipped, got %#v", report.Checks)
	}
	if len(probe.heads) != 1 {
		t.Fatalf("only the http source should be probed, got %v", probe.heads)
	}
}

func TestErrorsAreJoinedAcrossSources(t *testing.T) {
	params := []lod.EDSParams{
		{EDSType: lod.EDSTypeWebRDFFile, URL: "http://a.example.org/a.ttl", Context: "http://example.org/graph/a"},
		{EDSType: lod.EDSTypeWebRDFFile, URL: "http://b.example.org/b.ttl", Context: "http://example.org/graph/b"},
		{EDSType: lod.EDSTypeWebRDFFile, URL: urlPeople, Context: ctxPeople},
	}
	probe := &fakeProbe{responses: map[string]httpclient.Response{
		"http://b.example.org/b.ttl": stubResponse{status: http.StatusOK, headers: map[string]string{"Last-Modified": "yesterday"}},
		urlPeople:                    lastModified(jan),
	}}
	store := &memStore{}
	svc := NewService(fakeLister{params: params}, probe, store, nil, nil, nil)

	report, err := svc.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if !strings.Contains(err.Error(), "graph/a") || !strings.Contains(err.Error(), "graph/b") {
		t.Fatalf("expected both failing sources in error, got %v", err)
	}
	var se *lod.ServerError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("expected wrapped 404 server error, got %v", err)
	}
	if report.Count(OutcomeFailed) != 2 || report.Count(OutcomeFirstSeen) != 1 {
		t.Fatalf("unexpected outcomes %#v", report.Checks)
	}
	if _, ok := store.stamps[ctxPeople]; !ok {
		t.Fatalf("healthy source must still be recorded")
	}
}

func TestRunOnceFailsWhenListingFails(t *testing.T) {
	svc := NewService(fakeLister{err: lod.NewServerError(401, "")}, &fakeProbe{}, &memStore{}, nil, nil, nil)
	if _, err := svc.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected list error")
	}
}

func TestRunOnceStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := &fakeProbe{}
	svc := NewService(fakeLister{params: peopleSource()}, probe, &memStore{}, nil, nil, nil)
	_, err := svc.RunOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(probe.heads) != 0 {
		t.Fatalf("no probes expected after cancellation")
	}
}

func TestRemovedSourcesAreForgotten(t *testing.T) {
	gone := "http://example.org/graph/gone"
	store := &memStore{stamps: map[string]time.Time{ctxPeople: jan, gone: jan}}
	svc := newTestService(&fakeProbe{responses: map[string]httpclient.Response{urlPeople: lastModified(jan)}}, store, nil, nil)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(report.Forgotten) != 1 || report.Forgotten[0] != gone {
		t.Fatalf("expected %s forgotten, got %v", gone, report.Forgotten)
	}
	if _, ok := store.stamps[gone]; ok {
		t.Fatalf("stamp for removed source still recorded")
	}
	if _, ok := store.stamps[ctxPeople]; !ok {
		t.Fatalf("listed source must be kept")
	}
}

func TestWatchedSourceOutlivesLedgerTTL(t *testing.T) {
	now := feb
	store := &memStore{ttl: time.Hour, clock: func() time.Time { return now }}
	pub := &fakePublisher{}
	probe := &fakeProbe{responses: map[string]httpclient.Response{urlPeople: lastModified(jan)}}
	svc := newTestService(probe, store, pub, nil)

	want := []Outcome{OutcomeFirstSeen, OutcomeUnchanged, OutcomeUnchanged, OutcomeUnchanged}
	for i, outcome := range want {
		report, err := svc.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
		if report.Count(outcome) != 1 {
			t.Fatalf("pass %d: expected %s, got %#v", i, outcome, report.Checks)
		}
		now = now.Add(40 * time.Minute)
	}

	probe.responses[urlPeople] = lastModified(feb)
	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce after change: %v", err)
	}
	if report.Count(OutcomeChanged) != 1 || len(pub.events) != 1 {
		t.Fatalf("change jan->feb was not detected: %#v", report.Checks)
	}
	if !store.stamps[ctxPeople].Equal(feb) {
		t.Fatalf("expected feb recorded, got %v", store.stamps[ctxPeople])
	}
}

package publishers

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/overlod-admin/internal/domain"
)

func TestNewEventCopiesChange(t *testing.T) {
	evt := testEvent()
	if evt.Type != EventTypeSourceChanged || evt.Context != "http://example.org/graph/people" {
		t.Fatalf("unexpected event %#v", evt)
	}
	if evt.Previous == nil || !evt.Previous.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("previous stamp not copied: %v", evt.Previous)
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"last_modified":"2024-02-01T00:00:00Z"`) {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestNewEventOmitsZeroPrevious(t *testing.T) {
	evt := NewEvent(domain.SourceChange{ID: "x", LastModified: time.Now()})
	if evt.Previous != nil {
		t.Fatalf("expected nil previous")
	}
	if evt.DetectedAt.IsZero() {
		t.Fatalf("expected detected_at to default to now")
	}
}

func TestEventAttributes(t *testing.T) {
	attrs := testEvent().Attributes()
	if attrs["event_type"] != EventTypeSourceChanged || attrs["context"] != "http://example.org/graph/people" {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
}
